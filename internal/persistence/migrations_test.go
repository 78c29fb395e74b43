package persistence

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNamesSortsSQLFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_history.sql": {Data: []byte("SELECT 2;")},
		"migrations/001_init.sql":    {Data: []byte("SELECT 1;")},
		"migrations/README.md":       {Data: []byte("notes")},
		"migrations/old/000.sql":     {Data: []byte("SELECT 0;")},
	}
	names, err := migrationNames(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_history.sql"}, names)
}

func TestEmbeddedMigrationsCreateEveryTable(t *testing.T) {
	names, err := migrationNames(migrationFiles)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	content, err := migrationFiles.ReadFile("migrations/" + names[0])
	require.NoError(t, err)
	for _, table := range []string{
		"staff_members", "tickets", "threads", "messages", "notes",
		"hotel_notification_settings", "notification_outbox", "calendar_events", "change_history",
	} {
		assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
}
