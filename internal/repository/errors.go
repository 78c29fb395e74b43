package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a keyed lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a compare-and-set update keeps losing to concurrent writers.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrThreadClosed is returned when appending to a thread that is archived or missing.
	ErrThreadClosed = errors.New("thread closed")
	// ErrVersionMismatch signals a single lost compare-and-set race; callers retry.
	ErrVersionMismatch = errors.New("version mismatch")
)

// MaxUpdateAttempts bounds the optimistic retry loop of Update calls.
const MaxUpdateAttempts = 3

// RetryOnConflict runs attempt until it stops reporting ErrVersionMismatch,
// giving up with ErrConflict after MaxUpdateAttempts.
func RetryOnConflict(ctx context.Context, attempt func() error) error {
	for i := 0; i < MaxUpdateAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := attempt()
		if !errors.Is(err, ErrVersionMismatch) {
			return err
		}
	}
	return ErrConflict
}

// validID reports whether id can address a UUID key column. A malformed id
// matches no row, so lookups answer ErrNotFound without a round trip.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
