package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/guest-services/pkg/util"
)

func TestOptionalStringDistinguishesAbsentFromNull(t *testing.T) {
	var absent UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"status":"resolved"}`), &absent))
	assert.False(t, absent.AssignedStaffUserID.Set)

	var null UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"assignedStaffUserId":null}`), &null))
	assert.True(t, null.AssignedStaffUserID.Set)
	assert.Nil(t, null.AssignedStaffUserID.Value)

	var me UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"assignedStaffUserId":"me"}`), &me))
	assert.True(t, me.AssignedStaffUserID.Set)
	require.NotNil(t, me.AssignedStaffUserID.Value)
	assert.Equal(t, "me", *me.AssignedStaffUserID.Value)

	var bad UpdateTicketRequest
	assert.Error(t, json.Unmarshal([]byte(`{"assignedStaffUserId":42}`), &bad))
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	err := Validate(CreateTicketRequest{Title: "Towels"})
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidationFailed, domainErr.Code)
	assert.Equal(t, "is required", domainErr.Details["department"])

	assert.NoError(t, Validate(CreateTicketRequest{Title: "Towels", Department: "housekeeping"}))
}
