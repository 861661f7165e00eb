package validator

import (
	"testing"

	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Plan  string `json:"plan" validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

func TestValidateRequest(t *testing.T) {
	require.NoError(t, ValidateRequest(&sampleRequest{Plan: "pro"}))

	err := ValidateRequest(&sampleRequest{Email: "not-an-email"})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
	assert.Contains(t, err.Error(), "plan")
}
