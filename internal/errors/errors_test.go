package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlsim/transitsync/internal/errors"
)

func TestSentinelWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("ledger: %w", errors.ErrUnknownPassenger)
	assert.True(t, errors.Is(err, errors.ErrUnknownPassenger))
	assert.False(t, errors.Is(err, errors.ErrUnknownBus))
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		field   string
		message string
		want    string
	}{
		{
			name:    "with field",
			field:   "fare",
			message: "must be positive",
			want:    "validation failed: fare: must be positive",
		},
		{
			name:    "without field",
			message: "seed is nil",
			want:    "validation failed: seed is nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := errors.NewValidationError(tt.field, tt.message)
			require.EqualError(t, err, tt.want)
			assert.True(t, errors.IsValidation(err))
			assert.True(t, errors.IsValidation(fmt.Errorf("wrapped: %w", err)))
		})
	}
}

func TestIsValidationRejectsPlainErrors(t *testing.T) {
	t.Parallel()

	assert.False(t, errors.IsValidation(errors.New("plain")))
	assert.False(t, errors.IsValidation(nil))
}
