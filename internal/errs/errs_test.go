package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errWillNotFound = New(KindNotFound, "will_not_found")

func TestSentinelMatchesKind(t *testing.T) {
	wrapped := fmt.Errorf("load will: %w", errWillNotFound)

	assert.ErrorIs(t, wrapped, errWillNotFound)
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.NotErrorIs(t, wrapped, ErrInvalidState)
	assert.NotErrorIs(t, wrapped, New(KindNotFound, "client_not_found"))

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "will_not_found", CodeOf(wrapped))
}

func TestValidationErrors(t *testing.T) {
	var v ValidationErrors
	assert.NoError(t, v.Err())

	v.Add("first_name", "required", "first_name is required")
	err := fmt.Errorf("create client: %w", v.Err())

	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, KindValidationFailed, KindOf(err))
	assert.Contains(t, err.Error(), "first_name: required")

	var got *ValidationErrors
	assert.True(t, errors.As(err, &got))
	assert.Len(t, got.Errors, 1)
}

func TestUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}
