package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("run: %w", ErrNoData)
	got := FromError(wrapped)
	assert.Equal(t, "NO_DATA", got.Code)
	assert.Equal(t, http.StatusPreconditionFailed, got.Status)

	plain := FromError(errors.New("disk full"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.EqualError(t, plain, "internal server error: disk full")

	assert.Nil(t, FromError(nil))
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrInvalidTable, "timetable.csv: missing required column Week")
	assert.Equal(t, ErrInvalidTable.Code, clone.Code)
	assert.NotEqual(t, ErrInvalidTable.Message, clone.Message)
	assert.Equal(t, "uploaded table could not be read", ErrInvalidTable.Message)
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("bad header")
	err := Wrap(cause, ErrInvalidTable.Code, ErrInvalidTable.Status, "timetable rejected")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "timetable rejected: bad header", err.Error())
}
