package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(newNotFoundError("gone")))
	assert.Equal(t, KindForbidden, KindOf(fmt.Errorf("wrapped: %w", newForbiddenError("no"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestError(t *testing.T) {
	cause := errors.New("connection reset")
	err := newInternalError("create message", cause)

	assert.Equal(t, "create message: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "forbidden", newForbiddenError("forbidden").Error())
}

func TestValidateStruct(t *testing.T) {
	err := validateStruct(newValidator(), SendParams{SenderId: "a"})
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "receiverId failed required")
	assert.Contains(t, err.Error(), "content failed required")
}
