package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	err := NotFound("Chat room", nil)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, "Chat room not found", err.Message)
	assert.Equal(t, http.StatusNotFound, err.Status)

	assert.Equal(t, http.StatusForbidden, Forbidden("nope", nil).Status)
	assert.Equal(t, http.StatusConflict, Conflict("exists", nil).Status)
	assert.Equal(t, http.StatusTooManyRequests, TooManyRequests("slow down").Status)
}

func TestIsMatchesCode(t *testing.T) {
	err := NotFound("Chat room", nil)

	assert.True(t, Is(err, "NOT_FOUND"))
	assert.False(t, Is(err, "FORBIDDEN"))
	assert.False(t, Is(nil, "NOT_FOUND"))
	assert.False(t, Is(fmt.Errorf("plain"), "NOT_FOUND"))
}

func TestIsSeesWrappedErrors(t *testing.T) {
	inner := Conflict("Chat room already exists", nil)
	wrapped := fmt.Errorf("creating room: %w", inner)

	assert.True(t, Is(wrapped, "CONFLICT"))
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("socket closed")
	err := Internal("store unavailable", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
	assert.Contains(t, err.Error(), "store unavailable")
}
