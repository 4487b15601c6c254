package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
	}{
		{ValidationError("bad duration"), http.StatusBadRequest},
		{UnauthorizedError("login required"), http.StatusUnauthorized},
		{NotFoundError("group not found"), http.StatusNotFound},
		{ConflictError("slug taken"), http.StatusConflict},
		{InternalError("query failed", nil), http.StatusInternalServerError},
		{ExternalError("cdn upload failed", nil), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Type), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := ExternalError("cdn upload failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAsStructuredError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, AsStructuredError(nil))
	})

	t.Run("structured error passes through", func(t *testing.T) {
		original := NotFoundError("media not found")
		assert.Same(t, original, AsStructuredError(original))
	})

	t.Run("wrapped structured error is found", func(t *testing.T) {
		original := ConflictError("slug taken")
		wrapped := fmt.Errorf("create group: %w", original)
		assert.Same(t, original, AsStructuredError(wrapped))
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		err := AsStructuredError(fmt.Errorf("boom"))
		require.NotNil(t, err)
		assert.Equal(t, TypeInternal, err.Type)
	})
}
