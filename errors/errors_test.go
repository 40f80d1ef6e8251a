package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *AuthError
		want int
	}{
		{NewValidation("bad email"), http.StatusBadRequest},
		{NewBadRequest("Email already registered"), http.StatusBadRequest},
		{NewUnauthorized("Invalid email or password"), http.StatusUnauthorized},
		{NewNotFound("User not found"), http.StatusNotFound},
		{NewConflict("Email already registered"), http.StatusConflict},
		{NewUpstream("provider down", errors.New("dial tcp")), http.StatusBadGateway},
		{NewInternal("boom", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestAuthError_ChainHelpers(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("login: %w", NewUpstream("Failed to load user from google", cause))

	authErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindUpstream, authErr.Kind)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, &AuthError{Kind: KindUpstream})
	assert.NotErrorIs(t, err, &AuthError{Kind: KindUnauthorized})

	assert.Equal(t, KindUpstream, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestSafeMessage(t *testing.T) {
	assert.Equal(t, "User not found", SafeMessage(NewNotFound("User not found")))
	assert.Equal(t, "authentication failed", SafeMessage(errors.New("mongo: socket closed")))
	assert.Equal(t, "authentication failed", SafeMessage(&AuthError{Kind: KindUnauthorized}))
}

func TestAuthError_JSONHidesCause(t *testing.T) {
	body, err := json.Marshal(NewInternal("failed to issue token", errors.New("rsa: key too short")))
	require.NoError(t, err)

	assert.JSONEq(t, `{"error":"server_error","error_description":"failed to issue token"}`, string(body))
}

func TestAuthError_Error(t *testing.T) {
	assert.Equal(t, "unauthorized: token invalid", NewUnauthorized("token invalid").Error())
	assert.Equal(t, "upstream_error: x: y", NewUpstream("x", errors.New("y")).Error())
}
