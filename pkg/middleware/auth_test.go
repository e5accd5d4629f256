package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acceptingVerifier(identity *Identity) TokenVerifier {
	return func(token string) *Identity {
		if token == "valid-token" {
			return identity
		}
		return nil
	}
}

func identityEchoHandler(t *testing.T, got **Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_ValidToken_AttachesIdentity(t *testing.T) {
	want := &Identity{UserID: 42, Username: "alice", Email: "alice@example.com"}
	var got *Identity

	handler := Auth(acceptingVerifier(want))(identityEchoHandler(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, "alice", got.Username)
}

func TestAuth_RejectsUniformly(t *testing.T) {
	// Missing header, malformed header, wrong scheme, and invalid token must
	// produce the identical unauthorized outcome.
	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"missing token", "Bearer"},
		{"invalid token", "Bearer garbage"},
	}

	var bodies []string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			handler := Auth(acceptingVerifier(&Identity{UserID: 1}))(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					called = true
				}))

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, called, "protected handler must not run")
			bodies = append(bodies, rec.Body.String())
		})
	}

	for _, body := range bodies[1:] {
		assert.Equal(t, bodies[0], body, "rejection body must not reveal the failure sub-case")
	}
}

func TestAuth_BearerSchemeIsCaseInsensitive(t *testing.T) {
	var got *Identity
	handler := Auth(acceptingVerifier(&Identity{UserID: 7}))(identityEchoHandler(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "bearer valid-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
}

func TestOptionalAuth_ValidToken_AttachesIdentity(t *testing.T) {
	want := &Identity{UserID: 9, Username: "bob"}
	var got *Identity

	handler := OptionalAuth(acceptingVerifier(want))(identityEchoHandler(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/problems", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, int64(9), got.UserID)
}

func TestOptionalAuth_NeverRejects(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"malformed header", "Bearersansspace"},
		{"invalid token", "Bearer expired"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got *Identity
			handler := OptionalAuth(acceptingVerifier(&Identity{UserID: 1}))(identityEchoHandler(t, &got))

			req := httptest.NewRequest(http.MethodGet, "/problems", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Nil(t, got, "request must proceed anonymously")
		})
	}
}

func TestIdentityFromContext_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, IdentityFromContext(req.Context()))
}
