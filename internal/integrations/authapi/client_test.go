package authapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewClient_Validates(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
}

func TestUserFromToken_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/user", r.URL.Path)
		require.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "user-1", "user_metadata": {"questionnaire": {"gender": "male"}}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	user, err := c.UserFromToken(context.Background(), "token-123")
	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)

	q, ok := user.Metadata["questionnaire"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "male", q["gender"])
}

func TestUserFromToken_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"msg": "invalid JWT"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.UserFromToken(context.Background(), "bad-token")
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusUnauthorized, statusErr.HTTPStatusCode())
}

func TestUserFromToken_EmptyToken(t *testing.T) {
	c, err := NewClient("http://localhost:9")
	require.NoError(t, err)

	_, err = c.UserFromToken(context.Background(), "  ")
	require.Error(t, err)
}

func TestUserFromToken_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.UserFromToken(context.Background(), "token-123")
	require.Error(t, err)
}
