package httpserver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradecrafter/internal/auth"
	"tradecrafter/internal/httpserver"
	"tradecrafter/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	token, ok := httpserver.BearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "abc123", token)

	req = httptest.NewRequest(http.MethodGet, "/?token=qrs789", nil)
	token, ok = httpserver.BearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "qrs789", token)

	// a malformed header wins over a query fallback
	req = httptest.NewRequest(http.MethodGet, "/?token=qrs789", nil)
	req.Header.Set("Authorization", "Basic abc123")
	_, ok = httpserver.BearerToken(req)
	assert.False(t, ok)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok = httpserver.BearerToken(req)
	assert.False(t, ok)
}

func TestWithAuth(t *testing.T) {
	ctx := context.Background()
	svc := auth.NewService(storage.NewMemory(), "tradecrafter", []byte("test-secret"), time.Hour)
	u, err := svc.Register(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	token, err := svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	var gotID string
	h := httpserver.WithAuth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := httpserver.UserID(r)
		require.True(t, ok)
		gotID = id
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, u.ID, gotID)

	// websocket-style query token goes through the same gate
	gotID = ""
	req = httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, u.ID, gotID)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
