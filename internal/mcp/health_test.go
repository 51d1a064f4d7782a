package mcp

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/news-rag/internal/rag"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		health     error
		wantCode   int
		wantStatus string
		wantIndex  string
	}{
		{"ready", nil, http.StatusOK, "healthy", "ready"},
		{"not built", rag.ErrIndexNotBuilt, http.StatusServiceUnavailable, "unhealthy", "not_built"},
		{"backend down", errors.New("connection refused"), http.StatusServiceUnavailable, "unhealthy", "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(&fakeSession{health: tt.health})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantIndex, resp.Index)
			assert.NotEmpty(t, resp.Timestamp)
		})
	}
}

func TestRouter(t *testing.T) {
	session := &fakeSession{}
	router := NewRouter(NewServer(&Config{Session: session}), session, &HTTPHandlerOptions{Stateless: true})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
