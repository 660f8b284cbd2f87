package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewsamuelsen/bowen/pkg/auth"
	"github.com/andrewsamuelsen/bowen/pkg/config"
	"github.com/andrewsamuelsen/bowen/pkg/event"
	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/service"
	"github.com/andrewsamuelsen/bowen/pkg/store"
)

type staticProvider models.ProviderInfo

func (p staticProvider) Info() models.ProviderInfo { return models.ProviderInfo(p) }

func newTestServer(t *testing.T) (*Server, *auth.HS256) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	docs, err := store.Open(context.Background(), store.Options{DSN: filepath.Join(t.TempDir(), "bowen.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	signer, err := auth.NewHS256("router-secret", "bowen")
	require.NoError(t, err)
	emitter := event.NewEmitter()
	documents := service.NewDocumentService(docs, emitter)

	return NewServer(&config.AppConfig{}, Deps{
		Documents: documents,
		Chat:      service.NewChatService(nil, documents, nil),
		Provider:  staticProvider{Provider: "gemini", Model: "gemini-3-pro-preview", Circuit: "closed"},
		Verifier:  signer,
		Emitter:   emitter,
	}), signer
}

func TestServerPublicRoutes(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestServerAPIRequiresAuth(t *testing.T) {
	s, signer := newTestServer(t)

	for _, path := range []string{"/api/graph", "/api/user/metrics", "/api/provider", "/api/events/ws"} {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "Unauthorized", strings.TrimSpace(w.Body.String()), path)
	}

	tok, err := signer.Sign("u1", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/provider", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var info models.ProviderInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "gemini", info.Provider)
	assert.Equal(t, "closed", info.Circuit)
}

func TestServerCORS(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/graph", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
