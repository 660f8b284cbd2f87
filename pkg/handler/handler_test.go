package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andrewsamuelsen/bowen/pkg/auth"
	"github.com/andrewsamuelsen/bowen/pkg/event"
	"github.com/andrewsamuelsen/bowen/pkg/llm"
	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/service"
	"github.com/andrewsamuelsen/bowen/pkg/store"
	"github.com/andrewsamuelsen/bowen/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStreamer struct {
	chunks []string
	err    error
	usage  models.Usage
	got    []models.ChatRequest
}

func (f *fakeStreamer) Stream(_ context.Context, req models.ChatRequest, onChunk func(string) error) (models.Usage, error) {
	f.got = append(f.got, req)
	for _, c := range f.chunks {
		if err := onChunk(c); err != nil {
			return models.Usage{}, err
		}
	}
	return f.usage, f.err
}

type fixture struct {
	engine   *gin.Engine
	docs     *service.DocumentService
	streamer *fakeStreamer
	token    func(user string) string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s, err := store.Open(context.Background(), store.Options{DSN: filepath.Join(t.TempDir(), "bowen.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	signer, err := auth.NewHS256("test-secret", "")
	require.NoError(t, err)
	logger := utils.GetLogger()
	docs := service.NewDocumentService(s, event.NewEmitter())
	streamer := &fakeStreamer{}

	r := gin.New()
	r.Use(Recovery(logger))
	api := r.Group("/api", auth.Middleware(signer))
	NewDocumentHandler(docs, logger).RegisterRoutes(api)
	NewChatHandler(service.NewChatService(streamer, docs, nil), logger).RegisterRoutes(api)

	return &fixture{
		engine:   r,
		docs:     docs,
		streamer: streamer,
		token: func(user string) string {
			tok, err := signer.Sign(user, time.Hour)
			require.NoError(t, err)
			return tok
		},
	}
}

func (f *fixture) do(method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+f.token(user))
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestDocumentRoutes(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/graph", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"nodes":[],"edges":[]}`, w.Body.String())

	w = f.do(http.MethodPost, "/api/cards", "u1", `{"sessions":[{"cardId":"blind_spots","messages":[]}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/cards", "u1", "")
	assert.JSONEq(t, `{"sessions":[{"cardId":"blind_spots","messages":[]}]}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/cards", "u2", "")
	assert.JSONEq(t, `{"sessions":[]}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/synthesis", "u1", "")
	assert.JSONEq(t, `{"analyses":{}}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/chat/history", "u1", "")
	assert.JSONEq(t, `{"messages":[],"clinicalSummary":""}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/user/metrics", "u1", "")
	assert.JSONEq(t, `{"totalInputTokens":0,"totalOutputTokens":0,"lastUpdated":null}`, w.Body.String())
}

func TestDocumentRouteErrors(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/graph", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", w.Body.String())

	w = f.do(http.MethodPost, "/api/graph", "u1", `{"nodes":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestChatStreamsText(t *testing.T) {
	f := newFixture(t)
	f.streamer.chunks = []string{"Hello", ", ", "world"}
	f.streamer.usage = models.Usage{InputTokens: 10, OutputTokens: 3}

	w := f.do(http.MethodPost, "/api/chat", "u1", `{"message":"hi","history":[{"role":"user","text":"a"}],"systemInstruction":"sys","model":"claude-opus-4-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Hello, world", w.Body.String())

	require.Len(t, f.streamer.got, 1)
	assert.Equal(t, "claude-opus-4-1", f.streamer.got[0].Model)
	assert.Equal(t, "sys", f.streamer.got[0].SystemInstruction)

	m, err := f.docs.Usage(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), m.TotalInputTokens)
	assert.Equal(t, int64(1), m.TotalRequests)
}

func TestChatErrorsBeforeFirstChunk(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/chat", "u1", `{"history":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/chat", "u1", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.streamer.err = fmt.Errorf("%w: upstream 503", llm.ErrHighDemand)
	w = f.do(http.MethodPost, "/api/chat", "u1", `{"message":"hi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, llm.HighDemandMessage, w.Body.String())

	f.streamer.err = errors.New("invalid api key")
	w = f.do(http.MethodPost, "/api/chat", "u1", `{"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "invalid api key", w.Body.String())

	m, err := f.docs.Usage(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, m.TotalRequests)
}

func TestChatErrorAfterFirstChunkAbortsBody(t *testing.T) {
	f := newFixture(t)
	f.streamer.chunks = []string{"partial"}
	f.streamer.err = errors.New("stream broke")

	srv := httptest.NewServer(f.engine)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/chat", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+f.token("u1"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	assert.Error(t, err)
	assert.Equal(t, "partial", string(body))
}
