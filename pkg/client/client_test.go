package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/prompt"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(DefaultConfig(srv.URL), StaticToken("tok"))
}

func TestStreamDoublesNewlinesAndRestarts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var req models.ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Message)

		f := w.(http.Flusher)
		for _, part := range []string{"line one\n", "line two", "\nend"} {
			_, _ = w.Write([]byte(part))
			f.Flush()
		}
	})

	seq := c.Stream(context.Background(), models.ChatRequest{Message: "hello"})
	got, err := Collect(seq)
	require.NoError(t, err)
	assert.Equal(t, "line one\n\nline two\n\nend", got)

	again, err := Collect(seq)
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.EqualValues(t, 2, calls.Load())
}

func TestStreamStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "The model is overloaded due to high demand (503)", http.StatusServiceUnavailable)
	})
	_, err := Collect(c.Stream(context.Background(), models.ChatRequest{Message: "x"}))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, "The model is overloaded due to high demand (503)", se.Error())
	assert.True(t, IsHighDemand(err))
	assert.False(t, IsHighDemand(&StatusError{Code: 500, Message: "boom"}))
}

func TestAssistantKeepsRawText(t *testing.T) {
	var got models.ChatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("a\nb"))
	})
	a := c.Assistant()

	text, err := a.Analysis(context.Background(), models.FrameworkMBTI, "G", "", "")
	require.NoError(t, err)
	assert.Equal(t, "a\nb", text)
	assert.Equal(t, prompt.ReportModel, got.Model)
	assert.Equal(t, prompt.AnalysisMessage, got.Message)
	assert.NotNil(t, got.History)

	_, err = a.Question(context.Background(), prompt.Question{Tags: []string{"x"}, Index: 1, Total: 5})
	require.NoError(t, err)
	assert.Empty(t, got.Model)
	assert.Equal(t, prompt.QuestionMessage, got.Message)
}

func TestGraphDocumentDefaults(t *testing.T) {
	var posted string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			b, _ := io.ReadAll(r.Body)
			posted = string(b)
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"nodes":[],"edges":[]}`))
	})

	g, err := c.Graph().Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultGraph(), g)

	require.NoError(t, c.Graph().Save(context.Background(), g))
	assert.Contains(t, posted, `"id":"me"`)
}

func TestDocumentErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
	_, err := c.Cards().Load(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
}

func TestReadTextKeepsRunesWhole(t *testing.T) {
	r := &chunkReader{parts: [][]byte{[]byte("caf\xc3"), []byte("\xa9 ok")}}
	var frags []string
	for f, err := range readText(r) {
		require.NoError(t, err)
		frags = append(frags, f)
	}
	assert.Equal(t, []string{"caf", "é ok"}, frags)
}

type deadlineRecorder struct {
	next        http.RoundTripper
	hadDeadline atomic.Bool
}

func (d *deadlineRecorder) RoundTrip(r *http.Request) (*http.Response, error) {
	if _, ok := r.Context().Deadline(); ok {
		d.hadDeadline.Store(true)
	}
	return d.next.RoundTrip(r)
}

func TestDocumentRequestsHaveNoDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"sessions":[]}`))
	}))
	t.Cleanup(srv.Close)
	rt := &deadlineRecorder{next: http.DefaultTransport}
	c := New(DefaultConfig(srv.URL), StaticToken("tok")).WithHTTPClient(&http.Client{Transport: rt})

	doc, err := c.Cards().Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Cards().Save(context.Background(), doc))
	assert.False(t, rt.hadDeadline.Load())
}

type chunkReader struct {
	parts [][]byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.parts) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.parts[0])
	c.parts = c.parts[1:]
	return n, nil
}
