package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andrewsamuelsen/bowen/pkg/models"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel replays chunks, then fails with err when set.
type fakeModel struct {
	mu      sync.Mutex
	chunks  []*schema.Message
	err     error
	openErr error
	inputs  [][]*schema.Message
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, _ ...einoModel.Option) (*schema.Message, error) {
	return nil, errors.New("not used")
}

func (f *fakeModel) Stream(ctx context.Context, input []*schema.Message, _ ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	if f.err == nil {
		return schema.StreamReaderFromArray(f.chunks), nil
	}
	sr, sw := schema.Pipe[*schema.Message](len(f.chunks) + 1)
	go func() {
		defer sw.Close()
		for _, c := range f.chunks {
			sw.Send(c, nil)
		}
		sw.Send(nil, f.err)
	}()
	return sr, nil
}

func withUsage(text string, in, out int) *schema.Message {
	m := schema.AssistantMessage(text, nil)
	m.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: in, CompletionTokens: out}}
	return m
}

func newTestService(t *testing.T, provider string, fm *fakeModel, opts ...Option) (*Service, *[]string) {
	t.Helper()
	var built []string
	opts = append([]Option{WithFactory(func(_ context.Context, cfg models.ProviderConfig) (einoModel.BaseChatModel, error) {
		built = append(built, cfg.Model)
		return fm, nil
	})}, opts...)
	s, err := NewService(models.ProviderConfig{Provider: provider, APIKey: "k"}, opts...)
	require.NoError(t, err)
	return s, &built
}

func TestSanitize(t *testing.T) {
	in := []models.Turn{
		{Role: models.RoleModel, Text: "opening"},
		{Role: models.RoleUser, Text: "a"},
		{Role: models.RoleUser, Text: "b"},
		{Role: models.RoleModel, Text: "c"},
		{Role: "assistant", Text: "d"},
		{Role: models.RoleUser, Text: "e"},
	}
	got := Sanitize(in)
	assert.Equal(t, []models.Turn{
		{Role: models.RoleUser, Text: "a"},
		{Role: models.RoleModel, Text: "c"},
		{Role: models.RoleUser, Text: "e"},
	}, got)

	assert.Empty(t, Sanitize([]models.Turn{{Role: models.RoleModel, Text: "x"}}))
	assert.Empty(t, Sanitize(nil))
}

func TestMessages(t *testing.T) {
	msgs := Messages(models.ChatRequest{
		Message:           "now",
		SystemInstruction: "be kind",
		History:           []models.Turn{{Role: models.RoleUser, Text: "q"}, {Role: models.RoleModel, Text: "a"}},
	})
	require.Len(t, msgs, 4)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Equal(t, "now", msgs[3].Content)

	msgs = Messages(models.ChatRequest{Message: "only"})
	require.Len(t, msgs, 1)
	assert.Equal(t, schema.User, msgs[0].Role)
}

func TestStreamChunksAndUsage(t *testing.T) {
	fm := &fakeModel{chunks: []*schema.Message{
		schema.AssistantMessage("Hel", nil),
		schema.AssistantMessage("", nil),
		schema.AssistantMessage("lo", nil),
		withUsage("", 12, 3),
	}}
	s, _ := newTestService(t, models.ProviderGemini, fm)

	var got strings.Builder
	usage, err := s.Stream(context.Background(), models.ChatRequest{Message: "hi"}, func(c string) error {
		got.WriteString(c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.String())
	assert.Equal(t, models.Usage{InputTokens: 12, OutputTokens: 3}, usage)
}

func TestStreamMidwayError(t *testing.T) {
	fm := &fakeModel{chunks: []*schema.Message{schema.AssistantMessage("part", nil)}, err: errors.New("connection reset")}
	s, _ := newTestService(t, models.ProviderGemini, fm)

	var got []string
	_, err := s.Stream(context.Background(), models.ChatRequest{Message: "hi"}, func(c string) error {
		got = append(got, c)
		return nil
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrHighDemand))
	assert.Equal(t, []string{"part"}, got)
}

func TestStreamOverloadMapsToHighDemand(t *testing.T) {
	for _, msg := range []string{"Error 503: service unavailable", "overloaded_error", "The model is experiencing high demand"} {
		fm := &fakeModel{openErr: errors.New(msg)}
		s, _ := newTestService(t, models.ProviderGemini, fm)
		_, err := s.Stream(context.Background(), models.ChatRequest{Message: "hi"}, func(string) error { return nil })
		assert.ErrorIs(t, err, ErrHighDemand, msg)
	}
}

func TestOpenCircuitMapsToHighDemand(t *testing.T) {
	fm := &fakeModel{openErr: errors.New("boom")}
	s, _ := newTestService(t, models.ProviderGemini, fm, WithBreaker(BreakerSettings{
		MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, MinRequests: 2, FailureRatio: 0.5,
	}))
	noop := func(string) error { return nil }
	for i := 0; i < 2; i++ {
		_, err := s.Stream(context.Background(), models.ChatRequest{Message: "hi"}, noop)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrHighDemand)
	}
	_, err := s.Stream(context.Background(), models.ChatRequest{Message: "hi"}, noop)
	assert.ErrorIs(t, err, ErrHighDemand)
	assert.Len(t, fm.inputs, 2)
}

func TestChunkCallbackErrorStops(t *testing.T) {
	fm := &fakeModel{chunks: []*schema.Message{
		schema.AssistantMessage("a", nil),
		schema.AssistantMessage("b", nil),
	}}
	s, _ := newTestService(t, models.ProviderGemini, fm)
	gone := errors.New("client gone")
	calls := 0
	_, err := s.Stream(context.Background(), models.ChatRequest{Message: "hi"}, func(string) error {
		calls++
		return gone
	})
	assert.ErrorIs(t, err, gone)
	assert.ErrorIs(t, err, ErrChunkRejected)
	assert.Equal(t, 1, calls)
}

func TestModelHint(t *testing.T) {
	fm := &fakeModel{chunks: []*schema.Message{schema.AssistantMessage("ok", nil)}}
	noop := func(string) error { return nil }

	claudeSvc, built := newTestService(t, models.ProviderClaude, fm)
	assert.Equal(t, "claude-sonnet-4-6", claudeSvc.Model(""))
	assert.Equal(t, "claude-opus-4-1", claudeSvc.Model("claude-opus-4-1"))
	assert.Equal(t, "claude-sonnet-4-6", claudeSvc.Model("gpt-4o"))

	_, err := claudeSvc.Stream(context.Background(), models.ChatRequest{Message: "hi", Model: "claude-opus-4-1"}, noop)
	require.NoError(t, err)
	_, err = claudeSvc.Stream(context.Background(), models.ChatRequest{Message: "hi", Model: "claude-opus-4-1"}, noop)
	require.NoError(t, err)
	assert.Equal(t, []string{"claude-opus-4-1"}, *built)

	geminiSvc, _ := newTestService(t, models.ProviderGemini, fm)
	assert.Equal(t, "gemini-3-pro-preview", geminiSvc.Model("claude-sonnet-4-6"))
}

func TestUnknownProvider(t *testing.T) {
	_, err := NewService(models.ProviderConfig{Provider: "watson"})
	assert.Error(t, err)
}
