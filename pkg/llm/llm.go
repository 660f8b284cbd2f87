// Package llm proxies chat completions to the configured model provider.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/andrewsamuelsen/bowen/pkg/metrics"
	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/utils"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sony/gobreaker"
)

var (
	// ErrHighDemand means the provider is overloaded or the circuit is open.
	ErrHighDemand = errors.New("model overloaded due to high demand")
	// ErrChunkRejected wraps errors returned by the chunk callback.
	ErrChunkRejected = errors.New("chunk rejected")
)

// HighDemandMessage is the body of the 503 reply.
const HighDemandMessage = "The model is overloaded due to high demand (503)"

// BreakerSettings configures the upstream circuit.
type BreakerSettings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerSettings returns the circuit defaults.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

// Service streams completions from one configured provider.
type Service struct {
	config  models.ProviderConfig
	preset  models.ProviderPreset
	factory Factory
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger

	mu     sync.Mutex
	models map[string]einoModel.BaseChatModel
}

// Option customizes a Service.
type Option func(*Service)

// WithFactory replaces the provider switch, mostly for tests.
func WithFactory(f Factory) Option {
	return func(s *Service) { s.factory = f }
}

// WithBreaker overrides the circuit settings.
func WithBreaker(b BreakerSettings) Option {
	return func(s *Service) { s.breaker = newBreaker(s.config.Provider, b, s.logger) }
}

// NewService validates config against its provider preset.
func NewService(config models.ProviderConfig, opts ...Option) (*Service, error) {
	if err := config.Normalize(); err != nil {
		return nil, err
	}
	preset, err := models.Preset(config.Provider)
	if err != nil {
		return nil, err
	}
	s := &Service{
		config:  config,
		preset:  preset,
		factory: NewChatModel,
		logger:  utils.GetLogger().With("component", "llm", "provider", config.Provider),
		models:  make(map[string]einoModel.BaseChatModel),
	}
	s.breaker = newBreaker(config.Provider, DefaultBreakerSettings(), s.logger)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func newBreaker(name string, b BreakerSettings, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: b.MaxRequests,
		Interval:    b.Interval,
		Timeout:     b.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= b.MinRequests && failureRatio >= b.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "from", from.String(), "to", to.String())
			metrics.CircuitState.WithLabelValues(name).Set(float64(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrChunkRejected)
		},
	})
}

// Provider returns the active provider id.
func (s *Service) Provider() string {
	return s.config.Provider
}

// Info describes the active provider without its credentials.
func (s *Service) Info() models.ProviderInfo {
	return models.ProviderInfo{
		Provider: s.preset.ID,
		Name:     s.preset.Name,
		Model:    s.config.Model,
		Models:   s.preset.Models,
		Circuit:  s.breaker.State().String(),
	}
}

// Model resolves the model id of a request. The hint only applies to the
// claude provider and only when it names a claude model.
func (s *Service) Model(hint string) string {
	if hint != "" && s.config.Provider == models.ProviderClaude && s.preset.HasModel(hint) {
		return hint
	}
	return s.config.Model
}

func (s *Service) chatModel(ctx context.Context, model string) (einoModel.BaseChatModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.models[model]; ok {
		return m, nil
	}
	cfg := s.config
	cfg.Model = model
	m, err := s.factory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.models[model] = m
	return m, nil
}

// Stream sends req to the provider and hands every non-empty text chunk to
// onChunk as it arrives. It returns the token usage reported by the last
// chunk carrying one. An error from onChunk stops the stream.
func (s *Service) Stream(ctx context.Context, req models.ChatRequest, onChunk func(string) error) (models.Usage, error) {
	model := s.Model(req.Model)
	chatModel, err := s.chatModel(ctx, model)
	if err != nil {
		return models.Usage{}, err
	}

	start := time.Now()
	var usage models.Usage
	_, err = s.breaker.Execute(func() (any, error) {
		reader, err := chatModel.Stream(ctx, Messages(req))
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		for {
			msg, err := reader.Recv()
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			if msg == nil {
				continue
			}
			if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
				usage = models.Usage{
					InputTokens:  int64(msg.ResponseMeta.Usage.PromptTokens),
					OutputTokens: int64(msg.ResponseMeta.Usage.CompletionTokens),
				}
			}
			if msg.Content == "" {
				continue
			}
			if err := onChunk(msg.Content); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrChunkRejected, err)
			}
		}
	})
	err = classify(err)

	metrics.ChatStreamDuration.WithLabelValues(s.config.Provider).Observe(time.Since(start).Seconds())
	metrics.ChatStreamsTotal.WithLabelValues(s.config.Provider, metrics.Status(err)).Inc()
	if err != nil {
		s.logger.Error("Chat stream failed", "model", model, "error", err)
		return usage, err
	}
	metrics.TokensTotal.WithLabelValues(s.config.Provider, "input").Add(float64(usage.InputTokens))
	metrics.TokensTotal.WithLabelValues(s.config.Provider, "output").Add(float64(usage.OutputTokens))
	return usage, nil
}

var overloadMarkers = []string{"503", "overloaded", "high demand", "unavailable", "529"}

// classify maps breaker rejections and provider overload errors to
// ErrHighDemand.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrChunkRejected) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrHighDemand, err)
	}
	msg := strings.ToLower(err.Error())
	for _, m := range overloadMarkers {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %w", ErrHighDemand, err)
		}
	}
	return err
}

// Messages builds the provider input: the system instruction, the
// sanitized history and the new user message.
func Messages(req models.ChatRequest) []*schema.Message {
	history := Sanitize(req.History)
	out := make([]*schema.Message, 0, len(history)+2)
	if req.SystemInstruction != "" {
		out = append(out, schema.SystemMessage(req.SystemInstruction))
	}
	for _, t := range history {
		if t.Role == models.RoleUser {
			out = append(out, schema.UserMessage(t.Text))
		} else {
			out = append(out, schema.AssistantMessage(t.Text, nil))
		}
	}
	return append(out, schema.UserMessage(req.Message))
}

// Sanitize makes a history acceptable to providers that require strictly
// alternating turns starting with the user: leading model turns are
// dropped, and a turn with the same role as the previous kept one is
// dropped rather than merged. Unknown roles count as model turns.
func Sanitize(history []models.Turn) []models.Turn {
	out := make([]models.Turn, 0, len(history))
	var last models.Role
	for _, t := range history {
		role := models.RoleModel
		if t.Role == models.RoleUser {
			role = models.RoleUser
		}
		if len(out) == 0 && role != models.RoleUser {
			continue
		}
		if role == last {
			continue
		}
		out = append(out, models.Turn{Role: role, Text: t.Text})
		last = role
	}
	return out
}
