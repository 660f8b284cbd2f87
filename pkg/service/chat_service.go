// Chat Service - proxies completions to the model provider
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andrewsamuelsen/bowen/pkg/metrics"
	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/ratelimit"
	"github.com/andrewsamuelsen/bowen/pkg/utils"
)

var (
	ErrInvalidRequest = errors.New("invalid chat request")
	ErrRateLimited    = errors.New("too many requests")
)

// clinicalMarker identifies the summarization requests of the client.
const clinicalMarker = "clinical supervisor"

// Streamer is the model side of the proxy (implemented by llm.Service).
type Streamer interface {
	Stream(ctx context.Context, req models.ChatRequest, onChunk func(string) error) (models.Usage, error)
}

// UsageRecorder stores token usage (implemented by DocumentService).
type UsageRecorder interface {
	RecordUsage(ctx context.Context, userID string, u models.Usage)
}

// ChatService handles completion requests of signed-in users
type ChatService struct {
	llm     Streamer
	usage   UsageRecorder
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// NewChatService creates a new chat service. A nil limiter allows every
// request.
func NewChatService(llm Streamer, usage UsageRecorder, limiter *ratelimit.Limiter) *ChatService {
	return &ChatService{
		llm:     llm,
		usage:   usage,
		limiter: limiter,
		logger:  utils.GetLogger().With("component", "chat"),
	}
}

// Validate checks a request before any byte of the response is written.
func (s *ChatService) Validate(ctx context.Context, userID string, req models.ChatRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	ok, err := s.limiter.Allow(ctx, userID)
	if err != nil {
		s.logger.Warn("Rate limiter unavailable", "error", err)
	}
	if !ok {
		metrics.RateLimitedTotal.Inc()
		return ErrRateLimited
	}
	return nil
}

// Complete streams the reply to req through onChunk, then records the
// token usage of the call for userID.
func (s *ChatService) Complete(ctx context.Context, userID string, req models.ChatRequest, onChunk func(string) error) error {
	clinical := strings.Contains(req.SystemInstruction, clinicalMarker)
	var text strings.Builder

	s.logger.Debug("Chat request", "user", userID, "history", len(req.History), "model", req.Model)
	usage, err := s.llm.Stream(ctx, req, func(chunk string) error {
		if clinical {
			text.WriteString(chunk)
		}
		return onChunk(chunk)
	})
	if err != nil {
		return err
	}

	if clinical {
		s.logger.Info("New clinical summary generated", "user", userID, "summary", text.String())
	}
	if !usage.Empty() {
		s.usage.RecordUsage(context.WithoutCancel(ctx), userID, usage)
	}
	return nil
}
