package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/andrewsamuelsen/bowen/pkg/db"
	"github.com/andrewsamuelsen/bowen/pkg/event"
	"github.com/andrewsamuelsen/bowen/pkg/metrics"
	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/store"
	"github.com/andrewsamuelsen/bowen/pkg/utils"
)

var ErrInvalidDocument = errors.New("invalid document")

// Collection describes one per-user document kind: the fields its body
// carries and their values when nothing is stored.
type Collection struct {
	Name     string
	Fields   []string
	Defaults map[string]json.RawMessage
	// Unwrap makes the HTTP body the value of the single field itself.
	Unwrap bool

	check  func(fields map[string]json.RawMessage) error
	onSave func(logger *slog.Logger, fields map[string]json.RawMessage)
}

var (
	Graphs = Collection{
		Name:     db.CollectionGraphs,
		Fields:   []string{"data"},
		Defaults: map[string]json.RawMessage{"data": json.RawMessage(`{"nodes":[],"edges":[]}`)},
		Unwrap:   true,
		check:    checkField[models.Graph]("data"),
	}
	Cards = Collection{
		Name:     db.CollectionCards,
		Fields:   []string{"sessions"},
		Defaults: map[string]json.RawMessage{"sessions": json.RawMessage(`[]`)},
		check:    checkField[[]models.CardSession]("sessions"),
	}
	Chats = Collection{
		Name:   db.CollectionChats,
		Fields: []string{"messages", "clinicalSummary"},
		Defaults: map[string]json.RawMessage{
			"messages":        json.RawMessage(`[]`),
			"clinicalSummary": json.RawMessage(`""`),
		},
		check:  checkField[[]models.Message]("messages", "clinicalSummary"),
		onSave: logSummaryProgress,
	}
	Analyses = Collection{
		Name:     db.CollectionAnalyses,
		Fields:   []string{"analyses"},
		Defaults: map[string]json.RawMessage{"analyses": json.RawMessage(`{}`)},
		check:    checkField[map[models.Framework]models.SavedAnalysis]("analyses"),
	}
)

// checkField decodes the first field as T and every further field as a
// string.
func checkField[T any](field string, stringFields ...string) func(map[string]json.RawMessage) error {
	return func(fields map[string]json.RawMessage) error {
		var v T
		if err := json.Unmarshal(fields[field], &v); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		for _, f := range stringFields {
			var s string
			if err := json.Unmarshal(fields[f], &s); err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
		}
		return nil
	}
}

func logSummaryProgress(logger *slog.Logger, fields map[string]json.RawMessage) {
	var msgs []models.Message
	if err := json.Unmarshal(fields["messages"], &msgs); err != nil {
		return
	}
	n := 0
	for _, m := range msgs {
		if !m.Summarized {
			n++
		}
	}
	logger.Info("Chat history synced",
		"unsummarized", fmt.Sprintf("%d/%d", n, models.SummaryThreshold),
		"summarizing", n >= models.SummaryThreshold)
}

// DocumentService reads and writes the per-user documents.
type DocumentService struct {
	store   store.Documents
	emitter *event.Emitter
	logger  *slog.Logger
	now     func() time.Time
}

func NewDocumentService(s store.Documents, emitter *event.Emitter) *DocumentService {
	return &DocumentService{
		store:   s,
		emitter: emitter,
		logger:  utils.GetLogger().With("component", "documents"),
		now:     time.Now,
	}
}

// Get returns the HTTP body of a user's document, filled with defaults for
// missing or null fields.
func (s *DocumentService) Get(ctx context.Context, c Collection, userID string) (body json.RawMessage, err error) {
	defer func() { metrics.DocumentOpsTotal.WithLabelValues(c.Name, "load", metrics.Status(err)).Inc() }()

	fields := make(map[string]json.RawMessage, len(c.Fields))
	raw, ok, err := s.store.Get(ctx, c.Name, userID)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode stored %s: %w", c.Name, err)
		}
	}

	out := make(map[string]json.RawMessage, len(c.Fields))
	for _, f := range c.Fields {
		v := fields[f]
		if isNull(v) {
			v = c.Defaults[f]
		}
		out[f] = v
	}
	if c.Unwrap {
		return out[c.Fields[0]], nil
	}
	return json.Marshal(out)
}

// Put validates and stores the HTTP body of a user's document. Fields the
// collection does not know are dropped; missing ones are stored as their
// default.
func (s *DocumentService) Put(ctx context.Context, c Collection, userID string, body []byte) (err error) {
	defer func() { metrics.DocumentOpsTotal.WithLabelValues(c.Name, "save", metrics.Status(err)).Inc() }()

	fields, err := s.fields(c, body)
	if err != nil {
		return err
	}
	if c.check != nil {
		if err := c.check(fields); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	}
	if c.onSave != nil {
		c.onSave(s.logger, fields)
	}

	b, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, c.Name, userID, b); err != nil {
		return err
	}
	s.emitter.Emit(event.DocumentSavedEvent{UserID: userID, Collection: c.Name})
	return nil
}

func (s *DocumentService) fields(c Collection, body []byte) (map[string]json.RawMessage, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidDocument)
	}
	in := map[string]json.RawMessage{}
	if c.Unwrap {
		in[c.Fields[0]] = body
	} else if err := json.Unmarshal(body, &in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, store.ErrNotObject)
	}

	out := make(map[string]json.RawMessage, len(c.Fields))
	for _, f := range c.Fields {
		v := in[f]
		if isNull(v) {
			v = c.Defaults[f]
		}
		out[f] = v
	}
	return out, nil
}

func isNull(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

// Usage returns the user's token totals, or zero totals when none exist.
func (s *DocumentService) Usage(ctx context.Context, userID string) (models.UserMetrics, error) {
	m, _, err := s.store.Usage(ctx, userID)
	if err != nil {
		return models.UserMetrics{}, err
	}
	return m, nil
}

// RecordUsage adds a completed call to the user's totals. Failures are
// logged and never surface to the caller.
func (s *DocumentService) RecordUsage(ctx context.Context, userID string, u models.Usage) {
	if err := s.store.RecordUsage(ctx, userID, u, s.now()); err != nil {
		s.logger.Error("Failed to record token usage", "user", userID, "error", err)
		return
	}
	s.emitter.Emit(event.UsageRecordedEvent{UserID: userID, InputTokens: u.InputTokens, OutputTokens: u.OutputTokens})
}
