// Package workspace wires the document stores, the interview controller and
// the assistant into the flows of the relationships, cards, chat and
// reports pages.
package workspace

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andrewsamuelsen/bowen/pkg/client"
	"github.com/andrewsamuelsen/bowen/pkg/interview"
	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/session"
	"github.com/andrewsamuelsen/bowen/pkg/utils"
)

var (
	ErrBusy             = errors.New("a reply is already being generated")
	ErrUnknownCard      = errors.New("unknown card")
	ErrUnknownFramework = errors.New("unknown framework")
)

// Streamer streams a completion.
type Streamer interface {
	Stream(ctx context.Context, req models.ChatRequest) iter.Seq2[string, error]
}

// AI is the non-streamed assistant.
type AI interface {
	interview.QuestionAsker
	Analysis(ctx context.Context, f models.Framework, graph, summary, recentChat string) (string, error)
	ClinicalNote(ctx context.Context, msgs []models.Message) (string, error)
}

// Remotes are the four persisted documents.
type Remotes struct {
	Graph    session.Remote[models.Graph]
	Cards    session.Remote[models.CardSessions]
	Chat     session.Remote[models.ChatTranscript]
	Analyses session.Remote[models.Analyses]
}

// Workspace holds one user's documents and runs the page flows.
type Workspace struct {
	Graph    *session.Store[models.Graph]
	Cards    *session.Store[models.CardSessions]
	Chat     *session.Store[models.ChatTranscript]
	Analyses *session.Store[models.Analyses]

	state    *State
	streamer Streamer
	ai       AI
	now      func() time.Time
	logger   *slog.Logger

	mu          sync.Mutex
	cardBusy    bool
	chatBusy    bool
	summarizing bool
}

// New creates a workspace backed by the API client c.
func New(c *client.Client, state *State, opts ...session.Option) *Workspace {
	return NewWith(Remotes{
		Graph:    c.Graph(),
		Cards:    c.Cards(),
		Chat:     c.Chat(),
		Analyses: c.Analyses(),
	}, c, c.Assistant(), state, opts...)
}

// NewWith creates a workspace from explicit dependencies.
func NewWith(r Remotes, streamer Streamer, ai AI, state *State, opts ...session.Option) *Workspace {
	if state == nil {
		state = NewState()
	}
	return &Workspace{
		Graph:    session.NewStore("graph", r.Graph, models.DefaultGraph(), opts...),
		Cards:    session.NewStore("cards", r.Cards, models.CardSessions{Sessions: []models.CardSession{}}, opts...),
		Chat:     session.NewStore("chat", r.Chat, models.ChatTranscript{Messages: []models.Message{}}, opts...),
		Analyses: session.NewStore("analyses", r.Analyses, models.Analyses{Analyses: map[models.Framework]models.SavedAnalysis{}}, opts...),
		state:    state,
		streamer: streamer,
		ai:       ai,
		now:      time.Now,
		logger:   utils.GetLogger().With("component", "workspace"),
	}
}

// State returns the shared application state.
func (w *Workspace) State() *State {
	return w.state
}

// Load fetches all documents concurrently. Each store opens its own save
// gate, so a failed document does not block saving the others.
func (w *Workspace) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return w.Graph.Load(ctx) })
	g.Go(func() error { return w.Cards.Load(ctx) })
	g.Go(func() error { return w.Chat.Load(ctx) })
	g.Go(func() error { return w.Analyses.Load(ctx) })
	err := g.Wait()

	if w.Cards.Loaded() {
		cards := w.Cards.Snapshot()
		daily, _ := models.CardByID(models.DailyCardID)
		w.state.SetDailyCompleted(models.CompletedToday(daily, cards.Session(models.DailyCardID), w.now()))
	}
	if w.Analyses.Loaded() {
		w.state.SetHasReports(len(w.Analyses.Snapshot().Analyses) > 0)
	}
	return err
}

// Flush saves every pending change now. A failed save does not cancel
// the others.
func (w *Workspace) Flush(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return w.Graph.Flush(ctx) })
	g.Go(func() error { return w.Cards.Flush(ctx) })
	g.Go(func() error { return w.Chat.Flush(ctx) })
	g.Go(func() error { return w.Analyses.Flush(ctx) })
	return g.Wait()
}

// Close drops pending saves.
func (w *Workspace) Close() {
	w.Graph.Close()
	w.Cards.Close()
	w.Chat.Close()
	w.Analyses.Close()
}

// acquire sets one of the busy flags, failing when it is already set.
func (w *Workspace) acquire(flag *bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if *flag {
		return false
	}
	*flag = true
	return true
}

func (w *Workspace) release(flag *bool) {
	w.mu.Lock()
	*flag = false
	w.mu.Unlock()
}

// streamInto runs req and writes the accumulated text through set after
// every fragment. onChunk, if set, sees each fragment.
func (w *Workspace) streamInto(ctx context.Context, req models.ChatRequest, set func(text string), onChunk func(string)) (string, error) {
	var full string
	for frag, err := range w.streamer.Stream(ctx, req) {
		if err != nil {
			return full, err
		}
		full += frag
		set(full)
		if onChunk != nil {
			onChunk(frag)
		}
	}
	return full, nil
}
