package workspace

import (
	"context"
	"fmt"

	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/prompt"
)

// RunReport generates and stores a framework report over the graph, the
// card sessions and the chat.
func (w *Workspace) RunReport(ctx context.Context, f models.Framework) (models.SavedAnalysis, error) {
	if !f.Valid() {
		return models.SavedAnalysis{}, fmt.Errorf("report %q: %w", f, ErrUnknownFramework)
	}
	g := w.Graph.Snapshot()
	cards := w.Cards.Snapshot()
	chat := w.Chat.Snapshot()

	graphText := prompt.FormatGraph(prompt.GraphContext(g, cards.Sessions))
	recent := prompt.Transcript(chat.Unsummarized(), "\n\n")
	report, err := w.ai.Analysis(ctx, f, graphText, chat.ClinicalSummary, recent)
	if err != nil {
		return models.SavedAnalysis{}, fmt.Errorf("report %s: %w", f, err)
	}

	saved := models.SavedAnalysis{
		Report:    report,
		Timestamp: w.now().UnixMilli(),
		GraphHash: g.Hash(cards.Sessions),
	}
	w.Analyses.Mutate(func(a *models.Analyses) { a.Put(f, saved) })
	w.state.SetHasReports(true)
	return saved, nil
}

// ReportStale reports whether the saved report of f was built from an older
// graph. ok is false when there is no saved report.
func (w *Workspace) ReportStale(f models.Framework) (stale, ok bool) {
	a, ok := w.Analyses.Snapshot().Analyses[f]
	if !ok {
		return false, false
	}
	g := w.Graph.Snapshot()
	return a.Stale(g.Hash(w.Cards.Snapshot().Sessions)), true
}
