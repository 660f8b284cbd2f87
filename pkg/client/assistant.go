package client

import (
	"context"

	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/prompt"
)

// Assistant generates interview questions, reports and clinical notes.
// Replies are read whole and returned as sent.
type Assistant struct {
	c *Client
}

// Assistant returns the AI layer of c.
func (c *Client) Assistant() *Assistant {
	return &Assistant{c: c}
}

// Question generates the next interview question. An empty reply is
// returned as is.
func (a *Assistant) Question(ctx context.Context, q prompt.Question) (string, error) {
	return a.c.complete(ctx, models.ChatRequest{
		Message:           prompt.QuestionMessage,
		History:           []models.Turn{},
		SystemInstruction: prompt.QuestionPrompt(q),
	})
}

// Analysis generates a framework report from a formatted graph, the
// clinical summary and the unsummarized chat.
func (a *Assistant) Analysis(ctx context.Context, f models.Framework, graph, summary, recentChat string) (string, error) {
	return a.c.complete(ctx, models.ChatRequest{
		Message:           prompt.AnalysisMessage,
		History:           []models.Turn{},
		SystemInstruction: prompt.AnalysisPrompt(f, graph, summary, recentChat),
		Model:             prompt.ReportModel,
	})
}

// ClinicalNote summarizes msgs into a note for the running summary.
func (a *Assistant) ClinicalNote(ctx context.Context, msgs []models.Message) (string, error) {
	return a.c.complete(ctx, models.ChatRequest{
		Message:           prompt.ClinicalNoteMessage,
		History:           []models.Turn{},
		SystemInstruction: prompt.ClinicalNotePrompt(msgs),
		Model:             prompt.ReportModel,
	})
}
