package workspace

import (
	"context"
	"fmt"
	"strings"

	"github.com/andrewsamuelsen/bowen/pkg/client"
	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/prompt"
)

// Texts shown in place of a failed chat reply.
const (
	ChatErrorText = "**Error:** Could not connect to the therapeutic assistant."
	ChatBusyText  = "Service Busy: The underlying AI is experiencing high demand. [Retry chat](retry)"
)

// chatErrorText picks the message shown for a failed reply.
func chatErrorText(err error) string {
	if client.IsHighDemand(err) {
		return ChatBusyText
	}
	return ChatErrorText
}

// Send adds a user message to the transcript and streams the assistant's
// reply into it. When enough unsummarized messages have piled up, they are
// condensed into the clinical summary afterwards.
func (w *Workspace) Send(ctx context.Context, text string, onChunk func(string)) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !w.acquire(&w.chatBusy) {
		return ErrBusy
	}
	defer w.release(&w.chatBusy)

	var history []models.Turn
	placeholder := models.NewMessage(models.RoleModel, "", w.now())
	w.Chat.Mutate(func(t *models.ChatTranscript) {
		history = models.Turns(t.Messages)
		t.Messages = append(t.Messages, models.NewMessage(models.RoleUser, text, w.now()), placeholder)
	})

	g := w.Graph.Snapshot()
	req := models.ChatRequest{
		Message:           text,
		History:           history,
		SystemInstruction: prompt.TherapistPrompt(prompt.FormatGraph(prompt.GraphContext(g, nil))),
	}
	_, err := w.streamInto(ctx, req, func(t string) { w.setChatText(placeholder.ID, t) }, onChunk)
	if err != nil {
		w.logger.Error("Chat reply failed", "error", err)
		w.setChatText(placeholder.ID, chatErrorText(err))
		return fmt.Errorf("send: %w", err)
	}

	w.maybeSummarize(ctx)
	return nil
}

// Retry resends the latest user message.
func (w *Workspace) Retry(ctx context.Context, onChunk func(string)) error {
	t := w.Chat.Snapshot()
	i := t.LastUser()
	if i < 0 {
		return nil
	}
	return w.Send(ctx, t.Messages[i].Text, onChunk)
}

// DeleteMessage removes one transcript message.
func (w *Workspace) DeleteMessage(id string) bool {
	var ok bool
	w.Chat.Mutate(func(t *models.ChatTranscript) { ok = t.Delete(id) })
	return ok
}

func (w *Workspace) setChatText(id, text string) {
	w.Chat.Mutate(func(t *models.ChatTranscript) {
		for i := range t.Messages {
			if t.Messages[i].ID == id {
				t.Messages[i].Text = text
			}
		}
	})
}

// maybeSummarize folds the unsummarized messages into a clinical note once
// there are enough of them. Failures leave the transcript untouched.
func (w *Workspace) maybeSummarize(ctx context.Context) {
	t := w.Chat.Snapshot()
	if !t.NeedsSummary() || !w.acquire(&w.summarizing) {
		return
	}
	defer w.release(&w.summarizing)

	pending := t.Unsummarized()
	note, err := w.ai.ClinicalNote(ctx, pending)
	if err != nil {
		w.logger.Warn("Clinical summary failed", "messages", len(pending), "error", err)
		return
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	ids := make([]string, 0, len(pending))
	for _, m := range pending {
		ids = append(ids, m.ID)
	}
	w.Chat.Mutate(func(t *models.ChatTranscript) {
		t.AppendSummary(note)
		t.MarkSummarized(ids)
	})
	w.logger.Info("Chat summarized", "messages", len(ids))
}
