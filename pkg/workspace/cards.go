package workspace

import (
	"context"
	"fmt"
	"strings"

	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/prompt"
)

// CardErrorText replaces an insight that failed to generate.
const CardErrorText = "An error occurred while synthesizing."

// cardPrompt builds the system instruction of card from the current graph
// and chat.
func (w *Workspace) cardPrompt(card models.Card) string {
	g := w.Graph.Snapshot()
	chat := w.Chat.Snapshot()
	return prompt.CardPrompt(card, prompt.FormatGraph(prompt.GraphContext(g, nil)), chat.ClinicalSummary, chat.Unsummarized())
}

// GenerateInsight asks the assistant to open or continue a card session
// with an insight.
func (w *Workspace) GenerateInsight(ctx context.Context, cardID string, onChunk func(string)) error {
	card, ok := models.CardByID(cardID)
	if !ok {
		return fmt.Errorf("generate %s: %w", cardID, ErrUnknownCard)
	}
	if !w.acquire(&w.cardBusy) {
		return ErrBusy
	}
	defer w.release(&w.cardBusy)

	var history []models.Turn
	placeholder := models.NewMessage(models.RoleModel, "", w.now())
	w.updateCard(card, func(s *models.CardSession) {
		history = models.Turns(s.Messages)
		s.Messages = append(s.Messages, placeholder)
	})

	req := models.ChatRequest{
		Message:           prompt.CardInsightMessage,
		History:           history,
		SystemInstruction: w.cardPrompt(card),
	}
	_, err := w.streamInto(ctx, req, func(text string) { w.setCardText(card, placeholder.ID, text) }, onChunk)
	if err != nil {
		w.logger.Error("Card insight failed", "card", cardID, "error", err)
		w.setCardText(card, placeholder.ID, CardErrorText)
		return fmt.Errorf("generate %s: %w", cardID, err)
	}
	return nil
}

// ReplyToCard adds the user's text to a card session and streams the reply.
func (w *Workspace) ReplyToCard(ctx context.Context, cardID, text string, onChunk func(string)) error {
	card, ok := models.CardByID(cardID)
	if !ok {
		return fmt.Errorf("reply %s: %w", cardID, ErrUnknownCard)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !w.acquire(&w.cardBusy) {
		return ErrBusy
	}
	defer w.release(&w.cardBusy)

	var history []models.Turn
	placeholder := models.NewMessage(models.RoleModel, "", w.now())
	w.updateCard(card, func(s *models.CardSession) {
		history = models.Turns(s.Messages)
		s.Messages = append(s.Messages, models.NewMessage(models.RoleUser, text, w.now()), placeholder)
	})

	req := models.ChatRequest{
		Message:           text,
		History:           history,
		SystemInstruction: w.cardPrompt(card),
	}
	_, err := w.streamInto(ctx, req, func(t string) { w.setCardText(card, placeholder.ID, t) }, onChunk)
	if err != nil {
		w.logger.Error("Card reply failed", "card", cardID, "error", err)
		w.dropEmpty(card, placeholder.ID)
		return fmt.Errorf("reply %s: %w", cardID, err)
	}
	return nil
}

// updateCard mutates the session of card, creating it on first use, and
// marks the daily card done once it has messages.
func (w *Workspace) updateCard(card models.Card, fn func(*models.CardSession)) {
	var started bool
	w.Cards.Mutate(func(doc *models.CardSessions) {
		s := doc.Upsert(card.ID)
		fn(s)
		started = len(s.Messages) > 0
	})
	if card.Evergreen && started {
		w.state.SetDailyCompleted(true)
	}
}

func (w *Workspace) setCardText(card models.Card, msgID, text string) {
	w.Cards.Mutate(func(doc *models.CardSessions) {
		s := doc.Session(card.ID)
		if s == nil {
			return
		}
		for i := range s.Messages {
			if s.Messages[i].ID == msgID {
				s.Messages[i].Text = text
			}
		}
	})
}

func (w *Workspace) dropEmpty(card models.Card, msgID string) {
	w.Cards.Mutate(func(doc *models.CardSessions) {
		s := doc.Session(card.ID)
		if s == nil {
			return
		}
		for i := range s.Messages {
			if s.Messages[i].ID == msgID && s.Messages[i].Text == "" {
				s.Messages = append(s.Messages[:i], s.Messages[i+1:]...)
				return
			}
		}
	})
}
