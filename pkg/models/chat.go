package models

// SummaryThreshold is the number of unsummarized chat messages that triggers
// a clinical note.
const SummaryThreshold = 10

// ChatTranscript is the per-user therapy chat document.
type ChatTranscript struct {
	Messages        []Message `json:"messages"`
	ClinicalSummary string    `json:"clinicalSummary"`
}

// Unsummarized returns the messages not yet folded into the clinical summary.
func (c *ChatTranscript) Unsummarized() []Message {
	var out []Message
	for _, m := range c.Messages {
		if !m.Summarized {
			out = append(out, m)
		}
	}
	return out
}

// NeedsSummary reports whether enough unsummarized messages have piled up.
func (c *ChatTranscript) NeedsSummary() bool {
	return len(c.Unsummarized()) >= SummaryThreshold
}

// MarkSummarized flags the messages with the given ids.
func (c *ChatTranscript) MarkSummarized(ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for i := range c.Messages {
		if _, ok := set[c.Messages[i].ID]; ok {
			c.Messages[i].Summarized = true
		}
	}
}

// AppendSummary adds a clinical note to the running summary.
func (c *ChatTranscript) AppendSummary(note string) {
	if c.ClinicalSummary == "" {
		c.ClinicalSummary = note
		return
	}
	c.ClinicalSummary += "\n\n" + note
}

// Delete removes the message with the given id and reports whether it existed.
func (c *ChatTranscript) Delete(id string) bool {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			c.Messages = append(c.Messages[:i], c.Messages[i+1:]...)
			return true
		}
	}
	return false
}

// LastUser returns the index of the latest user message, or -1.
func (c *ChatTranscript) LastUser() int {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// ChatRequest is the body of a completion request.
type ChatRequest struct {
	Message           string `json:"message" validate:"required"`
	History           []Turn `json:"history"`
	SystemInstruction string `json:"systemInstruction"`
	Model             string `json:"model,omitempty"`
}

// Turns converts transcript messages to request history.
func Turns(msgs []Message) []Turn {
	out := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Turn{Role: m.Role, Text: m.Text})
	}
	return out
}
