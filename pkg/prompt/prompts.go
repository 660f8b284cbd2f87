package prompt

import (
	"fmt"
	"strings"

	"github.com/andrewsamuelsen/bowen/pkg/models"
)

// Fixed user messages paired with the generated system instructions.
const (
	QuestionMessage     = "Please generate the next therapeutic question based on the provided strategy."
	AnalysisMessage     = "Please generate the analysis based on the provided data."
	ClinicalNoteMessage = "Please write a clinical note for this recent interaction."
	CardInsightMessage  = "Generate insight."
)

// ReportModel is the model hint sent with reports and clinical notes.
const ReportModel = "claude-sonnet-4-6"

// Question describes the next interview question to generate.
type Question struct {
	Relationship string // "A and B"
	Category     string // category name as sent to the model
	Tags         []string
	History      []models.Turn
	Index        int // 1-based
	Total        int
	ThirdParty   bool
}

// Fallback is used when the model returns no text.
func (q Question) Fallback() string {
	return fmt.Sprintf("You mentioned %s. How does this manifest?", strings.Join(q.Tags, ", "))
}

func (q Question) impact() bool {
	return q.ThirdParty && (q.Category == models.ImpactCategoryName || q.Category == "impact")
}

// QuestionPrompt builds the system instruction for one interview question.
// Self relationships, observed relationships and the user's role in an
// observed relationship each follow their own five-step strategy.
func QuestionPrompt(q Question) string {
	tags := strings.Join(q.Tags, ", ")
	var b strings.Builder
	switch {
	case q.impact():
		fmt.Fprintf(&b, `You are an empathetic, insightful therapist helping a user explore THEIR OWN ROLE in a relationship they are observing between two other people ("%s").
Context:
- Category: "%s"
- Selected Tags (Describing the User's role or experience, NOT how the other people act towards the user): %s
- Progress: Question %d of %d.
Strategy:
1. **Question 1 (The Primary Impact):** Focus on the most intense tag. Ask for a specific recent interaction where the user felt this way or played this role.
2. **Question 2 (The Role Definition):** How did it feel? Was it a choice or reflex?
3. **Question 3 (The Broader Cost):** How does this affect your energy outside of interactions?
4. **Question 4 (System Patterns):** Who pulls you into this role more?
5. **Question 5 (Boundaries/Future):** If you could change one thing about your reaction next time?
`, q.Relationship, q.Category, tags, q.Index, q.Total)
	case q.ThirdParty:
		fmt.Fprintf(&b, `You are an empathetic, insightful therapist helping a user understand a relationship they are OBSERVING between two other people ("%s").
Context:
- Category: "%s"
- Observed Tags: %s
- Progress: Question %d of %d.
Strategy:
1. **Question 1 (Observation):** Focus on observed tags. Ask for a specific example.
2. **Question 2 (The System/History):** How long has this been observed?
3. **Question 3 (The Counter-Pivot):** Look for the exception in their dynamic.
4. **Question 4 (Triangulation):** Does this dynamic spill over?
5. **Question 5 (Acceptance):** What do you accept about this dynamic?
`, q.Relationship, q.Category, tags, q.Index, q.Total)
	default:
		fmt.Fprintf(&b, `You are an empathetic, insightful therapist helping a user build a comprehensive "Relationship Profile" through a structured 5-question exercise.
Context:
- Relationship: "%s"
- Category: "%s"
- Selected Tags: %s
- Progress: Question %d of %d.
Strategy:
1. **Question 1 (The Present Reality):** Focus on tags. Ask for a recent example.
2. **Question 2 (The Origin Story / Past):** Was it always this way?
3. **Question 3 (The Counter-Pivot / The Exception):** Look for an exception to the prevailing sentiment.
4. **Question 4 (The Mechanics & Patterns):** Communication styles or recurring conflicts.
5. **Question 5 (The Future / Resolution):** What needs to change or be accepted?
`, q.Relationship, q.Category, tags, q.Index, q.Total)
	}
	b.WriteString(`Guidelines: Short (1-2 sentences), standalone prompt card style, curious and warm. Minimal formatting. No need to write "Question 1."
Current History (Previous Q&A):
`)
	b.WriteString(Turns(q.History))
	return b.String()
}

// AnalysisPrompt builds the system instruction for a framework report.
// summary and recentChat are omitted when empty.
func AnalysisPrompt(f models.Framework, graph, summary, recentChat string) string {
	var b strings.Builder
	b.WriteString(models.Frameworks[f].SystemPrompt)
	b.WriteString("\n\nHere is the User's Relationship Context:\n")
	b.WriteString(graph)
	if summary != "" {
		b.WriteString("\n\nHere is a Clinical Summary of the User's overall chat interactions/history:\n")
		b.WriteString(summary)
	}
	if recentChat != "" {
		b.WriteString("\n\nHere is the User's recent, unsummarized chat interactions/history:\n")
		b.WriteString(recentChat)
	}
	b.WriteString(`

Task:
Provide a concise, insightful report (markdown format).
- Use bolding for key terms.
- Be empathetic but analytical.
- Cite specific tags/notes from the graph to support your insights.
- Focus on relationships with the most complete data (tags, questions, chat info). Briefly mention this in the analysis, and suggest adding more information in the other relationships for better analysis.`)
	return b.String()
}

// ClinicalNotePrompt asks for a session note covering only msgs.
func ClinicalNotePrompt(msgs []models.Message) string {
	return `You are a clinical supervisor writing a session note for a patient's ongoing psychological profile.

New Interaction Transcript:
` + Transcript(msgs, "\n") + `

Task:
- Write a brief, dense clinical note (1-2 paragraphs) summarizing ONLY the insights from this specific transcript.
- Focus on new psychological patterns, relationship dynamics, conflicts, and growth.
- DO NOT rewrite or summarize any previous history. This note will be appended to a running log.
- Discard conversational filler, polite exchanges, and redundant information.
- Maintain a professional, objective, and empathetic clinical tone.
- Keep any absolutely profound text from the user intact word for word.`
}

// CardPrompt builds the system instruction of a card conversation.
// recent is the unsummarized chat, rendered with blank lines between turns.
func CardPrompt(card models.Card, graph, summary string, recent []models.Message) string {
	var b strings.Builder
	b.WriteString(card.SystemPrompt)
	b.WriteString("\n\nUSER GRAPH CONTEXT:\n")
	b.WriteString(graph)
	b.WriteString("\n\n")
	if summary != "" {
		b.WriteString("CLINICAL SUMMARY OF HISTORY:\n" + summary + "\n\n")
	}
	if len(recent) > 0 {
		b.WriteString("RECENT CHAT CONTEXT (TODAY):\n" + Transcript(recent, "\n\n") + "\n\n")
	}
	b.WriteString(`INSTRUCTIONS:
- Incorporate the clinical summary and recent chat history into your analysis if relevant.
- Keep your responses to a few paragraphs unless specifically necessary.`)
	return b.String()
}

// TherapistPrompt is the system instruction of the free-form chat.
func TherapistPrompt(graph string) string {
	return `You are a therapeutic AI assistant.
CORE IDENTITY: Reflector, Guide, Pattern Detector, Reality Tester.
Tone: Objective, curious, direct, warm but not effusive.
Goal: Help user achieve insight into their relationships and emotional patterns.
CONTEXT: ` + graph + `
INSTRUCTIONS: Use provided graph data explicitly. Identify patterns. Ask probing questions.`
}
