package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// CardType tells whether the model opens a card or the user writes first.
type CardType string

const (
	CardTypeAI   CardType = "AI"
	CardTypeUser CardType = "USER"
)

// Card is a fixed reflective prompt from the catalog.
type Card struct {
	ID           string
	Type         CardType
	Title        string
	Category     string
	Description  string
	SystemPrompt string
	Evergreen    bool
}

// Card catalog categories.
const (
	CardCategoryDaily     = "Daily Alignment"
	CardCategoryDiscovery = "Self-Discovery"
	CardCategoryShadow    = "Shadow Work"
	CardCategoryCareer    = "Career & Vision"
)

// DailyCardID is the evergreen card whose completion resets every day.
const DailyCardID = "daily_gratitude"

// CardCategories lists the catalog filters in display order.
var CardCategories = []string{"All", CardCategoryDaily, CardCategoryDiscovery, CardCategoryShadow, CardCategoryCareer}

// Cards is the fixed card catalog.
var Cards = []Card{
	{
		ID:           "blind_spots",
		Type:         CardTypeAI,
		Title:        "What are my blind spots?",
		Category:     CardCategoryDiscovery,
		SystemPrompt: "What do you know about the user that they don't know about themselves? Use the relationship graph and reflection history to identify their primary blind spots. What are the patterns they aren't seeing? What is the 'elephant in the room' in their life? Be direct and constructive.",
		Description:  "Discover the patterns and realities you might be overlooking. We'll analyze your relationships to identify the 'elephant in the room' in your life.",
	},
	{
		ID:           "nasty_truths",
		Type:         CardTypeAI,
		Title:        "How might others misunderstand me?",
		Category:     CardCategoryShadow,
		SystemPrompt: "Based on the user's described traits and relationship dynamics, hypothesize how frustrated peers or family members might misinterpret or judge their actions. Be honest and clear about how their 'Shadow' might manifest to others, but maintain a focus on helping them understand these perceptions rather than tearing them down.",
		Description:  "Explore how your actions and traits might be perceived by those around you. We'll look at potential misinterpretations to help you understand your shadow.",
	},
	{
		ID:           "career_swot",
		Type:         CardTypeAI,
		Title:        "Life & Work SWOT",
		Category:     CardCategoryCareer,
		SystemPrompt: "Perform an insightful SWOT analysis (Strengths, Weaknesses, Opportunities, Threats) of the user's life and work based on their graph and history. What are they underestimating? What are their most important challenges? Structure it clearly using markdown, maintaining an empowering yet grounded tone.",
		Description:  "A structured analysis of your Strengths, Weaknesses, Opportunities, and Threats. Uncover what you might be underestimating in your life and work.",
	},
	{
		ID:           "ruthless_audit",
		Type:         CardTypeAI,
		Title:        "Where am I holding myself back?",
		Category:     CardCategoryCareer,
		SystemPrompt: "Identify where the user might be getting in their own way. What are they avoiding or making excuses about? Where are they playing small? Provide a clear, actionable roadmap of what they need to focus on to reach their next level with precision and clarity.",
		Description:  "Identify the excuses, avoidance tactics, and self-limiting beliefs keeping you from your next level. Receive a clear, actionable roadmap for growth.",
	},
	{
		ID:           "shadow_lies",
		Type:         CardTypeAI,
		Title:        "The stories I tell myself",
		Category:     CardCategoryShadow,
		SystemPrompt: "What comforting narratives does the user tell themselves to avoid facing difficult truths? Analyze their graph for contradictions or defensive patterns. Point them out clearly and kindly, with the goal of helping them find liberation through self-honesty.",
		Description:  "Examine the comforting narratives you use to avoid difficult truths. We'll gently uncover contradictions in your relationship patterns.",
	},
	{
		ID:           "secret_judgments",
		Type:         CardTypeAI,
		Title:        "What do I secretly judge others for?",
		Category:     CardCategoryShadow,
		SystemPrompt: "Analyze the user's conflicts and judgments of others in their graph. Apply the concept of 'Projection' to identify which of these traits the user might actually struggle with themselves. Help them integrate this shadow gently but firmly.",
		Description:  "Investigate 'Projection'. We'll explore if the traits you find frustrating in others are actually reflections of your own inner struggles.",
	},
	{
		ID:           "vision_5yr",
		Type:         CardTypeAI,
		Title:        "Where am I in 5 years?",
		Category:     CardCategoryCareer,
		SystemPrompt: "Based on everything you know about the user, where do you see them in five years? Project two realistic timelines: one where they continue their current comfortable patterns, and one where they take courageous steps to address the growth areas you've discussed.",
		Description:  "Project two realistic timelines for your life: one where you maintain your current patterns, and one where you take courageous steps toward growth.",
	},
	{
		ID:           "shadow_pretend",
		Type:         CardTypeAI,
		Title:        "What am I pretending to care about?",
		Category:     CardCategoryShadow,
		SystemPrompt: "Identify what the user is pretending to care about out of obligation rather than genuine desire. Look for enmeshed relationships or 'Pleaser' dynamics. Help them find the courage to let go of performing care for things that drain them.",
		Description:  "Identify obligations and 'Pleaser' dynamics in your life. Find the courage to let go of performing care for things that genuinely drain you.",
	},
	{
		ID:           "unfollowed_advice",
		Type:         CardTypeAI,
		Title:        "Advice I give but don't follow",
		Category:     CardCategoryDiscovery,
		SystemPrompt: "Examine the 'Advisor' or 'Mediator' roles the user plays. What advice do they consistently give others that they struggle to follow themselves? Help them uncover the core hesitation preventing them from taking their own medicine.",
		Description:  "Reflect on the wisdom you freely offer to others but struggle to apply to yourself. Uncover the core hesitations holding you back.",
	},
	{
		ID:           "unasked_question",
		Type:         CardTypeAI,
		Title:        "The question I'm avoiding",
		Category:     CardCategoryDiscovery,
		SystemPrompt: "Look deep into the user's graph and reflections to find the core tension they are tip-toeing around. Formulate the one impactful question they might be hesitant to ask themselves, but that would unlock the most clarity and growth.",
		Description:  "Find the core tension you are tip-toeing around. We'll formulate the one impactful question that could unlock the most clarity for you.",
	},
	{
		ID:           "scary_sacrifice",
		Type:         CardTypeUser,
		Title:        "What am I willing to sacrifice?",
		Category:     CardCategoryCareer,
		SystemPrompt: "The user is exploring what they are willing to let go of (comfort, certain expectations, approval) to pursue work that feels truly meaningful and challenging. Acknowledge their response, and ask a follow-up question: based on their graph, what specific comfort zone will be the hardest to step out of?",
		Description:  "Reflect on what comforts, expectations, or approval you are willing to let go of to pursue truly meaningful work.",
	},
	{
		ID:           "approval_chasing",
		Type:         CardTypeAI,
		Title:        "Whose approval am I still chasing?",
		Category:     CardCategoryShadow,
		SystemPrompt: "Identify the figures in the user's graph whose approval they might still be subconsciously seeking. Describe how this pursuit might be shaping their life, and contrast it with the more authentic path they could take if they let that need go.",
		Description:  "Identify whose expectations are subconsciously shaping your life. Contrast this pursuit with the authentic path you could take if you let it go.",
	},
	{
		ID:           "final_projects",
		Type:         CardTypeAI,
		Title:        "My final three projects",
		Category:     CardCategoryCareer,
		SystemPrompt: "If the user only had three big meaningful projects left in them, what could they be? Synthesize their strengths, recurring themes, and passions to suggest three impactful endeavors that would truly challenge and fulfill them.",
		Description:  "If you only had three big, meaningful projects left, what would they be? We'll synthesize your strengths and passions to suggest impactful endeavors.",
	},
	{
		ID:           DailyCardID,
		Type:         CardTypeUser,
		Title:        "Daily Gratitude",
		Category:     CardCategoryDaily,
		SystemPrompt: "The user has shared what they are grateful for. Briefly acknowledge it, validate the feeling, and tie it back positively to their relationship graph context if applicable. Keep it to 1-2 sentences.",
		Description:  "Take a moment to align yourself. List three things you are grateful for today, and we'll tie them back positively to your broader life context.",
		Evergreen:    true,
	},
}

// CardByID looks up a catalog entry.
func CardByID(id string) (Card, bool) {
	for _, c := range Cards {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

// Message is one entry of a card session or the chat transcript.
type Message struct {
	ID         string `json:"id"`
	Role       Role   `json:"role"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
	Summarized bool   `json:"summarized,omitempty"`
}

// NewMessage stamps a message with a fresh id and the current time.
func NewMessage(role Role, text string, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: now.UnixMilli(),
	}
}

// Time returns the message timestamp.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// CardSession is the conversation attached to one catalog card.
type CardSession struct {
	CardID   string    `json:"cardId"`
	Messages []Message `json:"messages"`
}

// Started reports whether the session has any message.
func (s *CardSession) Started() bool {
	return s != nil && len(s.Messages) > 0
}

// CardSessions is the per-user cards document.
type CardSessions struct {
	Sessions []CardSession `json:"sessions"`
}

// Session returns the session for a card, or nil.
func (c *CardSessions) Session(cardID string) *CardSession {
	for i := range c.Sessions {
		if c.Sessions[i].CardID == cardID {
			return &c.Sessions[i]
		}
	}
	return nil
}

// Upsert returns the session for cardID, creating it lazily.
func (c *CardSessions) Upsert(cardID string) *CardSession {
	if s := c.Session(cardID); s != nil {
		return s
	}
	c.Sessions = append(c.Sessions, CardSession{CardID: cardID, Messages: []Message{}})
	return &c.Sessions[len(c.Sessions)-1]
}

// CompletedToday reports whether an evergreen card was answered on now's
// calendar day. Non-evergreen cards never count as completed today.
func CompletedToday(card Card, s *CardSession, now time.Time) bool {
	if !card.Evergreen || !s.Started() {
		return false
	}
	last := s.Messages[len(s.Messages)-1].Time().In(now.Location())
	ly, lm, ld := last.Date()
	ny, nm, nd := now.Date()
	return ly == ny && lm == nm && ld == nd
}

// FilterCompleted is the catalog filter showing answered, non-evergreen cards.
const FilterCompleted = "Completed"

// DisplayCards filters the catalog by category (or "All"/"Completed") and
// orders evergreen cards first, then cards without a session.
func DisplayCards(filter string, doc *CardSessions) []Card {
	started := func(id string) bool { return doc != nil && doc.Session(id).Started() }
	var out []Card
	for _, c := range Cards {
		switch {
		case filter == FilterCompleted:
			if !started(c.ID) || c.Evergreen {
				continue
			}
		case filter != "" && filter != "All" && c.Category != filter:
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Evergreen != b.Evergreen {
			return a.Evergreen
		}
		return !started(a.ID) && started(b.ID)
	})
	return out
}
