package models

// Framework identifies a psychological lens for a report.
type Framework string

const (
	FrameworkAttachment    Framework = "attachment"
	FrameworkIFS           Framework = "ifs"
	FrameworkBig5          Framework = "big5"
	FrameworkFamilySystems Framework = "family_systems"
	FrameworkTransactional Framework = "transactional"
	FrameworkMBTI          Framework = "mbti"
)

// FrameworkInfo describes a framework and carries its analysis instructions.
type FrameworkInfo struct {
	Title        string
	Description  string
	SystemPrompt string
}

// FrameworkOrder lists the frameworks in display order.
var FrameworkOrder = []Framework{
	FrameworkAttachment,
	FrameworkIFS,
	FrameworkBig5,
	FrameworkFamilySystems,
	FrameworkTransactional,
	FrameworkMBTI,
}

// Frameworks is the framework catalog.
var Frameworks = map[Framework]FrameworkInfo{
	FrameworkAttachment: {
		Title:       "Attachment Theory",
		Description: "Analyze emotional bonds, identifying Secure, Anxious, Avoidant, or Disorganized patterns.",
		SystemPrompt: `You are an expert in Attachment Theory (Bowlby/Ainsworth).
Analyze the provided relationship graph.
- Identify the user's likely primary attachment style based on their descriptions of key figures (Parents/Partners).
- Point out specific relationships that demonstrate 'Anxious' or 'Avoidant' dynamics.
- Highlight 'Secure Bases' vs. 'Threats'.
- Provide actionable advice for moving towards 'Earned Security'.`,
	},
	FrameworkIFS: {
		Title:       "Internal Family Systems (IFS)",
		Description: "Identify 'Managers', 'Exiles', and 'Firefighters' within your internal system.",
		SystemPrompt: `You are an expert in Internal Family Systems (IFS) therapy (Richard Schwartz).
Analyze the relationship graph as an "External System" that reflects the user's "Internal System".
- Which relationships trigger "Protector" parts (Managers)? (e.g. feeling 'Guarded', 'Responsible').
- Which relationships trigger "Exiles"? (e.g. feeling 'Ashamed', 'Small', 'Hurt').
- Which relationships trigger "Firefighters"? (e.g. 'Rebellious', 'Numb').
- Identify the "Self" energy: Where does the user feel calm, curious, and compassionate?`,
	},
	FrameworkBig5: {
		Title:       "Big 5 / Personality",
		Description: "Infer personality traits (Openness, Conscientiousness, Extraversion, Agreeableness, Neuroticism).",
		SystemPrompt: `You are an expert personality psychologist.
Analyze the user's graph to infer their likely standing on the Big 5 traits (OCEAN).
- High/Low Neuroticism: Based on frequency of 'Anxious', 'Volatile', vs 'Stable' tags.
- High/Low Agreeableness: Based on 'Conflict', 'Resentful' vs 'Supportive', 'Pleaser'.
- Extraversion: Based on social energy tags ('Draining' vs 'Energizing').
- Note: This is speculative based on relationship dynamics. Phrase it as "You seem to value..." or "You might lean towards..."`,
	},
	FrameworkFamilySystems: {
		Title:       "Bowen Family Systems",
		Description: "Map triangles, enmeshment, differentiation of self, and emotional cut-offs.",
		SystemPrompt: `You are an expert in Bowen Family Systems Theory.
Analyze the graph to map the emotional field.
- Identify "Triangles": Where is the user caught between two others? (Look for Observer/Impact roles like 'Mediator').
- Identify "Differentiation of Self": Where is the user 'Enmeshed' vs 'Cut-off' vs 'Differentiated'?
- Identify "Multigenerational Transmission": Are there repeating patterns with parents/siblings?
- Suggest one move to "De-triangulate".`,
	},
	FrameworkTransactional: {
		Title:       "Transactional Analysis",
		Description: "Analyze Parent-Adult-Child communication dynamics.",
		SystemPrompt: `You are an expert in Transactional Analysis (Berne).
Analyze the dynamics in the graph.
- Where is the user playing the "Parent" (Critical or Nurturing)?
- Where is the user playing the "Child" (Adapted or Free)?
- Where are the "Adult-to-Adult" relationships?
- Identify "Games" being played (e.g. "Kick Me", "I'm Only Trying to Help").`,
	},
	FrameworkMBTI: {
		Title:       "Myers-Briggs (MBTI)",
		Description: "Analyze cognitive functions and likely type preferences (e.g. INTJ, ESFP).",
		SystemPrompt: `You are an expert in Myers-Briggs Type Indicator (MBTI) and Cognitive Functions (Jung).
Analyze the provided relationship graph to hypothesize the types of the people involved.

Task:
- For EACH person in the graph (including the User), deduce their likely 4-letter type (e.g., INTJ, ESFP).
- Base this on their relationship dynamics, conflict styles, and tags (e.g. "Critical" might suggest high Te, "Emotional" might suggest high Fi/Fe).

CRITICAL INSTRUCTION FOR MISSING DATA:
- If there is not enough information to form a solid hypothesis, you MUST state "Insufficient Data" or "Limited Data".
- Do NOT hallucinate a type.
- You can say "Likely Introverted based on 'Quiet' tag, but other functions unclear."

Format:
- Person Name: **Likely Type** (Confidence Level: High/Medium/Low/None)
- Reasoning: [Brief explanation citing specific tags/behaviors]`,
	},
}

// Valid reports whether f is in the catalog.
func (f Framework) Valid() bool {
	_, ok := Frameworks[f]
	return ok
}

// SavedAnalysis is a generated report and the graph hash it was built from.
type SavedAnalysis struct {
	Report    string `json:"report"`
	Timestamp int64  `json:"timestamp"`
	GraphHash string `json:"graphHash"`
}

// Stale reports whether the graph changed since the report was generated.
func (a SavedAnalysis) Stale(currentHash string) bool {
	return a.GraphHash != currentHash
}

// Analyses is the per-user reports document.
type Analyses struct {
	Analyses map[Framework]SavedAnalysis `json:"analyses"`
}

// Put stores a report, allocating the map on first use.
func (a *Analyses) Put(f Framework, s SavedAnalysis) {
	if a.Analyses == nil {
		a.Analyses = make(map[Framework]SavedAnalysis)
	}
	a.Analyses[f] = s
}
