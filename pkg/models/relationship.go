package models

import (
	"encoding/json"
	"strings"
)

// Role is the author of a conversation turn or chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Category is one facet of a relationship profile.
type Category string

const (
	CategoryGeneral Category = "general"
	CategoryDynamic Category = "dynamic"
	CategoryAfter   Category = "after"
)

// Categories lists the relationship categories in display order.
var Categories = []Category{CategoryGeneral, CategoryDynamic, CategoryAfter}

const (
	// MaxTags bounds the selected tags of one category.
	MaxTags = 5
	// MaxQuestions bounds the interview of one category.
	MaxQuestions = 5
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryDynamic, CategoryAfter:
		return true
	}
	return false
}

// Title is the short name used in prompts and formatted context.
func (c Category) Title() string {
	switch c {
	case CategoryGeneral:
		return "General"
	case CategoryDynamic:
		return "Dynamic"
	case CategoryAfter:
		return "Aftermath"
	}
	return string(c)
}

// Turn is one entry of a category interview.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Facet holds the tags and interview of one category.
type Facet struct {
	Tags    []string `json:"tags"`
	History []Turn   `json:"history"`
}

// Answers counts the user turns of the interview.
func (f Facet) Answers() int {
	return countRole(f.History, RoleUser)
}

// Questions counts the model turns of the interview.
func (f Facet) Questions() int {
	return countRole(f.History, RoleModel)
}

// HasTag reports whether tag is selected.
func (f Facet) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func countRole(turns []Turn, r Role) int {
	n := 0
	for _, t := range turns {
		if t.Role == r {
			n++
		}
	}
	return n
}

// Relationship is an edge of the graph between two people.
type Relationship struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	General Facet  `json:"general"`
	Dynamic Facet  `json:"dynamic"`
	After   Facet  `json:"after"`
	Notes   string `json:"notes,omitempty"`
}

// Facet returns a pointer to the facet of category c, or nil for an
// unknown category.
func (r *Relationship) Facet(c Category) *Facet {
	switch c {
	case CategoryGeneral:
		return &r.General
	case CategoryDynamic:
		return &r.Dynamic
	case CategoryAfter:
		return &r.After
	}
	return nil
}

// IsThirdParty reports whether the user observes this relationship rather
// than takes part in it.
func (r *Relationship) IsThirdParty() bool {
	return r.Source != SelfID && r.Target != SelfID
}

// Connects reports whether the relationship joins a and b in either order.
func (r *Relationship) Connects(a, b string) bool {
	return (r.Source == a && r.Target == b) || (r.Source == b && r.Target == a)
}

// Touches reports whether id is one of the endpoints.
func (r *Relationship) Touches(id string) bool {
	return r.Source == id || r.Target == id
}

// Empty reports whether the relationship carries no user content.
func (r *Relationship) Empty() bool {
	if strings.TrimSpace(r.Notes) != "" {
		return false
	}
	for _, c := range Categories {
		f := r.Facet(c)
		if len(f.Tags) > 0 || Explanation(f.History) != "" {
			return false
		}
	}
	return true
}

// Explanation flattens an interview into "Prompt: ..." / "You: ..." lines
// separated by blank lines.
func Explanation(history []Turn) string {
	parts := make([]string, 0, len(history))
	for _, t := range history {
		prefix := "You"
		if t.Role == RoleModel {
			prefix = "Prompt"
		}
		parts = append(parts, prefix+": "+t.Text)
	}
	return strings.Join(parts, "\n\n")
}

// legacy response keys per category: tags, history, prompt, explanation.
var legacyKeys = map[Category][4]string{
	CategoryGeneral: {"General Tags", "General History", "General AI Prompt", "General Explanation"},
	CategoryDynamic: {"Dynamic Tags", "Dynamic History", "Dynamic AI Prompt", "Dynamic Explanation"},
	CategoryAfter:   {"After Tags", "Aftermath History", "Aftermath AI Prompt", "Aftermath Explanation"},
}

type relationshipJSON struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	General *Facet `json:"general,omitempty"`
	Dynamic *Facet `json:"dynamic,omitempty"`
	After   *Facet `json:"after,omitempty"`
	Notes   string `json:"notes,omitempty"`
	Data    *struct {
		Responses map[string]string `json:"responses"`
	} `json:"data,omitempty"`
}

// UnmarshalJSON reads the typed shape and migrates documents that still
// keep the profile as a flat responses map of display strings.
func (r *Relationship) UnmarshalJSON(b []byte) error {
	var raw relationshipJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Relationship{ID: raw.ID, Source: raw.Source, Target: raw.Target, Notes: raw.Notes}
	if raw.General != nil {
		r.General = *raw.General
	}
	if raw.Dynamic != nil {
		r.Dynamic = *raw.Dynamic
	}
	if raw.After != nil {
		r.After = *raw.After
	}
	if raw.Data != nil && len(raw.Data.Responses) > 0 {
		r.migrateResponses(raw.Data.Responses)
	}
	return nil
}

func (r *Relationship) migrateResponses(values map[string]string) {
	for _, c := range Categories {
		keys := legacyKeys[c]
		f := r.Facet(c)
		if len(f.Tags) == 0 {
			f.Tags = SplitTags(values[keys[0]])
		}
		if len(f.History) == 0 {
			f.History = ParseLegacyHistory(values[keys[1]], values[keys[2]], values[keys[3]])
		}
	}
	if r.Notes == "" {
		r.Notes = values["Notes"]
	}
}

// SplitTags parses a ", " separated tag list.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ParseLegacyHistory decodes a stored interview. When stored is not a JSON
// array, a single question/answer pair is rebuilt from the prompt and
// explanation fields.
func ParseLegacyHistory(stored, prompt, explanation string) []Turn {
	if stored == "" {
		return nil
	}
	var turns []Turn
	if json.Valid([]byte(stored)) {
		if err := json.Unmarshal([]byte(stored), &turns); err != nil {
			return nil
		}
		return turns
	}
	if prompt != "" {
		turns = append(turns, Turn{Role: RoleModel, Text: prompt})
	}
	if explanation != "" {
		turns = append(turns, Turn{Role: RoleUser, Text: explanation})
	}
	return turns
}
