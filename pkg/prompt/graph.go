// Package prompt renders the user's graph and history into model prompts.
package prompt

import (
	"strings"

	"github.com/samber/lo"

	"github.com/andrewsamuelsen/bowen/pkg/models"
)

// Context is everything the formatter can describe.
type Context struct {
	People        []models.Person
	Relationships []models.Relationship
	CardSessions  []models.CardSession
}

// GraphContext builds a formatter context from a graph and optional card
// sessions.
func GraphContext(g models.Graph, sessions []models.CardSession) Context {
	return Context{People: g.Nodes, Relationships: g.Edges, CardSessions: sessions}
}

// FormatGraph renders a context as the plain-text block embedded in every
// prompt. Output depends only on the input.
func FormatGraph(c Context) string {
	labels := make(map[string]string, len(c.People))
	people := make([]string, 0, len(c.People))
	for _, p := range c.People {
		label := p.Label
		if label == "" {
			label = "Unknown"
		}
		labels[p.ID] = label
		people = append(people, personLine(label, p))
	}

	var rels []string
	for i := range c.Relationships {
		if line := relationshipLine(&c.Relationships[i], labels); line != "" {
			rels = append(rels, line)
		}
	}

	var b strings.Builder
	b.WriteString("### PEOPLE\n")
	b.WriteString(orNone(strings.Join(people, "\n")))
	b.WriteString("\n\n### RELATIONSHIPS\n")
	b.WriteString(orNone(strings.Join(rels, "\n")))

	if cards := cardsSection(c.CardSessions); cards != "" {
		b.WriteString("\n\n### USER REFLECTIONS & INSIGHTS (CARDS)\n")
		b.WriteString(cards)
	}
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

// roleName keeps the node type names the prompts were written against.
func roleName(p models.Person) string {
	if p.IsSelf() {
		return "user"
	}
	return string(models.RolePerson)
}

func personLine(label string, p models.Person) string {
	var details []string
	for _, f := range models.PersonFields {
		if f == models.FieldName {
			continue
		}
		if v := p.Field(f); v != "" {
			details = append(details, f.Label()+": "+v)
		}
	}
	line := "- " + label + " (" + roleName(p) + ")"
	if len(details) > 0 {
		line += " | " + strings.Join(details, "; ")
	}
	return line
}

func tagTitle(c models.Category, thirdParty bool) string {
	switch {
	case c == models.CategoryGeneral && thirdParty:
		return "General Observation"
	case c == models.CategoryGeneral:
		return "General"
	case c == models.CategoryDynamic && thirdParty:
		return "Dynamic Observation"
	case c == models.CategoryDynamic:
		return "Dynamic"
	case thirdParty:
		return "User's Role/Impact from this relationship"
	}
	return "Aftermath/Feeling"
}

func qaTitle(c models.Category, thirdParty bool) string {
	if c == models.CategoryAfter && thirdParty {
		return "Impact"
	}
	return c.Title()
}

func relationshipLine(r *models.Relationship, labels map[string]string) string {
	third := r.IsThirdParty()
	var tags, qa []string
	for _, c := range models.Categories {
		f := r.Facet(c)
		if len(f.Tags) > 0 {
			tags = append(tags, tagTitle(c, third)+": ["+strings.Join(f.Tags, ", ")+"]")
		}
		if exp := models.Explanation(f.History); exp != "" {
			qa = append(qa, strings.TrimSpace("["+qaTitle(c, third)+"]: "+exp))
		}
	}
	notes := strings.TrimSpace(r.Notes)
	if len(tags) == 0 && notes == "" && len(qa) == 0 {
		return ""
	}

	line := "- " + lo.ValueOr(labels, r.Source, "Unknown") + " & " + lo.ValueOr(labels, r.Target, "Unknown") + ":"
	if len(tags) > 0 {
		line += " Tags: " + strings.Join(tags, " | ")
	}
	if notes != "" {
		line += ` Notes: "` + notes + `"`
	}
	if len(qa) > 0 {
		line += "\n    " + strings.Join(qa, "\n    ")
	}
	return line
}

func cardsSection(sessions []models.CardSession) string {
	var parts []string
	for _, s := range sessions {
		if len(s.Messages) == 0 {
			continue
		}
		lines := lo.Map(s.Messages, func(m models.Message, _ int) string {
			return roleLabel(m.Role) + ": " + strings.TrimSpace(m.Text)
		})
		parts = append(parts, "- Topic/Card: "+s.CardID+"\n    "+strings.Join(lines, "\n    "))
	}
	return strings.Join(parts, "\n\n")
}

func roleLabel(r models.Role) string {
	return strings.ToUpper(string(r))
}

// Transcript renders messages as "ROLE: text" lines joined by sep.
func Transcript(msgs []models.Message, sep string) string {
	return strings.Join(lo.Map(msgs, func(m models.Message, _ int) string {
		return roleLabel(m.Role) + ": " + m.Text
	}), sep)
}

// Turns renders interview turns as "ROLE: text" lines.
func Turns(turns []models.Turn) string {
	return strings.Join(lo.Map(turns, func(t models.Turn, _ int) string {
		return roleLabel(t.Role) + ": " + t.Text
	}), "\n")
}
