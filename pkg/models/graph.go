package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

var (
	ErrUnknownPerson       = errors.New("person not found")
	ErrUnknownRelationship = errors.New("relationship not found")
	ErrSelfNotDeletable    = errors.New("the self node cannot be deleted")
	ErrSelfLoop            = errors.New("a relationship needs two different people")
)

// DefaultSelfLabel is the label of the self node before the user renames it.
const DefaultSelfLabel = "Me (You)"

// Graph is the per-user document of people and relationships.
type Graph struct {
	Nodes []Person       `json:"nodes"`
	Edges []Relationship `json:"edges"`
}

// DefaultGraph returns the graph of a new user: only the self node.
func DefaultGraph() Graph {
	return Graph{
		Nodes: []Person{{
			ID:       SelfID,
			Label:    DefaultSelfLabel,
			Role:     RoleSelf,
			Position: Position{X: 250, Y: 250},
		}},
		Edges: []Relationship{},
	}
}

// EnsureSelf adds the self node when a stored graph lacks one.
func (g *Graph) EnsureSelf() {
	if g.Person(SelfID) != nil {
		return
	}
	g.Nodes = append([]Person{DefaultGraph().Nodes[0]}, g.Nodes...)
}

// Person returns the node with the given id, or nil.
func (g *Graph) Person(id string) *Person {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// Relationship returns the edge with the given id, or nil.
func (g *Graph) Relationship(id string) *Relationship {
	for i := range g.Edges {
		if g.Edges[i].ID == id {
			return &g.Edges[i]
		}
	}
	return nil
}

// AddPerson appends a new person and returns it. The label falls back to
// the name field and then to "New Person".
func (g *Graph) AddPerson(label string, fields map[PersonField]string) *Person {
	if label == "" {
		label = fields[FieldName]
	}
	if label == "" {
		label = "New Person"
	}
	p := Person{
		ID:    "person-" + uuid.NewString(),
		Label: label,
		Role:  RolePerson,
	}
	for f, v := range fields {
		if f.Valid() {
			p.SetField(f, v)
		}
	}
	g.Nodes = append(g.Nodes, p)
	return &g.Nodes[len(g.Nodes)-1]
}

// UpdatePerson merges profile answers into a person. A non-empty name
// answer also renames the node.
func (g *Graph) UpdatePerson(id string, fields map[PersonField]string) error {
	p := g.Person(id)
	if p == nil {
		return fmt.Errorf("update %s: %w", id, ErrUnknownPerson)
	}
	for f, v := range fields {
		if f.Valid() {
			p.SetField(f, v)
		}
	}
	if name := fields[FieldName]; name != "" {
		p.Label = name
	}
	return nil
}

// DeletePerson removes a person and every relationship touching it.
func (g *Graph) DeletePerson(id string) error {
	if id == SelfID {
		return ErrSelfNotDeletable
	}
	p := g.Person(id)
	if p == nil {
		return fmt.Errorf("delete %s: %w", id, ErrUnknownPerson)
	}
	if p.IsSelf() {
		return ErrSelfNotDeletable
	}
	g.Nodes = lo.Reject(g.Nodes, func(n Person, _ int) bool { return n.ID == id })
	g.Edges = lo.Reject(g.Edges, func(e Relationship, _ int) bool { return e.Touches(id) })
	return nil
}

// Connect returns the relationship between a and b, creating it when none
// exists. Both people must be in the graph.
func (g *Graph) Connect(a, b string) (*Relationship, error) {
	if a == b {
		return nil, ErrSelfLoop
	}
	for _, id := range []string{a, b} {
		if g.Person(id) == nil {
			return nil, fmt.Errorf("connect %s: %w", id, ErrUnknownPerson)
		}
	}
	for i := range g.Edges {
		if g.Edges[i].Connects(a, b) {
			return &g.Edges[i], nil
		}
	}
	g.Edges = append(g.Edges, Relationship{ID: "e" + a + "-" + b, Source: a, Target: b})
	return &g.Edges[len(g.Edges)-1], nil
}

// Disconnect removes a relationship.
func (g *Graph) Disconnect(id string) error {
	if g.Relationship(id) == nil {
		return fmt.Errorf("disconnect %s: %w", id, ErrUnknownRelationship)
	}
	g.Edges = lo.Reject(g.Edges, func(e Relationship, _ int) bool { return e.ID == id })
	return nil
}

// Prune drops relationships whose endpoints are no longer in the graph.
func (g *Graph) Prune() {
	g.Edges = lo.Filter(g.Edges, func(e Relationship, _ int) bool {
		return g.Person(e.Source) != nil && g.Person(e.Target) != nil
	})
}

// Label returns the display label of a person, or "Unknown".
func (g *Graph) Label(id string) string {
	if p := g.Person(id); p != nil {
		return p.Label
	}
	return "Unknown"
}

// Hash is a cheap fingerprint of the analysis context used to flag stale
// reports: the JSON length of the graph plus card sessions, followed by the
// people and relationship counts. It is not collision resistant.
func (g *Graph) Hash(sessions []CardSession) string {
	b, err := json.Marshal(struct {
		Nodes    []Person       `json:"nodes"`
		Edges    []Relationship `json:"edges"`
		Sessions []CardSession  `json:"cardSessions"`
	}{g.Nodes, g.Edges, sessions})
	if err != nil {
		return ""
	}
	return strconv.Itoa(len(b)) + strconv.Itoa(len(g.Nodes)) + strconv.Itoa(len(g.Edges))
}
