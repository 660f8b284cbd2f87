package workspace

import (
	"fmt"

	"github.com/andrewsamuelsen/bowen/pkg/interview"
	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/progress"
)

// OpenRelationship returns an interview controller for a relationship.
// Every change it makes is written back to the graph store.
func (w *Workspace) OpenRelationship(id string) (*interview.Controller, error) {
	g := w.Graph.Snapshot()
	r := g.Relationship(id)
	if r == nil {
		return nil, fmt.Errorf("open %s: %w", id, models.ErrUnknownRelationship)
	}
	return interview.New(*r, g.Label(r.Source), g.Label(r.Target), w.ai, func(rel models.Relationship) {
		w.Graph.Mutate(func(g *models.Graph) {
			if cur := g.Relationship(rel.ID); cur != nil {
				*cur = rel
			}
		})
	}), nil
}

// Progress scores every relationship of the current graph.
func (w *Workspace) Progress() map[string]int {
	g := w.Graph.Snapshot()
	out := make(map[string]int, len(g.Edges))
	for i := range g.Edges {
		out[g.Edges[i].ID] = progress.ForRelationship(&g.Edges[i])
	}
	return out
}

// AddPerson adds a person to the graph and returns its id.
func (w *Workspace) AddPerson(label string, fields map[models.PersonField]string) string {
	var id string
	w.Graph.Mutate(func(g *models.Graph) {
		id = g.AddPerson(label, fields).ID
	})
	return id
}

// Connect links two people and returns the relationship id.
func (w *Workspace) Connect(a, b string) (string, error) {
	var (
		id  string
		err error
	)
	w.Graph.Mutate(func(g *models.Graph) {
		var r *models.Relationship
		if r, err = g.Connect(a, b); err == nil {
			id = r.ID
		}
	})
	return id, err
}

// DeletePerson removes a person and its relationships.
func (w *Workspace) DeletePerson(id string) error {
	var err error
	w.Graph.Mutate(func(g *models.Graph) {
		err = g.DeletePerson(id)
	})
	return err
}
