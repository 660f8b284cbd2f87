package client

import (
	"context"

	"github.com/andrewsamuelsen/bowen/pkg/models"
)

// Document is a session.Remote over one GET/POST endpoint pair.
type Document[T any] struct {
	c         *Client
	path      string
	normalize func(*T)
}

func (d Document[T]) Load(ctx context.Context) (T, error) {
	var doc T
	if err := d.c.getJSON(ctx, d.path, &doc); err != nil {
		return doc, err
	}
	if d.normalize != nil {
		d.normalize(&doc)
	}
	return doc, nil
}

func (d Document[T]) Save(ctx context.Context, doc T) error {
	return d.c.postJSON(ctx, d.path, doc)
}

// Graph is the graph document. A missing or empty graph loads as the
// default graph.
func (c *Client) Graph() Document[models.Graph] {
	return Document[models.Graph]{c: c, path: "/api/graph", normalize: func(g *models.Graph) {
		if len(g.Nodes) == 0 {
			*g = models.DefaultGraph()
			return
		}
		g.EnsureSelf()
		g.Prune()
		if g.Edges == nil {
			g.Edges = []models.Relationship{}
		}
	}}
}

// Cards is the card sessions document.
func (c *Client) Cards() Document[models.CardSessions] {
	return Document[models.CardSessions]{c: c, path: "/api/cards", normalize: func(s *models.CardSessions) {
		if s.Sessions == nil {
			s.Sessions = []models.CardSession{}
		}
	}}
}

// Chat is the chat transcript document.
func (c *Client) Chat() Document[models.ChatTranscript] {
	return Document[models.ChatTranscript]{c: c, path: "/api/chat/history", normalize: func(t *models.ChatTranscript) {
		if t.Messages == nil {
			t.Messages = []models.Message{}
		}
	}}
}

// Analyses is the saved reports document.
func (c *Client) Analyses() Document[models.Analyses] {
	return Document[models.Analyses]{c: c, path: "/api/synthesis", normalize: func(a *models.Analyses) {
		if a.Analyses == nil {
			a.Analyses = map[models.Framework]models.SavedAnalysis{}
		}
	}}
}

// Metrics returns the user's token usage.
func (c *Client) Metrics(ctx context.Context) (models.UserMetrics, error) {
	var m models.UserMetrics
	err := c.getJSON(ctx, "/api/user/metrics", &m)
	return m, err
}
