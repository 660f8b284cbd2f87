// Package interview drives the tag selection and the five-question
// interview of each relationship category.
package interview

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/progress"
	"github.com/andrewsamuelsen/bowen/pkg/prompt"
)

var (
	ErrBusy            = errors.New("a question is already being generated for this category")
	ErrComplete        = errors.New("all questions of this category are answered")
	ErrInvalidTurn     = errors.New("turn is not a question")
	ErrUnknownCategory = errors.New("unknown category")
)

// State is the interview state of one category.
type State int

const (
	Idle State = iota
	TaggingOnly
	Interviewing
	Complete
)

func (s State) String() string {
	switch s {
	case TaggingOnly:
		return "tagging"
	case Interviewing:
		return "interviewing"
	case Complete:
		return "complete"
	}
	return "idle"
}

// QuestionAsker generates the next interview question.
type QuestionAsker interface {
	Question(ctx context.Context, q prompt.Question) (string, error)
}

// Controller edits one relationship. It owns a working copy and hands every
// new version to onChange.
type Controller struct {
	asker    QuestionAsker
	onChange func(models.Relationship)
	pair     string

	mu      sync.Mutex
	rel     models.Relationship
	visible map[models.Category]bool
	busy    map[models.Category]bool
	version uint64

	// pubMu orders onChange calls; published is the last version handed out.
	pubMu     sync.Mutex
	published uint64
}

// New binds a controller to rel. sourceLabel and targetLabel name the two
// people in generated questions.
func New(rel models.Relationship, sourceLabel, targetLabel string, asker QuestionAsker, onChange func(models.Relationship)) *Controller {
	if onChange == nil {
		onChange = func(models.Relationship) {}
	}
	return &Controller{
		asker:    asker,
		onChange: onChange,
		pair:     sourceLabel + " and " + targetLabel,
		rel:      cloneRelationship(rel),
		visible:  make(map[models.Category]bool),
		busy:     make(map[models.Category]bool),
	}
}

// Relationship returns a copy of the working relationship.
func (c *Controller) Relationship() models.Relationship {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneRelationship(c.rel)
}

// Progress scores the working relationship.
func (c *Controller) Progress() int {
	r := c.Relationship()
	return progress.ForRelationship(&r)
}

// State reports the interview state of cat.
func (c *Controller) State(cat models.Category) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.rel.Facet(cat)
	switch {
	case f == nil:
		return Idle
	case f.Answers() >= models.MaxQuestions:
		return Complete
	case c.visible[cat] || len(f.History) > 0:
		return Interviewing
	case len(f.Tags) > 0:
		return TaggingOnly
	}
	return Idle
}

// Loading reports whether a question for cat is in flight.
func (c *Controller) Loading(cat models.Category) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[cat]
}

// ToggleTag adds tag when absent and below the limit, or removes it when
// present. It reports whether the tag set changed.
func (c *Controller) ToggleTag(cat models.Category, tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	c.mu.Lock()
	f := c.rel.Facet(cat)
	if f == nil {
		c.mu.Unlock()
		return false
	}
	if i := slices.Index(f.Tags, tag); i >= 0 {
		f.Tags = slices.Delete(slices.Clone(f.Tags), i, i+1)
	} else if len(f.Tags) < models.MaxTags {
		f.Tags = append(slices.Clone(f.Tags), tag)
	} else {
		c.mu.Unlock()
		return false
	}
	c.changedLocked()
	return true
}

// SetNotes replaces the relationship notes.
func (c *Controller) SetNotes(notes string) {
	c.mu.Lock()
	c.rel.Notes = notes
	c.changedLocked()
}

// StartInterview opens the interview of cat and asks the first question
// when nothing was asked yet and at least one tag is selected.
func (c *Controller) StartInterview(ctx context.Context, cat models.Category) error {
	c.mu.Lock()
	f := c.rel.Facet(cat)
	if f == nil {
		c.mu.Unlock()
		return fmt.Errorf("start %q: %w", cat, ErrUnknownCategory)
	}
	c.visible[cat] = true
	need := len(f.History) == 0 && len(f.Tags) > 0
	c.mu.Unlock()
	if !need {
		return nil
	}
	return c.ask(ctx, cat)
}

// SubmitAnswer answers the open question of cat and asks the next one
// until five were asked. Empty text asks the next question again after an
// answered one, for when the previous request failed.
func (c *Controller) SubmitAnswer(ctx context.Context, cat models.Category, text string) error {
	text = strings.TrimSpace(text)
	c.mu.Lock()
	f := c.rel.Facet(cat)
	if f == nil {
		c.mu.Unlock()
		return fmt.Errorf("answer %q: %w", cat, ErrUnknownCategory)
	}
	if c.busy[cat] {
		c.mu.Unlock()
		return ErrBusy
	}
	if f.Answers() >= models.MaxQuestions {
		c.mu.Unlock()
		return fmt.Errorf("answer %q: %w", cat, ErrComplete)
	}
	last := models.Role("")
	if n := len(f.History); n > 0 {
		last = f.History[n-1].Role
	}
	if text == "" {
		// Retry of a failed question: only after an answered one.
		if last != models.RoleUser {
			c.mu.Unlock()
			return fmt.Errorf("answer %q: %w", cat, ErrInvalidTurn)
		}
		c.visible[cat] = true
		c.mu.Unlock()
		return c.ask(ctx, cat)
	}
	if last != models.RoleModel {
		c.mu.Unlock()
		return fmt.Errorf("answer %q: %w", cat, ErrInvalidTurn)
	}
	c.visible[cat] = true
	f.History = append(slices.Clone(f.History), models.Turn{Role: models.RoleUser, Text: text})
	asked := f.Questions()
	c.changedLocked()
	if asked >= models.MaxQuestions {
		return nil
	}
	return c.ask(ctx, cat)
}

// DeletePair removes the question at i together with the answer after it.
func (c *Controller) DeletePair(cat models.Category, i int) error {
	c.mu.Lock()
	f := c.rel.Facet(cat)
	if f == nil {
		c.mu.Unlock()
		return fmt.Errorf("delete %q: %w", cat, ErrUnknownCategory)
	}
	if i < 0 || i >= len(f.History) || f.History[i].Role != models.RoleModel {
		c.mu.Unlock()
		return fmt.Errorf("delete turn %d: %w", i, ErrInvalidTurn)
	}
	f.History = slices.Delete(slices.Clone(f.History), i, min(i+2, len(f.History)))
	c.changedLocked()
	return nil
}

// ask requests question number questions+1 with the current history and
// appends it. At most one request per category is in flight.
func (c *Controller) ask(ctx context.Context, cat models.Category) error {
	c.mu.Lock()
	if c.busy[cat] {
		c.mu.Unlock()
		return ErrBusy
	}
	f := c.rel.Facet(cat)
	if n := len(f.History); f.Questions() >= models.MaxQuestions || (n > 0 && f.History[n-1].Role == models.RoleModel) {
		c.mu.Unlock()
		return nil
	}
	q := prompt.Question{
		Relationship: c.pair,
		Category:     models.PromptCategory(cat, c.rel.IsThirdParty()),
		Tags:         slices.Clone(f.Tags),
		History:      slices.Clone(f.History),
		Index:        f.Questions() + 1,
		Total:        models.MaxQuestions,
		ThirdParty:   c.rel.IsThirdParty(),
	}
	c.busy[cat] = true
	c.mu.Unlock()

	text, err := c.asker.Question(ctx, q)

	c.mu.Lock()
	c.busy[cat] = false
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("ask %s question %d: %w", cat, q.Index, err)
	}
	if strings.TrimSpace(text) == "" {
		text = q.Fallback()
	}
	f = c.rel.Facet(cat)
	if n := len(f.History); f.Questions() >= models.MaxQuestions || (n > 0 && f.History[n-1].Role == models.RoleModel) {
		// The history changed while the question was generated.
		c.mu.Unlock()
		return nil
	}
	f.History = append(slices.Clone(f.History), models.Turn{Role: models.RoleModel, Text: text})
	c.changedLocked()
	return nil
}

// changedLocked publishes the new version and releases c.mu. Versions
// reach onChange in mutation order; one overtaken by a newer version is
// dropped.
func (c *Controller) changedLocked() {
	c.version++
	v := c.version
	snap := cloneRelationship(c.rel)
	c.mu.Unlock()

	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if v <= c.published {
		return
	}
	c.published = v
	c.onChange(snap)
}

func cloneRelationship(r models.Relationship) models.Relationship {
	for _, cat := range models.Categories {
		f := r.Facet(cat)
		f.Tags = slices.Clone(f.Tags)
		f.History = slices.Clone(f.History)
	}
	return r
}
