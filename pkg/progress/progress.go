// Package progress scores how complete a relationship profile is.
package progress

import (
	"math"

	"github.com/andrewsamuelsen/bowen/pkg/models"
)

const (
	tagPoints    = 10
	answerPoints = 70.0 / 15
)

// Score maps the number of tagged categories and answered questions to a
// percentage in [0, 100].
func Score(taggedCategories, answers int) int {
	s := math.Round(float64(tagPoints*taggedCategories) + float64(answers)*answerPoints)
	return int(math.Min(100, s))
}

// ForRelationship derives the score from the relationship content. It is
// never stored.
func ForRelationship(r *models.Relationship) int {
	if r == nil {
		return 0
	}
	k, n := 0, 0
	for _, c := range models.Categories {
		f := r.Facet(c)
		if len(f.Tags) > 0 {
			k++
		}
		n += f.Answers()
	}
	return Score(k, n)
}

// Band is the presentation tier of a score.
type Band int

const (
	BandEmpty Band = iota
	BandStarted
	BandPartial
	BandDeep
)

// BandOf buckets a score at 0, under 30, under 70 and the rest.
func BandOf(score int) Band {
	switch {
	case score <= 0:
		return BandEmpty
	case score < 30:
		return BandStarted
	case score < 70:
		return BandPartial
	}
	return BandDeep
}

func (b Band) String() string {
	switch b {
	case BandStarted:
		return "started"
	case BandPartial:
		return "partial"
	case BandDeep:
		return "deep"
	}
	return "empty"
}

// Segments is the number of lit segments of a ring with total segments.
func Segments(score, total int) int {
	return int(math.Ceil(float64(score) / 100 * float64(total)))
}
