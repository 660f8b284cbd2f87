package progress

import (
	"testing"

	"github.com/andrewsamuelsen/bowen/pkg/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		k, n int
		want int
	}{
		{0, 0, 0},
		{1, 0, 10},
		{3, 0, 30},
		{0, 1, 5},
		{0, 2, 9},
		{1, 3, 24},
		{3, 15, 100},
		{3, 20, 100},
		{2, 10, 67},
	}
	for _, tt := range tests {
		if got := Score(tt.k, tt.n); got != tt.want {
			t.Fatalf("Score(%d, %d) = %d, want %d", tt.k, tt.n, got, tt.want)
		}
	}
}

func TestScoreMonotonic(t *testing.T) {
	for k := 0; k <= 3; k++ {
		prev := -1
		for n := 0; n <= 20; n++ {
			s := Score(k, n)
			if s < prev || s > 100 {
				t.Fatalf("Score(%d, %d) = %d after %d", k, n, s, prev)
			}
			prev = s
		}
	}
}

func TestForRelationship(t *testing.T) {
	r := &models.Relationship{Source: models.SelfID, Target: "p1"}
	if got := ForRelationship(r); got != 0 {
		t.Fatalf("empty relationship scored %d", got)
	}
	r.General.Tags = []string{"Close"}
	r.General.History = []models.Turn{
		{Role: models.RoleModel, Text: "q1"},
		{Role: models.RoleUser, Text: "a1"},
		{Role: models.RoleModel, Text: "q2"},
	}
	r.After.History = []models.Turn{{Role: models.RoleUser, Text: "orphan answer"}}
	if got := ForRelationship(r); got != 19 {
		t.Fatalf("ForRelationship = %d, want 19", got)
	}
	if ForRelationship(nil) != 0 {
		t.Fatalf("nil relationship should score 0")
	}
}

func TestBands(t *testing.T) {
	cases := map[int]Band{0: BandEmpty, 1: BandStarted, 29: BandStarted, 30: BandPartial, 69: BandPartial, 70: BandDeep, 100: BandDeep}
	for score, want := range cases {
		if got := BandOf(score); got != want {
			t.Fatalf("BandOf(%d) = %s, want %s", score, got, want)
		}
	}
	if Segments(100, 6) != 6 || Segments(1, 6) != 1 || Segments(0, 6) != 0 {
		t.Fatalf("unexpected segment count")
	}
}
