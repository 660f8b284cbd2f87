package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyRelationshipMigrates(t *testing.T) {
	raw := `{
		"id": "eme-p1", "source": "me", "target": "p1",
		"data": {"responses": {
			"General Tags": "Close, Loving",
			"General History": "[{\"role\":\"model\",\"text\":\"Q1\"},{\"role\":\"user\",\"text\":\"A1\"}]",
			"Dynamic Tags": "Tense",
			"Dynamic History": "not json",
			"Dynamic AI Prompt": "How?",
			"Dynamic Explanation": "Like this",
			"After Tags": "",
			"Notes": "call more"
		}}
	}`
	var r Relationship
	require.NoError(t, json.Unmarshal([]byte(raw), &r))

	assert.Equal(t, []string{"Close", "Loving"}, r.General.Tags)
	assert.Equal(t, []Turn{{RoleModel, "Q1"}, {RoleUser, "A1"}}, r.General.History)
	assert.Equal(t, []string{"Tense"}, r.Dynamic.Tags)
	assert.Equal(t, []Turn{{RoleModel, "How?"}, {RoleUser, "Like this"}}, r.Dynamic.History)
	assert.Empty(t, r.After.Tags)
	assert.Equal(t, "call more", r.Notes)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "responses")
}

func TestParseLegacyHistory(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		want   []Turn
	}{
		{"empty", "", nil},
		{"object json", `{"a":1}`, nil},
		{"array", `[{"role":"user","text":"x"}]`, []Turn{{RoleUser, "x"}}},
		{"fallback", "garbage", []Turn{{RoleModel, "P"}, {RoleUser, "E"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLegacyHistory(tt.stored, "P", "E"))
		})
	}
}

func TestExplanation(t *testing.T) {
	got := Explanation([]Turn{{RoleModel, "Why?"}, {RoleUser, "Because."}})
	assert.Equal(t, "Prompt: Why?\n\nYou: Because.", got)
	assert.Empty(t, Explanation(nil))
}

func TestRelationshipEmpty(t *testing.T) {
	r := Relationship{Source: "a", Target: "b"}
	assert.True(t, r.Empty())
	assert.True(t, r.IsThirdParty())
	r.Notes = "  "
	assert.True(t, r.Empty())
	r.After.Tags = []string{"Mediator"}
	assert.False(t, r.Empty())
}

func TestPromptCategory(t *testing.T) {
	assert.Equal(t, "after", PromptCategory(CategoryAfter, false))
	assert.Equal(t, ImpactCategoryName, PromptCategory(CategoryAfter, true))
	assert.Equal(t, "dynamic", PromptCategory(CategoryDynamic, true))
	assert.Contains(t, TagsFor(CategoryAfter, true).Options, "Mediator")
	assert.Contains(t, TagsFor(CategoryAfter, false).Options, "Drained")
	assert.Equal(t, "When they are together, what is their dynamic?", TagsFor(CategoryDynamic, true).Question(true))
}
