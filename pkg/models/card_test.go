package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	require.Len(t, Cards, 14)
	seen := map[string]bool{}
	for _, c := range Cards {
		assert.False(t, seen[c.ID], "duplicate %s", c.ID)
		seen[c.ID] = true
		assert.Equal(t, c.ID == DailyCardID, c.Evergreen, c.ID)
	}
	c, ok := CardByID("scary_sacrifice")
	require.True(t, ok)
	assert.Equal(t, CardTypeUser, c.Type)
}

func TestCompletedToday(t *testing.T) {
	loc := time.FixedZone("test", -5*3600)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, loc)
	daily, _ := CardByID(DailyCardID)
	swot, _ := CardByID("career_swot")

	session := func(ts time.Time) *CardSession {
		return &CardSession{CardID: DailyCardID, Messages: []Message{NewMessage(RoleUser, "x", ts)}}
	}

	assert.True(t, CompletedToday(daily, session(now.Add(-8*time.Hour)), now))
	assert.False(t, CompletedToday(daily, session(now.Add(-10*time.Hour)), now))
	assert.False(t, CompletedToday(daily, nil, now))
	assert.False(t, CompletedToday(daily, &CardSession{CardID: DailyCardID}, now))
	assert.False(t, CompletedToday(swot, session(now), now))
}

func TestDisplayCards(t *testing.T) {
	doc := &CardSessions{}
	doc.Upsert("blind_spots").Messages = []Message{{ID: "1", Role: RoleModel, Text: "hi"}}
	doc.Upsert(DailyCardID).Messages = []Message{{ID: "2", Role: RoleUser, Text: "tea"}}

	all := DisplayCards("All", doc)
	require.Len(t, all, 14)
	assert.Equal(t, DailyCardID, all[0].ID)
	assert.Equal(t, "blind_spots", all[len(all)-1].ID)

	done := DisplayCards(FilterCompleted, doc)
	require.Len(t, done, 1)
	assert.Equal(t, "blind_spots", done[0].ID)

	for _, c := range DisplayCards(CardCategoryShadow, nil) {
		assert.Equal(t, CardCategoryShadow, c.Category)
	}
}

func TestTranscriptSummaryBookkeeping(t *testing.T) {
	var tr ChatTranscript
	for i := 0; i < SummaryThreshold; i++ {
		tr.Messages = append(tr.Messages, NewMessage(RoleUser, "m", time.Now()))
	}
	assert.True(t, tr.NeedsSummary())
	ids := []string{tr.Messages[0].ID, tr.Messages[1].ID}
	tr.MarkSummarized(ids)
	assert.Len(t, tr.Unsummarized(), SummaryThreshold-2)
	assert.False(t, tr.NeedsSummary())

	tr.AppendSummary("one")
	tr.AppendSummary("two")
	assert.Equal(t, "one\n\ntwo", tr.ClinicalSummary)

	assert.True(t, tr.Delete(ids[0]))
	assert.False(t, tr.Delete(ids[0]))
}

func TestProviderPreset(t *testing.T) {
	cfg := ProviderConfig{Provider: ProviderClaude}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, "claude-sonnet-4-6", cfg.Model)
	assert.Equal(t, 4096, cfg.MaxTokens)

	p, err := Preset(ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-pro-preview", p.DefaultModel)

	_, err = Preset("nope")
	assert.Error(t, err)
}
