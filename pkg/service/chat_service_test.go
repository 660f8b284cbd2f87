package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andrewsamuelsen/bowen/pkg/models"
	"github.com/andrewsamuelsen/bowen/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStreamer struct {
	chunks []string
	usage  models.Usage
	err    error
}

func (f *fakeStreamer) Stream(_ context.Context, _ models.ChatRequest, onChunk func(string) error) (models.Usage, error) {
	for _, c := range f.chunks {
		if err := onChunk(c); err != nil {
			return models.Usage{}, err
		}
	}
	return f.usage, f.err
}

type usageLog struct {
	calls []models.Usage
}

func (u *usageLog) RecordUsage(_ context.Context, _ string, usage models.Usage) {
	u.calls = append(u.calls, usage)
}

func TestCompleteRecordsUsage(t *testing.T) {
	usage := &usageLog{}
	svc := NewChatService(&fakeStreamer{chunks: []string{"a", "b"}, usage: models.Usage{InputTokens: 4, OutputTokens: 2}}, usage, nil)

	var got []string
	err := svc.Complete(context.Background(), "u1", models.ChatRequest{Message: "hi"}, func(c string) error {
		got = append(got, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, []models.Usage{{InputTokens: 4, OutputTokens: 2}}, usage.calls)
}

func TestCompleteFailureSkipsUsage(t *testing.T) {
	usage := &usageLog{}
	boom := errors.New("boom")
	svc := NewChatService(&fakeStreamer{chunks: []string{"a"}, usage: models.Usage{InputTokens: 1}, err: boom}, usage, nil)

	err := svc.Complete(context.Background(), "u1", models.ChatRequest{Message: "hi"}, func(string) error { return nil })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, usage.calls)

	svc = NewChatService(&fakeStreamer{chunks: []string{"a"}}, usage, nil)
	require.NoError(t, svc.Complete(context.Background(), "u1", models.ChatRequest{Message: "hi"}, func(string) error { return nil }))
	assert.Empty(t, usage.calls, "calls without reported usage are not recorded")
}

func TestValidate(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryCounter(), 1, time.Minute, "USER")
	svc := NewChatService(&fakeStreamer{}, &usageLog{}, limiter)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Validate(ctx, "u1", models.ChatRequest{}), ErrInvalidRequest)
	require.NoError(t, svc.Validate(ctx, "u1", models.ChatRequest{Message: "hi"}))
	assert.ErrorIs(t, svc.Validate(ctx, "u1", models.ChatRequest{Message: "again"}), ErrRateLimited)
	assert.NoError(t, svc.Validate(ctx, "u2", models.ChatRequest{Message: "hi"}))
}
