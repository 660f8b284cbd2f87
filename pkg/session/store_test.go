package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Items []string `json:"items"`
}

type fakeRemote struct {
	mu      sync.Mutex
	stored  doc
	saved   []doc
	loadErr error
	saveErr error
}

func (f *fakeRemote) Load(context.Context) (doc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stored, f.loadErr
}

func (f *fakeRemote) Save(_ context.Context, d doc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, d)
	f.stored = d
	return nil
}

func (f *fakeRemote) saves() []doc {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]doc(nil), f.saved...)
}

const delay = 30 * time.Millisecond

func TestMutationsCoalesce(t *testing.T) {
	r := &fakeRemote{stored: doc{Items: []string{"remote"}}}
	s := NewStore[doc]("test", r, doc{}, WithDelay(delay))
	require.NoError(t, s.Load(context.Background()))

	for _, v := range []string{"a", "b", "c"} {
		s.Mutate(func(d *doc) { d.Items = append(d.Items, v) })
	}
	require.Eventually(t, func() bool { return len(r.saves()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(2 * delay)

	saves := r.saves()
	require.Len(t, saves, 1)
	assert.Equal(t, []string{"remote", "a", "b", "c"}, saves[0].Items)
}

func TestNoSaveBeforeLoad(t *testing.T) {
	r := &fakeRemote{stored: doc{Items: []string{"existing"}}}
	s := NewStore[doc]("test", r, doc{}, WithDelay(delay))

	s.Mutate(func(d *doc) { d.Items = []string{"early"} })
	assert.Equal(t, []string{"early"}, s.Snapshot().Items)
	assert.False(t, s.Dirty())
	time.Sleep(3 * delay)
	assert.Empty(t, r.saves())

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, []string{"existing"}, s.Snapshot().Items)
}

func TestFailedLoadKeepsGateClosed(t *testing.T) {
	r := &fakeRemote{loadErr: errors.New("offline")}
	s := NewStore[doc]("test", r, doc{}, WithDelay(delay))
	require.Error(t, s.Load(context.Background()))
	assert.False(t, s.Loaded())

	s.Mutate(func(d *doc) { d.Items = []string{"x"} })
	time.Sleep(3 * delay)
	assert.Empty(t, r.saves())
}

func TestSaveFailureIsDropped(t *testing.T) {
	r := &fakeRemote{}
	var mu sync.Mutex
	var reported []string
	s := NewStore[doc]("cards", r, doc{}, WithDelay(delay), WithErrorHandler(func(name string, _ error) {
		mu.Lock()
		reported = append(reported, name)
		mu.Unlock()
	}))
	require.NoError(t, s.Load(context.Background()))

	r.mu.Lock()
	r.saveErr = errors.New("boom")
	r.mu.Unlock()
	s.Mutate(func(d *doc) { d.Items = []string{"kept"} })

	require.Eventually(t, func() bool { return s.Failures() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"kept"}, s.Snapshot().Items)
	mu.Lock()
	assert.Equal(t, []string{"cards"}, reported)
	mu.Unlock()

	r.mu.Lock()
	r.saveErr = nil
	r.mu.Unlock()
	s.Mutate(func(d *doc) { d.Items = append(d.Items, "next") })
	require.Eventually(t, func() bool { return len(r.saves()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"kept", "next"}, r.saves()[0].Items)
}

func TestFlushAndClose(t *testing.T) {
	r := &fakeRemote{}
	s := NewStore[doc]("test", r, doc{}, WithDelay(time.Hour))
	require.NoError(t, s.Load(context.Background()))

	require.NoError(t, s.Flush(context.Background()))
	assert.Empty(t, r.saves())

	s.Mutate(func(d *doc) { d.Items = []string{"now"} })
	assert.True(t, s.Dirty())
	require.NoError(t, s.Flush(context.Background()))
	require.Len(t, r.saves(), 1)
	assert.False(t, s.Dirty())

	s.Mutate(func(d *doc) { d.Items = []string{"dropped"} })
	s.Close()
	require.NoError(t, s.Flush(context.Background()))
	assert.Len(t, r.saves(), 1)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := NewStore[doc]("test", &fakeRemote{}, doc{Items: []string{"a"}})
	snap := s.Snapshot()
	snap.Items[0] = "changed"
	assert.Equal(t, "a", s.Snapshot().Items[0])
}

func TestSchedulerFiresOnce(t *testing.T) {
	s := NewScheduler(delay)
	var mu sync.Mutex
	var ran []int
	for i := 0; i < 5; i++ {
		s.Arm(func() {
			mu.Lock()
			ran = append(ran, i)
			mu.Unlock()
		})
	}
	time.Sleep(4 * delay)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{4}, ran)
	assert.False(t, s.Flush())
}
