package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xs2acms/pkg/platform/circuit"
)

type flakyStore struct {
	fail  bool
	calls int
	*InMemoryStore
}

func (f *flakyStore) Append(ctx context.Context, event Event) error {
	f.calls++
	if f.fail {
		return errors.New("broker unavailable")
	}
	return f.InMemoryStore.Append(ctx, event)
}

func TestFallbackStore(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	primary := &flakyStore{InMemoryStore: NewInMemoryStore()}
	fallback := NewInMemoryStore()
	breaker := circuit.New("kafka", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Minute), circuit.WithClock(clock))
	store := NewFallbackStore(primary, fallback, breaker, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Event{EntityID: "c-1"}))
	events, _ := primary.ListByEntity(ctx, "c-1")
	assert.Len(t, events, 1)

	primary.fail = true
	require.NoError(t, store.Append(ctx, Event{EntityID: "c-2"}))
	require.NoError(t, store.Append(ctx, Event{EntityID: "c-3"}))
	assert.Equal(t, circuit.StateOpen, breaker.State())
	assert.Equal(t, 3, primary.calls)

	require.NoError(t, store.Append(ctx, Event{EntityID: "c-4"}))
	assert.Equal(t, 3, primary.calls, "open circuit skips the primary")
	for _, entity := range []string{"c-2", "c-3", "c-4"} {
		events, _ := fallback.ListByEntity(ctx, entity)
		assert.Len(t, events, 1, entity)
	}

	primary.fail = false
	now = now.Add(time.Minute)
	require.NoError(t, store.Append(ctx, Event{EntityID: "c-5"}))
	assert.Equal(t, circuit.StateClosed, breaker.State())
	events, _ = primary.ListByEntity(ctx, "c-5")
	assert.Len(t, events, 1)
}
