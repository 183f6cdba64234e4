package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasroldan/adambot/internal/clock"
)

type countingCleaner struct {
	calls int
}

func (c *countingCleaner) CleanupStale(time.Time) int {
	c.calls++
	return 0
}

func TestSweeperReclaimsExpiredSessions(t *testing.T) {
	clk := clock.NewFake(testStart())
	store := NewStore(NoopMirror{}, clk, time.Hour, zerolog.Nop())

	require.NoError(t, store.Put(New(1, clk.Now())))
	clk.Advance(2 * time.Hour)
	require.NoError(t, store.Put(New(2, clk.Now())))

	cleaner := &countingCleaner{}
	sweeper := NewSweeper(store, cleaner, 10*time.Millisecond, zerolog.Nop())
	require.NoError(t, sweeper.Start(context.Background()))
	defer sweeper.Stop()

	assert.Eventually(t, func() bool {
		_, stale := store.Get(1)
		_, live := store.Get(2)
		return !stale && live
	}, time.Second, 5*time.Millisecond, "sweeper should reclaim only the expired session")

	assert.Eventually(t, func() bool {
		return cleaner.calls > 0
	}, time.Second, 5*time.Millisecond, "attached cleaner should run with the sweep")
}

func TestSweeperStartStop(t *testing.T) {
	clk := clock.NewFake(testStart())
	store := NewStore(NoopMirror{}, clk, time.Hour, zerolog.Nop())
	sweeper := NewSweeper(store, nil, 10*time.Millisecond, zerolog.Nop())

	assert.False(t, sweeper.IsRunning())
	require.NoError(t, sweeper.Start(context.Background()))
	assert.True(t, sweeper.IsRunning())

	// Starting again is a no-op.
	require.NoError(t, sweeper.Start(context.Background()))

	sweeper.Stop()
	assert.False(t, sweeper.IsRunning())

	// Stopping twice is safe.
	sweeper.Stop()
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
	clk := clock.NewFake(testStart())
	store := NewStore(NoopMirror{}, clk, time.Hour, zerolog.Nop())
	sweeper := NewSweeper(store, nil, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sweeper.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		return !sweeper.IsRunning()
	}, time.Second, 5*time.Millisecond)
}
