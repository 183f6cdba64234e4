package ratelimit_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasroldan/adambot/internal/ratelimit"
	"github.com/matiasroldan/adambot/internal/security"
)

func newLimiter(cfg ratelimit.Config) (*ratelimit.Limiter, *security.Log) {
	events := security.NewLog(zerolog.Nop())
	return ratelimit.New(cfg, events, zerolog.Nop()), events
}

func TestCheckAndRecord_CeilingDeniesEleventh(t *testing.T) {
	l, events := newLimiter(ratelimit.Config{})
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		require.True(t, l.CheckAndRecord(7, start.Add(time.Duration(i)*time.Second)), "request %d", i+1)
	}

	// The 11th request within the same 60 seconds is rejected.
	assert.False(t, l.CheckAndRecord(7, start.Add(30*time.Second)))

	// A second user in the same window is unaffected.
	assert.True(t, l.CheckAndRecord(8, start.Add(30*time.Second)))

	recorded := events.Recent(7, 10)
	require.Len(t, recorded, 1)
	assert.Equal(t, security.RateLimitExceeded, recorded[0].Kind)
}

func TestCheckAndRecord_WindowSlides(t *testing.T) {
	l, _ := newLimiter(ratelimit.Config{Ceiling: 3})
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.True(t, l.CheckAndRecord(1, start.Add(time.Duration(i)*time.Second)))
	}

	// 61 seconds later everything has slid out of the window.
	assert.True(t, l.CheckAndRecord(1, start.Add(61*time.Second)))
}

func TestCheckAndRecord_BlockedRequestsConsumeNoCapacity(t *testing.T) {
	l, events := newLimiter(ratelimit.Config{Ceiling: 2, BasePenalty: 5 * time.Minute})
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, l.CheckAndRecord(1, start))
	require.True(t, l.CheckAndRecord(1, start.Add(time.Second)))
	require.False(t, l.CheckAndRecord(1, start.Add(2*time.Second)))

	blockedUntil := l.BlockedUntil(1)
	assert.Equal(t, start.Add(2*time.Second).Add(5*time.Minute), blockedUntil)

	// While blocked, every request is rejected and logged.
	for i := 0; i < 3; i++ {
		assert.False(t, l.CheckAndRecord(1, start.Add(time.Duration(10+i)*time.Second)))
	}
	assert.Len(t, events.Recent(1, 100), 4)

	// After the block expires (and the window has drained) requests flow again.
	assert.True(t, l.CheckAndRecord(1, blockedUntil.Add(time.Second)))
}

func TestPenalty_EscalatesGeometricallyAndCaps(t *testing.T) {
	l, _ := newLimiter(ratelimit.Config{
		Ceiling:     1,
		BasePenalty: time.Minute,
		MaxPenalty:  4 * time.Minute,
	})
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	expected := []time.Duration{time.Minute, 2 * time.Minute, 4 * time.Minute, 4 * time.Minute}
	for i, want := range expected {
		require.True(t, l.CheckAndRecord(1, now), "violation %d setup", i+1)
		require.False(t, l.CheckAndRecord(1, now.Add(time.Second)))
		assert.Equal(t, now.Add(time.Second).Add(want), l.BlockedUntil(1), "violation %d", i+1)

		// Jump past both the block and the window before the next round.
		now = l.BlockedUntil(1).Add(2 * time.Minute)
	}
}

func TestAllowList(t *testing.T) {
	l, events := newLimiter(ratelimit.Config{Ceiling: 1, AllowList: []int64{99}})
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 50; i++ {
		assert.True(t, l.CheckAndRecord(99, now.Add(time.Duration(i)*time.Millisecond)))
	}
	assert.Empty(t, events.Recent(99, 10))
}

func TestCleanupStale(t *testing.T) {
	l, _ := newLimiter(ratelimit.Config{Ceiling: 5})
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, l.CheckAndRecord(1, start))
	require.True(t, l.CheckAndRecord(2, start))

	// Nothing is stale inside the window.
	assert.Zero(t, l.CleanupStale(start.Add(30*time.Second)))

	// Both windows have drained a minute later.
	assert.Equal(t, 2, l.CleanupStale(start.Add(2*time.Minute)))
}

func TestCleanupStale_KeepsLiveBlocks(t *testing.T) {
	l, _ := newLimiter(ratelimit.Config{Ceiling: 1, BasePenalty: 10 * time.Minute})
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, l.CheckAndRecord(1, start))
	require.False(t, l.CheckAndRecord(1, start.Add(time.Second)))

	// The window is empty after a minute but the block is live, so the
	// entry must survive the cleanup.
	assert.Zero(t, l.CleanupStale(start.Add(2*time.Minute)))
	assert.False(t, l.CheckAndRecord(1, start.Add(3*time.Minute)))
}
