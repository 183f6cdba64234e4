// Package ratelimit implements the per-user sliding-window request limiter
// with escalating block durations.
package ratelimit

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/matiasroldan/adambot/internal/security"
)

// Limiter defaults.
const (
	// DefaultWindow is the sliding window length.
	DefaultWindow = time.Minute

	// DefaultCeiling is the maximum requests per window.
	DefaultCeiling = 10

	// DefaultBasePenalty is the first block duration.
	DefaultBasePenalty = time.Minute

	// DefaultMaxPenalty caps the escalating block duration.
	DefaultMaxPenalty = time.Hour
)

// Config holds limiter tuning. Zero values fall back to the defaults.
type Config struct {
	Window      time.Duration
	Ceiling     int
	BasePenalty time.Duration
	MaxPenalty  time.Duration

	// AllowList holds administrative user ids exempt from limiting.
	AllowList []int64
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Ceiling <= 0 {
		c.Ceiling = DefaultCeiling
	}
	if c.BasePenalty <= 0 {
		c.BasePenalty = DefaultBasePenalty
	}
	if c.MaxPenalty <= 0 {
		c.MaxPenalty = DefaultMaxPenalty
	}
	return c
}

// window tracks one user's request history and block state. violations
// counts blocks imposed since the window was last reclaimed as stale, so
// repeat offenders earn geometrically longer penalties.
type window struct {
	stamps       []time.Time
	blockedUntil time.Time
	violations   int
}

// Limiter is the per-user sliding-window rate limiter. All methods are safe
// for concurrent use.
type Limiter struct {
	cfg     Config
	events  *security.Log
	logger  zerolog.Logger
	allowed map[int64]struct{}

	mu      sync.Mutex
	windows map[int64]*window
}

// New creates a Limiter. events may be nil when denial records are not wanted.
func New(cfg Config, events *security.Log, logger zerolog.Logger) *Limiter {
	cfg = cfg.withDefaults()
	allowed := make(map[int64]struct{}, len(cfg.AllowList))
	for _, id := range cfg.AllowList {
		allowed[id] = struct{}{}
	}
	return &Limiter{
		cfg:     cfg,
		events:  events,
		logger:  logger.With().Str("component", "ratelimit").Logger(),
		allowed: allowed,
		windows: make(map[int64]*window),
	}
}

// CheckAndRecord evicts stale timestamps, applies the block state, and either
// records the request or denies it. Denied requests never consume window
// capacity. Every denial emits a RateLimitExceeded security event.
func (l *Limiter) CheckAndRecord(userID int64, now time.Time) bool {
	if _, ok := l.allowed[userID]; ok {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[userID]
	if !ok {
		w = &window{}
		l.windows[userID] = w
	}

	w.evict(now.Add(-l.cfg.Window))

	if now.Before(w.blockedUntil) {
		l.deny(userID, now, "request while blocked")
		return false
	}

	if len(w.stamps) >= l.cfg.Ceiling {
		w.violations++
		penalty := l.penalty(w.violations)
		w.blockedUntil = now.Add(penalty)
		l.deny(userID, now, "ceiling exceeded, blocked for "+penalty.String())
		return false
	}

	w.stamps = append(w.stamps, now)
	return true
}

// BlockedUntil reports when the user's current block expires; the zero time
// means not blocked.
func (l *Limiter) BlockedUntil(userID int64) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.windows[userID]; ok {
		return w.blockedUntil
	}
	return time.Time{}
}

// CleanupStale drops windows with no activity since the cutoff and no live
// block, and returns the number removed.
func (l *Limiter) CleanupStale(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.cfg.Window)
	removed := 0
	for id, w := range l.windows {
		w.evict(cutoff)
		if len(w.stamps) == 0 && !now.Before(w.blockedUntil) {
			delete(l.windows, id)
			removed++
		}
	}
	return removed
}

// penalty escalates geometrically with consecutive violations, capped.
func (l *Limiter) penalty(violations int) time.Duration {
	penalty := l.cfg.BasePenalty
	for i := 1; i < violations; i++ {
		penalty *= 2
		if penalty >= l.cfg.MaxPenalty {
			return l.cfg.MaxPenalty
		}
	}
	if penalty > l.cfg.MaxPenalty {
		penalty = l.cfg.MaxPenalty
	}
	return penalty
}

// deny emits the security event for a rejected request. Caller holds l.mu.
func (l *Limiter) deny(userID int64, now time.Time, detail string) {
	if l.events != nil {
		l.events.Record(security.Event{
			UserID:   userID,
			Kind:     security.RateLimitExceeded,
			Severity: security.SeverityMedium,
			Detail:   detail,
			At:       now,
		})
	}
}

// evict drops timestamps at or before the cutoff. Stamps are appended in
// arrival order, so the slice stays sorted.
func (w *window) evict(cutoff time.Time) {
	keep := 0
	for keep < len(w.stamps) && !w.stamps[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[keep:]...)
	}
}
