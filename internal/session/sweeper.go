package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSweepInterval is the default interval between expiry sweeps.
const DefaultSweepInterval = 1 * time.Hour

// Sweeper periodically reclaims expired sessions from a Store. It also
// clears stale rate-limiter records when a cleaner is attached.
type Sweeper struct {
	store    *Store
	cleaner  StaleCleaner
	interval time.Duration
	logger   zerolog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// StaleCleaner removes stale per-user bookkeeping. The rate limiter
// satisfies it.
type StaleCleaner interface {
	CleanupStale(now time.Time) int
}

// NewSweeper creates a sweeper over the given store. A nil cleaner is
// allowed; a non-positive interval falls back to DefaultSweepInterval.
func NewSweeper(store *Store, cleaner StaleCleaner, interval time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:    store,
		cleaner:  cleaner,
		interval: interval,
		logger:   logger.With().Str("component", "session.sweeper").Logger(),
	}
}

// Start begins the periodic sweep loop.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(sweepCtx)

	return nil
}

// Stop gracefully stops the sweeper and waits for the loop to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}

	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// IsRunning returns whether the sweep loop is currently active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sweeper) run(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		if s.done != nil {
			close(s.done)
		}
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run an initial sweep so a restart reclaims anything that expired
	// while the process was down.
	s.sweep()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper stopping")
			return

		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	start := time.Now()
	now := s.store.clk.Now()

	removed := s.store.SweepExpired(now)
	stale := 0
	if s.cleaner != nil {
		stale = s.cleaner.CleanupStale(now)
	}

	if removed > 0 || stale > 0 {
		s.logger.Info().
			Int("sessions_removed", removed).
			Int("limiter_records_removed", stale).
			Dur("duration", time.Since(start)).
			Msg("sweep completed")
	}

	s.logger.Debug().Int("live_sessions", s.store.Len()).Msg("session stats after sweep")
}
