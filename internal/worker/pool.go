// Package worker runs the bounded pool that processes inbound transport
// events. Handling one event is a short unit of work; only the session
// store's mirror write may block on I/O inside it.
package worker

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultWorkers is the default pool size.
	DefaultWorkers = 4

	// DefaultQueueSize bounds both the inbound and outbound channels.
	DefaultQueueSize = 64
)

// Event is one inbound message from the transport.
type Event struct {
	UserID int64
	Text   string
	At     time.Time
}

// Reply is the text to deliver back to a user.
type Reply struct {
	UserID int64
	Text   string
}

// Handler turns one inbound event into a reply.
type Handler interface {
	Handle(userID int64, rawText string) string
}

// Pool processes events with a fixed set of workers. A panicking handler
// loses only the event being processed; the worker recovers and keeps
// consuming.
type Pool struct {
	handler Handler
	logger  zerolog.Logger
	workers int

	events  chan Event
	replies chan Reply

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool creates a pool over the given handler. Non-positive sizes fall
// back to the defaults.
func NewPool(handler Handler, workers, queueSize int, logger zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Pool{
		handler: handler,
		logger:  logger.With().Str("component", "worker.pool").Logger(),
		workers: workers,
		events:  make(chan Event, queueSize),
		replies: make(chan Reply, queueSize),
	}
}

// Events is the inbound channel the transport submits to.
func (p *Pool) Events() chan<- Event {
	return p.events
}

// Replies is the outbound channel the transport delivers from. It is closed
// once Stop completes.
func (p *Pool) Replies() <-chan Reply {
	return p.replies
}

// Submit enqueues an event, dropping it if the queue is full or the pool is
// stopping. Dropping is preferable to blocking the transport.
func (p *Pool) Submit(ev Event) bool {
	select {
	case p.events <- ev:
		return true
	default:
		p.logger.Warn().Int64("user_id", ev.UserID).Msg("event queue full, dropping event")
		return false
	}
}

// Start launches the workers. It is a no-op if the pool is already running.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	poolCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(poolCtx, i)
	}

	p.logger.Info().Int("workers", p.workers).Msg("worker pool started")
	return nil
}

// Stop cancels the workers, waits for in-flight events to finish, and
// closes the replies channel.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	close(p.replies)

	p.logger.Info().Msg("worker pool stopped")
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	logger := p.logger.With().Int("worker_id", id).Logger()
	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("worker shutting down")
			return

		case ev := <-p.events:
			p.process(ctx, logger, ev)
		}
	}
}

// process handles one event with panic recovery.
func (p *Pool) process(ctx context.Context, logger zerolog.Logger, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Int64("user_id", ev.UserID).
				Interface("panic", r).
				Str("stack_trace", string(debug.Stack())).
				Msg("panic while handling event")
		}
	}()

	text := p.handler.Handle(ev.UserID, ev.Text)
	if text == "" {
		return
	}

	select {
	case p.replies <- Reply{UserID: ev.UserID, Text: text}:
	case <-ctx.Done():
	}
}
