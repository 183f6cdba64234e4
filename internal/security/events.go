// Package security defines security event records and the log that collects
// them. Events are emitted by the rate limiter and the input gate whenever a
// request is denied or a malicious pattern is detected.
package security

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// maxRetainedEvents bounds the in-memory event ring.
const maxRetainedEvents = 1000

// EventKind classifies a security event.
type EventKind string

const (
	// RateLimitExceeded marks a request denied by the rate limiter.
	RateLimitExceeded EventKind = "rate_limit_exceeded"

	// MaliciousInput marks input that matched a malicious pattern.
	MaliciousInput EventKind = "malicious_input"

	// InvalidInputRepeated marks a user accumulating repeated validation failures.
	InvalidInputRepeated EventKind = "invalid_input_repeated"
)

// Severity grades a security event.
type Severity string

const (
	// SeverityLow is informational.
	SeverityLow Severity = "low"

	// SeverityMedium warrants attention.
	SeverityMedium Severity = "medium"

	// SeverityHigh indicates likely abuse.
	SeverityHigh Severity = "high"
)

// Event is a single security event record.
type Event struct {
	UserID   int64
	Kind     EventKind
	Severity Severity
	Detail   string
	At       time.Time
}

// Log collects security events, retaining the most recent ones for
// inspection and forwarding each to the structured logger.
type Log struct {
	logger zerolog.Logger

	mu     sync.Mutex
	events []Event
}

// NewLog creates a security event log writing through the given logger.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "security").Logger()}
}

// Record stores the event and emits a structured log line at a level
// matching its severity.
func (l *Log) Record(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	if len(l.events) > maxRetainedEvents {
		l.events = l.events[len(l.events)-maxRetainedEvents:]
	}
	l.mu.Unlock()

	var entry *zerolog.Event
	switch ev.Severity {
	case SeverityHigh:
		entry = l.logger.Error()
	case SeverityMedium:
		entry = l.logger.Warn()
	default:
		entry = l.logger.Info()
	}
	entry.
		Int64("user_id", ev.UserID).
		Str("event_kind", string(ev.Kind)).
		Str("severity", string(ev.Severity)).
		Time("at", ev.At).
		Msg(ev.Detail)
}

// Recent returns up to limit most recent events for the given user;
// userID 0 matches all users.
func (l *Log) Recent(userID int64, limit int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Event
	for i := len(l.events) - 1; i >= 0 && len(out) < limit; i-- {
		if userID != 0 && l.events[i].UserID != userID {
			continue
		}
		out = append(out, l.events[i])
	}
	return out
}
