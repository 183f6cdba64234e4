// Package session owns all in-flight conversation state: the typed Session
// record, the in-memory store with its on-disk mirror, and the periodic
// expiry sweep.
package session

import (
	"time"

	"github.com/matiasroldan/adambot/internal/validate"
)

// Stage is the phase a session is progressing through.
type Stage string

const (
	// StageIdle is the freshly created, not-yet-started stage.
	StageIdle Stage = "idle"

	// StageADAM runs the ADAM questionnaire.
	StageADAM Stage = "adam"

	// StageAMS runs the AMS questionnaire.
	StageAMS Stage = "ams"

	// StageLifestyle runs the lifestyle questionnaire.
	StageLifestyle Stage = "lifestyle"

	// StageConfirm awaits the user's confirmation of the collected answers.
	StageConfirm Stage = "confirm"

	// StageCompleted is terminal: results were delivered.
	StageCompleted Stage = "completed"

	// StageAbandoned is terminal: the session was reset or swept.
	StageAbandoned Stage = "abandoned"
)

// Terminal reports whether a stage admits no further answers.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageAbandoned
}

// Running reports whether the stage is collecting answers.
func (s Stage) Running() bool {
	return s == StageADAM || s == StageAMS || s == StageLifestyle
}

// Session is the per-user conversation state. Answers are kept per running
// stage; within the active stage len(answers) always equals Cursor.
type Session struct {
	UserID         int64                       `json:"user_id"`
	Stage          Stage                       `json:"stage"`
	Cursor         int                         `json:"cursor"`
	Answers        map[Stage][]validate.Answer `json:"answers"`
	CreatedAt      time.Time                   `json:"created_at"`
	LastActivityAt time.Time                   `json:"last_activity_at"`
	RetryCount     int                         `json:"retry_count"`
}

// New creates a session at StageIdle.
func New(userID int64, now time.Time) *Session {
	return &Session{
		UserID:         userID,
		Stage:          StageIdle,
		Answers:        make(map[Stage][]validate.Answer),
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// Clone returns a deep copy, so callers can mutate a working copy and only
// publish it once persistence succeeded.
func (s *Session) Clone() *Session {
	copied := *s
	copied.Answers = make(map[Stage][]validate.Answer, len(s.Answers))
	for stage, answers := range s.Answers {
		copied.Answers[stage] = append([]validate.Answer(nil), answers...)
	}
	return &copied
}

// StageAnswers returns the answers collected in the given stage.
func (s *Session) StageAnswers(stage Stage) []validate.Answer {
	return s.Answers[stage]
}

// Append records an accepted answer for the current stage and advances the
// cursor, keeping the cursor/answers invariant.
func (s *Session) Append(a validate.Answer) {
	s.Answers[s.Stage] = append(s.Answers[s.Stage], a)
	s.Cursor = len(s.Answers[s.Stage])
}

// TruncateStage drops the answers of stage from index onward. Used when the
// user amends an earlier answer during review.
func (s *Session) TruncateStage(stage Stage, index int) {
	answers := s.Answers[stage]
	if index < 0 {
		index = 0
	}
	if index < len(answers) {
		s.Answers[stage] = answers[:index]
	}
}

// ExpiredAt reports whether the session's inactivity exceeds ttl at now.
func (s *Session) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastActivityAt) > ttl
}
