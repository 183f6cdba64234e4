// Package engine implements the conversation state machine: it sequences
// questionnaire items, validates each answer, and drives every session
// transition through the store.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/matiasroldan/adambot/internal/clock"
	"github.com/matiasroldan/adambot/internal/instrument"
	"github.com/matiasroldan/adambot/internal/session"
	"github.com/matiasroldan/adambot/internal/validate"
)

const (
	// maxPutAttempts bounds the persist retry loop. Writes happen inline
	// in request handling, so the backoff stays short.
	maxPutAttempts = 3
	basePutDelay   = 100 * time.Millisecond
	maxPutDelay    = time.Second
)

// transitions maps each stage to its successor in the normal forward flow.
var transitions = map[session.Stage]session.Stage{
	session.StageIdle:      session.StageADAM,
	session.StageADAM:      session.StageAMS,
	session.StageAMS:       session.StageLifestyle,
	session.StageLifestyle: session.StageConfirm,
	session.StageConfirm:   session.StageCompleted,
}

// stageInstruments maps running stages to their instrument.
var stageInstruments = map[session.Stage]instrument.ID{
	session.StageADAM:      instrument.ADAM,
	session.StageAMS:       instrument.AMS,
	session.StageLifestyle: instrument.Lifestyle,
}

// instrumentStages is the reverse of stageInstruments, used during review.
var instrumentStages = map[instrument.ID]session.Stage{
	instrument.ADAM:      session.StageADAM,
	instrument.AMS:       session.StageAMS,
	instrument.Lifestyle: session.StageLifestyle,
}

// Outcome is what a transition hands back for delivery to the user.
type Outcome struct {
	Stage     session.Stage
	Cursor    int
	Reply     string           // announcement or feedback text, may be empty
	Prompt    string           // next question to ask, empty when none
	Rejection *validate.Result // set when an answer was rejected
	Retries   int              // consecutive failures on the current item
	Report    string           // final results, set once completed
}

// Progress is the read-only view returned by Status.
type Progress struct {
	Stage      session.Stage
	Cursor     int
	StageTotal int
	Answered   int
	Total      int
}

// Engine drives all session transitions. All its methods serialize per user
// through the store's per-user lock and never block each other across users.
type Engine struct {
	store  *session.Store
	clk    clock.Clock
	logger zerolog.Logger
}

// New creates an engine over the given store.
func New(store *session.Store, clk clock.Clock, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		clk:    clk,
		logger: logger.With().Str("component", "engine").Logger(),
	}
}

// Start begins a fresh questionnaire. If a live session is mid-flight it
// offers to resume instead of silently discarding collected answers; a
// terminal or expired session is replaced.
func (e *Engine) Start(userID int64) (Outcome, error) {
	lock := e.store.Acquire(userID)
	lock.Lock()
	defer lock.Unlock()

	now := e.clk.Now()

	if sess, ok := e.store.Get(userID); ok && !sess.ExpiredAt(now, e.store.TTL()) && !sess.Stage.Terminal() {
		return e.resumeOffer(sess), nil
	}

	sess := session.New(userID, now)
	sess.Stage = transitions[session.StageIdle]
	sess.LastActivityAt = now

	if err := e.putWithRetry(sess); err != nil {
		return Outcome{}, err
	}

	e.logger.Info().Int64("user_id", userID).Msg("session started")
	return Outcome{
		Stage:  sess.Stage,
		Cursor: 0,
		Reply: "👋 ¡Hola! Este cuestionario evalúa posibles síntomas de déficit de testosterona " +
			"mediante los cuestionarios ADAM y AMS más algunas preguntas de estilo de vida.\n\n" +
			"📋 Comenzamos con el " + instrument.Name(instrument.ADAM) + ". Responde 'sí' o 'no'.",
		Prompt: e.prompt(sess),
	}, nil
}

// SubmitAnswer validates the raw text against the current item and either
// advances the session or returns the rejection. Rejections touch only the
// retry counter, never the stage, cursor, or activity timestamp.
func (e *Engine) SubmitAnswer(userID int64, rawText string) (Outcome, error) {
	lock := e.store.Acquire(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := e.store.Get(userID)
	if !ok {
		return Outcome{}, ErrNoSession
	}
	if !sess.Stage.Running() {
		return Outcome{}, e.abandonOnFault(sess, "submit_answer")
	}

	items := instrument.Items(stageInstruments[sess.Stage])
	item := items[sess.Cursor]

	result := validate.Check(item.Kind, validate.Sanitize(rawText))
	if !result.Accepted {
		sess.RetryCount++
		if err := e.putWithRetry(sess); err != nil {
			return Outcome{}, err
		}
		rejection := result
		rejection.Help = validate.EscalatedHelp(result, item.Kind, sess.RetryCount)
		e.logger.Debug().
			Int64("user_id", userID).
			Str("item", item.ID).
			Str("error_kind", string(result.ErrKind)).
			Int("retry_count", sess.RetryCount).
			Msg("answer rejected")
		return Outcome{
			Stage:     sess.Stage,
			Cursor:    sess.Cursor,
			Rejection: &rejection,
			Retries:   sess.RetryCount,
			Prompt:    item.Prompt,
		}, nil
	}

	sess.Append(result.Answer)
	sess.RetryCount = 0
	sess.LastActivityAt = e.clk.Now()

	var reply string
	if sess.Cursor == len(items) {
		reply = e.advanceStage(sess)
	}

	if err := e.putWithRetry(sess); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Stage:  sess.Stage,
		Cursor: sess.Cursor,
		Reply:  reply,
		Prompt: e.prompt(sess),
	}, nil
}

// Confirm finalizes a session awaiting confirmation: scores the collected
// answers, renders the report, and marks the session completed. A confirm
// with any stage incomplete is a fault, not a user error.
func (e *Engine) Confirm(userID int64) (Outcome, error) {
	lock := e.store.Acquire(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := e.store.Get(userID)
	if !ok {
		return Outcome{}, ErrNoSession
	}
	if sess.Stage != session.StageConfirm {
		return Outcome{}, e.abandonOnFault(sess, "confirm")
	}

	scores, err := instrument.Score(
		sess.StageAnswers(session.StageADAM),
		sess.StageAnswers(session.StageAMS),
		sess.StageAnswers(session.StageLifestyle),
	)
	if err != nil {
		e.logger.Error().Int64("user_id", userID).Err(err).Msg("confirm with incomplete answers")
		return Outcome{}, e.abandonOnFault(sess, "confirm")
	}

	sess.Stage = session.StageCompleted
	sess.LastActivityAt = e.clk.Now()
	if err := e.putWithRetry(sess); err != nil {
		return Outcome{}, err
	}

	e.logger.Info().
		Int64("user_id", userID).
		Bool("adam_positive", scores.ADAMPositive).
		Int("ams_total", scores.AMSTotal).
		Msg("questionnaire completed")

	return Outcome{
		Stage:  sess.Stage,
		Cursor: sess.Cursor,
		Report: instrument.Report(scores),
	}, nil
}

// RequestReview moves the session from confirmation back into the given
// instrument at the item the user wants to amend. Answers of that stage from
// the amended item onward are discarded; other stages keep theirs, and once
// the amended stage is complete again the session returns straight to
// confirmation.
func (e *Engine) RequestReview(userID int64, id instrument.ID, index int) (Outcome, error) {
	lock := e.store.Acquire(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := e.store.Get(userID)
	if !ok {
		return Outcome{}, ErrNoSession
	}
	if sess.Stage != session.StageConfirm {
		return Outcome{}, e.abandonOnFault(sess, "request_review")
	}

	stage, ok := instrumentStages[id]
	items := instrument.Items(id)
	if !ok || index < 0 || index >= len(items) {
		return Outcome{
			Stage:  sess.Stage,
			Cursor: sess.Cursor,
			Reply:  "No reconozco esa pregunta. Indica el cuestionario (adam, ams o estilo) y el número de pregunta.",
		}, nil
	}

	sess.TruncateStage(stage, index)
	sess.Stage = stage
	sess.Cursor = index
	sess.RetryCount = 0
	sess.LastActivityAt = e.clk.Now()

	if err := e.putWithRetry(sess); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Stage:  sess.Stage,
		Cursor: sess.Cursor,
		Reply:  fmt.Sprintf("✏️ De acuerdo, repetimos desde la pregunta %d de %s.", index+1, instrument.Name(id)),
		Prompt: e.prompt(sess),
	}, nil
}

// Reset deletes the session entirely; a subsequent Start begins fresh.
func (e *Engine) Reset(userID int64) (Outcome, error) {
	lock := e.store.Acquire(userID)
	lock.Lock()
	defer lock.Unlock()

	if _, ok := e.store.Get(userID); !ok {
		return Outcome{
			Stage: session.StageAbandoned,
			Reply: "No hay ninguna evaluación en curso. Usa /start para comenzar.",
		}, nil
	}

	if err := e.store.Delete(userID); err != nil {
		return Outcome{}, &StorageError{UserID: userID, Err: err}
	}

	e.logger.Info().Int64("user_id", userID).Msg("session reset")
	return Outcome{
		Stage: session.StageAbandoned,
		Reply: "🔄 Evaluación cancelada. Usa /start cuando quieras comenzar de nuevo.",
	}, nil
}

// Status returns read-only progress. It never mutates the session, so
// polling it between answers cannot affect expiry or ordering.
func (e *Engine) Status(userID int64) (Progress, error) {
	sess, ok := e.store.Get(userID)
	if !ok {
		return Progress{}, ErrNoSession
	}

	answered := 0
	for _, answers := range sess.Answers {
		answered += len(answers)
	}

	stageTotal := 0
	if id, ok := stageInstruments[sess.Stage]; ok {
		stageTotal = len(instrument.Items(id))
	}

	return Progress{
		Stage:      sess.Stage,
		Cursor:     sess.Cursor,
		StageTotal: stageTotal,
		Answered:   answered,
		Total:      instrument.TotalItems(),
	}, nil
}

// ResumeOrPrompt is called on the first message after a gap: it offers to
// resume a live mid-flight session, and otherwise points the user at /start.
func (e *Engine) ResumeOrPrompt(userID int64) (Outcome, error) {
	sess, ok := e.store.Get(userID)
	if !ok || sess.Stage.Terminal() || sess.ExpiredAt(e.clk.Now(), e.store.TTL()) {
		return Outcome{
			Stage: session.StageIdle,
			Reply: "No tienes ninguna evaluación en curso. Usa /start para comenzar.",
		}, nil
	}
	return e.resumeOffer(sess), nil
}

// resumeOffer builds the reply for a live session found mid-flight.
func (e *Engine) resumeOffer(sess *session.Session) Outcome {
	var position string
	if id, ok := stageInstruments[sess.Stage]; ok {
		position = fmt.Sprintf("%s, pregunta %d de %d",
			instrument.Name(id), sess.Cursor+1, len(instrument.Items(id)))
	} else {
		position = "confirmación de respuestas"
	}

	return Outcome{
		Stage:  sess.Stage,
		Cursor: sess.Cursor,
		Reply: "📌 Tienes una evaluación en curso (" + position + ").\n" +
			"Responde para continuar donde lo dejaste, o usa /reset para empezar de cero.",
		Prompt: e.prompt(sess),
	}
}

// advanceStage moves a session whose current stage just completed to the
// next incomplete stage, or to confirmation when everything is answered.
// Returns the announcement text for the newly entered stage.
func (e *Engine) advanceStage(sess *session.Session) string {
	next := transitions[sess.Stage]
	for next.Running() && e.stageComplete(sess, next) {
		next = transitions[next]
	}

	sess.Stage = next
	sess.Cursor = len(sess.StageAnswers(next))
	sess.RetryCount = 0

	if next == session.StageConfirm {
		sess.Cursor = 0
		return e.confirmSummary(sess)
	}

	switch next {
	case session.StageAMS:
		return "✅ " + instrument.Name(instrument.ADAM) + " completado.\n\n" +
			"📋 Ahora el " + instrument.Name(instrument.AMS) + ". Valora cada síntoma del 1 (ninguno) al 5 (muy intenso)."
	case session.StageLifestyle:
		return "✅ " + instrument.Name(instrument.AMS) + " completado.\n\n" +
			"📋 Por último, unas preguntas sobre tu " + strings.ToLower(instrument.Name(instrument.Lifestyle)) + "."
	default:
		return ""
	}
}

// stageComplete reports whether every item of the stage's instrument has an
// answer. Only meaningful after a review rewound a single stage.
func (e *Engine) stageComplete(sess *session.Session, stage session.Stage) bool {
	id, ok := stageInstruments[stage]
	if !ok {
		return false
	}
	return len(sess.StageAnswers(stage)) == len(instrument.Items(id))
}

// confirmSummary renders the answers recap shown when entering confirmation.
func (e *Engine) confirmSummary(sess *session.Session) string {
	var b strings.Builder
	b.WriteString("📝 Has respondido todas las preguntas. Resumen:\n\n")
	for _, id := range []instrument.ID{instrument.ADAM, instrument.AMS, instrument.Lifestyle} {
		answers := sess.StageAnswers(instrumentStages[id])
		fmt.Fprintf(&b, "• %s: %d respuestas\n", instrument.Name(id), len(answers))
	}
	b.WriteString("\n✅ Envía /confirm para ver tus resultados.\n")
	b.WriteString("✏️ Para corregir una respuesta: revisar <adam|ams|estilo> <número>.")
	return b.String()
}

// prompt returns the text of the current item, or empty outside running
// stages.
func (e *Engine) prompt(sess *session.Session) string {
	id, ok := stageInstruments[sess.Stage]
	if !ok {
		return ""
	}
	items := instrument.Items(id)
	if sess.Cursor < 0 || sess.Cursor >= len(items) {
		return ""
	}
	return items[sess.Cursor].Prompt
}

// abandonOnFault handles an invalid transition: the session is forced to
// abandoned so it cannot wedge, and the fault is logged and returned.
func (e *Engine) abandonOnFault(sess *session.Session, op string) error {
	fault := &InvalidTransitionError{UserID: sess.UserID, From: sess.Stage, Op: op}
	e.logger.Error().
		Int64("user_id", sess.UserID).
		Str("op", op).
		Str("stage", string(sess.Stage)).
		Msg("invalid transition, abandoning session")

	sess.Stage = session.StageAbandoned
	if err := e.putWithRetry(sess); err != nil {
		e.logger.Error().Int64("user_id", sess.UserID).Err(err).Msg("failed to persist abandoned session")
	}
	return fault
}

// putWithRetry persists the session, retrying transient failures with
// exponential backoff. If all attempts fail the caller sees a StorageError
// and the previously published state stays visible.
func (e *Engine) putWithRetry(sess *session.Session) error {
	var err error
	for attempt := 0; attempt < maxPutAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay(attempt))
		}
		if err = e.store.Put(sess); err == nil {
			return nil
		}
		e.logger.Warn().
			Int64("user_id", sess.UserID).
			Int("attempt", attempt+1).
			Err(err).
			Msg("session persist failed")
	}
	return &StorageError{UserID: sess.UserID, Err: err}
}

// retryDelay computes exponential backoff for persist retries, capped so an
// inline request never stalls for long.
func retryDelay(attempt int) time.Duration {
	delay := basePutDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > maxPutDelay {
			return maxPutDelay
		}
	}
	return delay
}
