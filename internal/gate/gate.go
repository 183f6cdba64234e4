// Package gate is the single entry point for untrusted input. It screens
// for malicious patterns, enforces the rate limit, routes commands, and
// hands clean answers to the conversation engine. Validation rejections and
// rate denials are data here, never faults.
package gate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/matiasroldan/adambot/internal/clock"
	"github.com/matiasroldan/adambot/internal/engine"
	"github.com/matiasroldan/adambot/internal/instrument"
	"github.com/matiasroldan/adambot/internal/ratelimit"
	"github.com/matiasroldan/adambot/internal/security"
	"github.com/matiasroldan/adambot/internal/session"
	"github.com/matiasroldan/adambot/internal/validate"
)

// maliciousPatterns is screened against the raw text before sanitization,
// so encoded payloads are caught in their original form.
var maliciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)<(iframe|object|embed)[^>]*>`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)(document|window)\.`),
	regexp.MustCompile(`(?i)\.innerHTML`),
	regexp.MustCompile(`(?is)(select.*from|union.*select|drop.*table|insert.*into|update.*set|delete.*from)`),
	regexp.MustCompile(`\.\./|\.\.\\`),
	regexp.MustCompile(`/etc/(passwd|shadow)`),
	regexp.MustCompile(`\$\{jndi:`),
	regexp.MustCompile(`(?s)\{\{.*\}\}`),
	regexp.MustCompile(`(?s)<%.*%>`),
	regexp.MustCompile(`(?s)<\?.*\?>`),
}

const (
	maliciousReply = "⚠️ Entrada no válida detectada. Por favor, introduce solo texto normal sin caracteres especiales."
	faultReply     = "😔 Ha ocurrido un error inesperado. Usa /reset para reiniciar la evaluación."
	transientReply = "⏳ Ha ocurrido un error temporal al guardar tu respuesta. Por favor, inténtalo de nuevo."
	confirmHint    = "📝 Ya has respondido todas las preguntas.\n\n" +
		"✅ Envía /confirm para ver tus resultados.\n" +
		"✏️ Para corregir una respuesta: revisar <adam|ams|estilo> <número>."
)

// Gate composes screening, rate limiting, and command routing in front of
// the engine.
type Gate struct {
	engine  *engine.Engine
	limiter *ratelimit.Limiter
	events  *security.Log
	clk     clock.Clock
	logger  zerolog.Logger
}

// New creates a gate over the given collaborators.
func New(eng *engine.Engine, limiter *ratelimit.Limiter, events *security.Log, clk clock.Clock, logger zerolog.Logger) *Gate {
	return &Gate{
		engine:  eng,
		limiter: limiter,
		events:  events,
		clk:     clk,
		logger:  logger.With().Str("component", "gate").Logger(),
	}
}

// Handle processes one inbound message and returns the reply to deliver.
// It never returns an error for user-recoverable conditions; the error
// return signals only faults already translated into the reply text.
func (g *Gate) Handle(userID int64, rawText string) string {
	now := g.clk.Now()

	if !g.limiter.CheckAndRecord(userID, now) {
		return g.cooldownReply(userID, now)
	}

	if pattern := g.screen(rawText); pattern != "" {
		g.events.Record(security.Event{
			UserID:   userID,
			Kind:     security.MaliciousInput,
			Severity: security.SeverityHigh,
			Detail:   "pattern " + pattern,
			At:       now,
		})
		return maliciousReply
	}

	// Commands are parsed from the sanitized form; answers go to the engine
	// raw, which sanitizes them once at validation time.
	if cmd, args, ok := parseCommand(validate.Sanitize(rawText)); ok {
		return g.dispatch(userID, cmd, args)
	}

	// Free text is only an answer while a stage is collecting them. At
	// confirmation the user is reminded how to proceed, and a finished
	// session is pointed back at /start; neither is a fault.
	if progress, perr := g.engine.Status(userID); perr == nil {
		switch {
		case progress.Stage == session.StageConfirm:
			return confirmHint
		case progress.Stage.Terminal():
			out, rerr := g.engine.ResumeOrPrompt(userID)
			if rerr != nil {
				return g.faultReply(userID, rerr)
			}
			return render(out)
		}
	}

	out, err := g.engine.SubmitAnswer(userID, rawText)
	if err != nil {
		if errors.Is(err, engine.ErrNoSession) {
			out, rerr := g.engine.ResumeOrPrompt(userID)
			if rerr != nil {
				return g.faultReply(userID, rerr)
			}
			return render(out)
		}
		return g.faultReply(userID, err)
	}

	if out.Rejection != nil && out.Retries >= validate.ProgressiveThreshold {
		g.events.Record(security.Event{
			UserID:   userID,
			Kind:     security.InvalidInputRepeated,
			Severity: security.SeverityMedium,
			Detail:   fmt.Sprintf("%d consecutive failures", out.Retries),
			At:       now,
		})
	}

	return render(out)
}

// screen returns the first malicious pattern the raw text matches, or
// empty.
func (g *Gate) screen(rawText string) string {
	for _, pattern := range maliciousPatterns {
		if pattern.MatchString(rawText) {
			return pattern.String()
		}
	}
	return ""
}

// parseCommand recognizes slash commands and the review phrase. The review
// phrase is "revisar <adam|ams|estilo> <número>".
func parseCommand(text string) (cmd string, args []string, ok bool) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return "", nil, false
	}
	switch fields[0] {
	case "/start", "/reset", "/cancel", "/status", "/confirm", "/help":
		return fields[0], fields[1:], true
	case "confirmar":
		return "/confirm", nil, true
	case "revisar":
		return "revisar", fields[1:], true
	default:
		return "", nil, false
	}
}

func (g *Gate) dispatch(userID int64, cmd string, args []string) string {
	switch cmd {
	case "/start":
		out, err := g.engine.Start(userID)
		if err != nil {
			return g.faultReply(userID, err)
		}
		return render(out)

	case "/reset", "/cancel":
		out, err := g.engine.Reset(userID)
		if err != nil {
			return g.faultReply(userID, err)
		}
		return render(out)

	case "/status":
		return g.statusReply(userID)

	case "/confirm":
		out, err := g.engine.Confirm(userID)
		if err != nil {
			return g.faultReply(userID, err)
		}
		return render(out)

	case "revisar":
		return g.reviewReply(userID, args)

	case "/help":
		return helpReply()

	default:
		return helpReply()
	}
}

// reviewReply parses and executes a review request. The user numbers
// questions from 1; the engine indexes from 0.
func (g *Gate) reviewReply(userID int64, args []string) string {
	if len(args) != 2 {
		return "✏️ Para corregir una respuesta escribe: revisar <adam|ams|estilo> <número>."
	}

	var id instrument.ID
	switch args[0] {
	case "adam":
		id = instrument.ADAM
	case "ams":
		id = instrument.AMS
	case "estilo", "vida":
		id = instrument.Lifestyle
	default:
		return "No reconozco ese cuestionario. Usa adam, ams o estilo."
	}

	number, err := strconv.Atoi(args[1])
	if err != nil || number < 1 {
		return "El número de pregunta debe ser un entero positivo. Ejemplo: revisar adam 3"
	}

	out, rerr := g.engine.RequestReview(userID, id, number-1)
	if rerr != nil {
		return g.faultReply(userID, rerr)
	}
	return render(out)
}

func (g *Gate) statusReply(userID int64) string {
	progress, err := g.engine.Status(userID)
	if err != nil {
		if errors.Is(err, engine.ErrNoSession) {
			return "No tienes ninguna evaluación en curso. Usa /start para comenzar."
		}
		return g.faultReply(userID, err)
	}

	if progress.StageTotal == 0 {
		return fmt.Sprintf("📊 Progreso: %d de %d preguntas respondidas.", progress.Answered, progress.Total)
	}
	return fmt.Sprintf("📊 Progreso: %d de %d preguntas respondidas (pregunta %d de %d en la sección actual).",
		progress.Answered, progress.Total, progress.Cursor+1, progress.StageTotal)
}

// cooldownReply tells a rate-limited user how long to wait.
func (g *Gate) cooldownReply(userID int64, now time.Time) string {
	until := g.limiter.BlockedUntil(userID)
	if until.After(now) {
		wait := until.Sub(now).Round(time.Second)
		return fmt.Sprintf("🚦 Has enviado demasiados mensajes. Espera %s antes de continuar.", wait)
	}
	return "🚦 Has enviado demasiados mensajes. Espera un momento antes de continuar."
}

// faultReply translates engine faults into the generic apology. The fault
// itself is already logged with context by the engine.
func (g *Gate) faultReply(userID int64, err error) string {
	var storageErr *engine.StorageError
	if errors.As(err, &storageErr) {
		return transientReply
	}

	g.logger.Error().Int64("user_id", userID).Err(err).Msg("request failed")
	return faultReply
}

func helpReply() string {
	return "ℹ️ Comandos disponibles:\n" +
		"/start — comenzar o continuar la evaluación\n" +
		"/status — ver tu progreso\n" +
		"/confirm — confirmar tus respuestas y ver resultados\n" +
		"/reset — cancelar la evaluación actual\n" +
		"revisar <adam|ams|estilo> <número> — corregir una respuesta"
}

// render flattens an engine outcome into one reply message.
func render(out engine.Outcome) string {
	var parts []string
	if out.Reply != "" {
		parts = append(parts, out.Reply)
	}
	if out.Rejection != nil {
		parts = append(parts, "❌ "+out.Rejection.Message)
		if out.Rejection.Help != "" {
			parts = append(parts, out.Rejection.Help)
		}
	}
	if out.Prompt != "" {
		parts = append(parts, out.Prompt)
	}
	if out.Report != "" {
		parts = append(parts, out.Report)
	}
	return strings.Join(parts, "\n\n")
}
