// Package validate implements the per-question-type input validators.
// All validators are pure: malformed input is a normal outcome represented
// as a rejected Result, never an error return.
package validate

import (
	"fmt"
	"strconv"
	"strings"
)

// Validation range constants.
const (
	// AgeMin is the minimum accepted age.
	AgeMin = 18
	// AgeMax is the maximum accepted age.
	AgeMax = 120

	// BodyFatMin is the minimum accepted body fat percentage.
	BodyFatMin = 0.0
	// BodyFatMax is the maximum accepted body fat percentage.
	BodyFatMax = 50.0

	// ScaleMin is the lower bound of Likert-style scale items.
	ScaleMin = 1
	// ScaleMax is the upper bound of Likert-style scale items.
	ScaleMax = 5

	// ExerciseMin is the minimum weekly strength-exercise count.
	ExerciseMin = 0
	// ExerciseMax is the maximum weekly strength-exercise count.
	ExerciseMax = 7
)

// Kind identifies a question type. The set is closed: Check dispatches on it.
type Kind string

const (
	// KindYesNo is a yes/no question.
	KindYesNo Kind = "yes_no"

	// KindScale is a 1-5 Likert-style question.
	KindScale Kind = "scale_1_5"

	// KindAge is an integer age question.
	KindAge Kind = "age"

	// KindBodyFat is a body fat percentage question.
	KindBodyFat Kind = "body_fat"

	// KindExercise is a weekly strength-exercise frequency question.
	KindExercise Kind = "exercise_frequency"
)

// ErrorKind classifies why input was rejected.
type ErrorKind string

const (
	// ErrEmpty indicates blank input.
	ErrEmpty ErrorKind = "empty"

	// ErrNotInteger indicates a non-integer where one was required.
	ErrNotInteger ErrorKind = "not_integer"

	// ErrNotNumber indicates non-numeric input where a number was required.
	ErrNotNumber ErrorKind = "not_number"

	// ErrOutOfRange indicates a number outside the accepted range.
	ErrOutOfRange ErrorKind = "out_of_range"

	// ErrAmbiguous indicates input that matches neither (or both) yes/no sets.
	ErrAmbiguous ErrorKind = "ambiguous"
)

// Answer is the typed value produced by an accepted validation.
// Raw carries the sanitized original text for storage and echo.
type Answer struct {
	Kind  Kind    `json:"kind"`
	Raw   string  `json:"raw"`
	Bool  bool    `json:"bool,omitempty"`
	Int   int     `json:"int,omitempty"`
	Float float64 `json:"float,omitempty"`
}

// Result is the immutable outcome of a validation attempt.
type Result struct {
	Accepted bool
	Answer   Answer    // populated when Accepted
	ErrKind  ErrorKind // populated when rejected
	Message  string    // user-facing rejection message
	Help     string    // help/suggestion text
	Example  string    // a valid example answer
}

// accept builds an accepted Result.
func accept(a Answer) Result {
	return Result{Accepted: true, Answer: a}
}

// reject builds a rejected Result.
func reject(kind ErrorKind, message, help, example string) Result {
	return Result{ErrKind: kind, Message: message, Help: help, Example: example}
}

// Age accepts only a trimmed integer in [18,120].
func Age(text string) Result {
	trimmed := strings.TrimSpace(text)
	age, err := strconv.Atoi(trimmed)
	if err != nil {
		return reject(ErrNotInteger,
			"Por favor, introduce un número válido para la edad.",
			fmt.Sprintf("La edad debe ser un número entero entre %d y %d.", AgeMin, AgeMax),
			"30")
	}
	if age < AgeMin || age > AgeMax {
		return reject(ErrOutOfRange,
			fmt.Sprintf("La edad debe estar entre %d y %d años.", AgeMin, AgeMax),
			"Introduce tu edad como un número entero (ej: 25).",
			"30")
	}
	return accept(Answer{Kind: KindAge, Raw: trimmed, Int: age})
}

// BodyFat accepts integer or one-decimal percentages in [0,50].
// A trailing % sign is tolerated.
func BodyFat(text string) Result {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "%"))
	if !bodyFatShape(trimmed) {
		return reject(ErrNotNumber,
			"Por favor, introduce un número válido para el porcentaje de grasa corporal.",
			fmt.Sprintf("Debe ser un número entre %g y %g, con un decimal como máximo.", BodyFatMin, BodyFatMax),
			"15")
	}
	fat, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return reject(ErrNotNumber,
			"Por favor, introduce un número válido para el porcentaje de grasa corporal.",
			fmt.Sprintf("Debe ser un número entre %g y %g.", BodyFatMin, BodyFatMax),
			"15")
	}
	if fat < BodyFatMin || fat > BodyFatMax {
		return reject(ErrOutOfRange,
			fmt.Sprintf("El porcentaje de grasa corporal debe estar entre %g%% y %g%%.", BodyFatMin, BodyFatMax),
			fmt.Sprintf("Introduce un número entre %g y %g (sin el símbolo %%).", BodyFatMin, BodyFatMax),
			"15")
	}
	return accept(Answer{Kind: KindBodyFat, Raw: trimmed, Float: fat})
}

// bodyFatShape reports whether s is digits with at most one decimal place.
func bodyFatShape(s string) bool {
	if s == "" {
		return false
	}
	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if intPart == "" || !allDigits(intPart) {
		return false
	}
	if hasDot && (len(fracPart) != 1 || !allDigits(fracPart)) {
		return false
	}
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Scale accepts only an integer within the closed range [minScale,maxScale].
func Scale(text string, minScale, maxScale int) Result {
	trimmed := strings.TrimSpace(text)
	allowed := enumerateRange(minScale, maxScale)
	score, err := strconv.Atoi(trimmed)
	if err != nil {
		return reject(ErrNotInteger,
			fmt.Sprintf("Por favor, introduce solo un número del %d al %d.", minScale, maxScale),
			fmt.Sprintf("Valores permitidos: %s.", allowed),
			strconv.Itoa(minScale+(maxScale-minScale)/2))
	}
	if score < minScale || score > maxScale {
		return reject(ErrOutOfRange,
			fmt.Sprintf("Por favor, introduce un número entre %d y %d.", minScale, maxScale),
			fmt.Sprintf("Valores permitidos: %s.", allowed),
			strconv.Itoa(minScale+(maxScale-minScale)/2))
	}
	return accept(Answer{Kind: KindScale, Raw: trimmed, Int: score})
}

// enumerateRange renders a closed integer range as "1, 2, 3, 4, 5".
func enumerateRange(lo, hi int) string {
	values := make([]string, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		values = append(values, strconv.Itoa(v))
	}
	return strings.Join(values, ", ")
}

// yesTokens and noTokens are the canonical affirmative/negative answers,
// including Spanish variants.
var (
	yesTokens = map[string]struct{}{"sí": {}, "si": {}, "yes": {}, "y": {}, "s": {}}
	noTokens  = map[string]struct{}{"no": {}, "n": {}}
)

// YesNo matches the input case-insensitively against the canonical
// affirmative and negative token sets. Input matching neither set, or both,
// is rejected with both options restated.
func YesNo(text string) Result {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	_, isYes := yesTokens[trimmed]
	_, isNo := noTokens[trimmed]
	if isYes == isNo {
		return reject(ErrAmbiguous,
			"Por favor, responde 'Sí' o 'No'.",
			"Respuestas válidas: Sí, Si, No, S, N",
			"Sí")
	}
	return accept(Answer{Kind: KindYesNo, Raw: trimmed, Bool: isYes})
}

// ExerciseFrequency accepts an integer count of weekly strength-exercise
// sessions in [0,7].
func ExerciseFrequency(text string) Result {
	trimmed := strings.TrimSpace(text)
	freq, err := strconv.Atoi(trimmed)
	if err != nil {
		return reject(ErrNotInteger,
			"Por favor, introduce un número válido para la frecuencia de ejercicio.",
			fmt.Sprintf("Debe ser un número entre %d y %d.", ExerciseMin, ExerciseMax),
			"3")
	}
	if freq < ExerciseMin || freq > ExerciseMax {
		return reject(ErrOutOfRange,
			fmt.Sprintf("La frecuencia de ejercicio debe estar entre %d y %d veces por semana.", ExerciseMin, ExerciseMax),
			"Introduce el número de veces que haces ejercicio de fuerza por semana.",
			"3")
	}
	return accept(Answer{Kind: KindExercise, Raw: trimmed, Int: freq})
}

// Check dispatches raw text to the validator for the given question kind.
// Unknown kinds are rejected rather than panicking: bad dispatch is treated
// as malformed input at this layer and surfaced as a fault upstream.
func Check(kind Kind, text string) Result {
	switch kind {
	case KindAge:
		return Age(text)
	case KindBodyFat:
		return BodyFat(text)
	case KindScale:
		return Scale(text, ScaleMin, ScaleMax)
	case KindYesNo:
		return YesNo(text)
	case KindExercise:
		return ExerciseFrequency(text)
	default:
		return reject(ErrEmpty,
			"Tipo de entrada no reconocido.",
			"Introduce una respuesta válida.",
			"")
	}
}
