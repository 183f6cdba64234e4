package instrument

import (
	"fmt"

	"github.com/matiasroldan/adambot/internal/validate"
)

// AMS severity band boundaries.
const (
	amsBandNoneMax     = 26
	amsBandMildMax     = 36
	amsBandModerateMax = 49
)

// Lifestyle risk thresholds, indexed against the lifestyle item order.
const (
	bodyFatRiskAbove   = 20.0
	sleepRiskAtOrUnder = 2
	stressRiskAtOrOver = 4
	exerciseRiskUnder  = 2
)

// adamYesThreshold is the count of affirmative answers that alone makes the
// ADAM screen positive, independent of the two key questions.
const adamYesThreshold = 3

// Scores is the computed outcome of a completed questionnaire.
type Scores struct {
	ADAMPositive     bool
	ADAMYesCount     int
	AMSTotal         int
	AMSBand          string
	LifestyleFactors []string
}

// Score computes the final scores from the per-instrument answer sequences.
// Each slice must be complete (one answer per item, in item order).
func Score(adam, ams, lifestyle []validate.Answer) (Scores, error) {
	if len(adam) != len(adamItems) {
		return Scores{}, fmt.Errorf("adam answers incomplete: got %d, want %d", len(adam), len(adamItems))
	}
	if len(ams) != len(amsItems) {
		return Scores{}, fmt.Errorf("ams answers incomplete: got %d, want %d", len(ams), len(amsItems))
	}
	if len(lifestyle) != len(lifestyleItems) {
		return Scores{}, fmt.Errorf("lifestyle answers incomplete: got %d, want %d", len(lifestyle), len(lifestyleItems))
	}

	scores := Scores{}

	// ADAM rule: positive on "yes" to question 1 or 7, or any three "yes".
	for _, a := range adam {
		if a.Bool {
			scores.ADAMYesCount++
		}
	}
	scores.ADAMPositive = adam[0].Bool || adam[6].Bool || scores.ADAMYesCount >= adamYesThreshold

	for _, a := range ams {
		scores.AMSTotal += a.Int
	}
	scores.AMSBand = amsBand(scores.AMSTotal)

	scores.LifestyleFactors = lifestyleFactors(lifestyle)

	return scores, nil
}

// amsBand maps an AMS total to its severity interpretation.
func amsBand(total int) string {
	switch {
	case total <= amsBandNoneMax:
		return "No significativo"
	case total <= amsBandMildMax:
		return "Leve"
	case total <= amsBandModerateMax:
		return "Moderado"
	default:
		return "Severo"
	}
}

// lifestyleFactors extracts the risk factors from the lifestyle answers.
// Answer positions follow lifestyleItems: age, body fat, sleep, stress,
// exercise, alcohol/tobacco.
func lifestyleFactors(answers []validate.Answer) []string {
	var factors []string
	if answers[1].Float > bodyFatRiskAbove {
		factors = append(factors, "Grasa corporal elevada")
	}
	if answers[2].Int <= sleepRiskAtOrUnder {
		factors = append(factors, "Mala calidad del sueño")
	}
	if answers[3].Int >= stressRiskAtOrOver {
		factors = append(factors, "Alto nivel de estrés")
	}
	if answers[4].Int < exerciseRiskUnder {
		factors = append(factors, "Poco ejercicio de fuerza")
	}
	if answers[5].Bool {
		factors = append(factors, "Consumo regular de alcohol/tabaco")
	}
	return factors
}
