// Package instrument holds the questionnaire content: the ordered item lists
// for each instrument and the scoring rules over collected answers. The data
// is static; nothing here mutates state.
package instrument

import "github.com/matiasroldan/adambot/internal/validate"

// ID names an instrument.
type ID string

const (
	// ADAM is the Androgen Deficiency in Aging Males questionnaire.
	ADAM ID = "adam"

	// AMS is the Aging Male's Symptoms scale.
	AMS ID = "ams"

	// Lifestyle is the lifestyle factors questionnaire.
	Lifestyle ID = "lifestyle"
)

// Item is a single questionnaire question.
type Item struct {
	ID     string
	Kind   validate.Kind
	Prompt string
}

// adamItems are the ten ADAM yes/no questions.
var adamItems = []Item{
	{ID: "adam_1", Kind: validate.KindYesNo, Prompt: "1/10: ¿Ha disminuido su libido (deseo sexual)?"},
	{ID: "adam_2", Kind: validate.KindYesNo, Prompt: "2/10: ¿Siente una falta de energía?"},
	{ID: "adam_3", Kind: validate.KindYesNo, Prompt: "3/10: ¿Ha perdido fuerza o resistencia?"},
	{ID: "adam_4", Kind: validate.KindYesNo, Prompt: "4/10: ¿Ha perdido estatura?"},
	{ID: "adam_5", Kind: validate.KindYesNo, Prompt: "5/10: ¿Ha notado una disminución en su 'disfrute de la vida'?"},
	{ID: "adam_6", Kind: validate.KindYesNo, Prompt: "6/10: ¿Está triste o de mal humor?"},
	{ID: "adam_7", Kind: validate.KindYesNo, Prompt: "7/10: ¿Son sus erecciones menos fuertes?"},
	{ID: "adam_8", Kind: validate.KindYesNo, Prompt: "8/10: ¿Ha notado un deterioro reciente en su capacidad para practicar deportes?"},
	{ID: "adam_9", Kind: validate.KindYesNo, Prompt: "9/10: ¿Se queda dormido después de cenar?"},
	{ID: "adam_10", Kind: validate.KindYesNo, Prompt: "10/10: ¿Ha disminuido recientemente su rendimiento en el trabajo?"},
}

// amsItems are the seventeen AMS scale questions, each rated 1-5.
var amsItems = []Item{
	{ID: "ams_1", Kind: validate.KindScale, Prompt: "1/17: Disminución del deseo/apetito sexual."},
	{ID: "ams_2", Kind: validate.KindScale, Prompt: "2/17: Sensación de agotamiento físico/falta de vitalidad."},
	{ID: "ams_3", Kind: validate.KindScale, Prompt: "3/17: Disminución de la fuerza muscular."},
	{ID: "ams_4", Kind: validate.KindScale, Prompt: "4/17: Dificultad para conciliar el sueño."},
	{ID: "ams_5", Kind: validate.KindScale, Prompt: "5/17: Necesidad de dormir más que antes."},
	{ID: "ams_6", Kind: validate.KindScale, Prompt: "6/17: Aumento de la irritabilidad."},
	{ID: "ams_7", Kind: validate.KindScale, Prompt: "7/17: Aumento del nerviosismo."},
	{ID: "ams_8", Kind: validate.KindScale, Prompt: "8/17: Ansiedad (sentirse al límite)."},
	{ID: "ams_9", Kind: validate.KindScale, Prompt: "9/17: Episodios de sudoración."},
	{ID: "ams_10", Kind: validate.KindScale, Prompt: "10/17: Pérdida de vello corporal."},
	{ID: "ams_11", Kind: validate.KindScale, Prompt: "11/17: Disminución de la barba."},
	{ID: "ams_12", Kind: validate.KindScale, Prompt: "12/17: Disminución de la potencia/frecuencia de las erecciones matutinas."},
	{ID: "ams_13", Kind: validate.KindScale, Prompt: "13/17: Disminución de la capacidad para el rendimiento sexual."},
	{ID: "ams_14", Kind: validate.KindScale, Prompt: "14/17: Dolores articulares y musculares."},
	{ID: "ams_15", Kind: validate.KindScale, Prompt: "15/17: Sensación de que 'ya ha pasado lo mejor'."},
	{ID: "ams_16", Kind: validate.KindScale, Prompt: "16/17: Sensación de estar 'quemado', de haber llegado al límite."},
	{ID: "ams_17", Kind: validate.KindScale, Prompt: "17/17: Tristeza o desánimo."},
}

// lifestyleItems are the six lifestyle questions. Item order matters: the
// scoring rules index into the collected answers by position.
var lifestyleItems = []Item{
	{ID: "ls_age", Kind: validate.KindAge, Prompt: "1/6: ¿Cuál es tu edad?"},
	{ID: "ls_body_fat", Kind: validate.KindBodyFat, Prompt: "2/6: ¿Cuál es tu porcentaje de grasa corporal aproximado? (Si no lo sabes, introduce un estimado. Ej: 15)"},
	{ID: "ls_sleep", Kind: validate.KindScale, Prompt: "3/6: En una escala de 1 a 5, ¿cómo calificarías la calidad de tu sueño? (1=Muy mala, 5=Excelente)"},
	{ID: "ls_stress", Kind: validate.KindScale, Prompt: "4/6: En una escala de 1 a 5, ¿cómo calificarías tu nivel de estrés diario? (1=Muy bajo, 5=Muy alto)"},
	{ID: "ls_exercise", Kind: validate.KindExercise, Prompt: "5/6: ¿Cuántas veces por semana realizas ejercicio de fuerza (pesas, calistenia, etc.)?"},
	{ID: "ls_alcohol_tobacco", Kind: validate.KindYesNo, Prompt: "6/6: ¿Consumes alcohol o tabaco de forma regular?"},
}

// Items returns the ordered item list for an instrument. Unknown IDs return
// nil; callers treat that as an empty instrument.
func Items(id ID) []Item {
	switch id {
	case ADAM:
		return adamItems
	case AMS:
		return amsItems
	case Lifestyle:
		return lifestyleItems
	default:
		return nil
	}
}

// TotalItems is the combined question count across all instruments.
func TotalItems() int {
	return len(adamItems) + len(amsItems) + len(lifestyleItems)
}

// Name returns the user-facing section name of an instrument.
func Name(id ID) string {
	switch id {
	case ADAM:
		return "Cuestionario ADAM"
	case AMS:
		return "Cuestionario AMS"
	case Lifestyle:
		return "Preguntas de Estilo de Vida"
	default:
		return string(id)
	}
}
