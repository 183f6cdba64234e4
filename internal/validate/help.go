package validate

import "strings"

// Escalation thresholds for repeated validation failures on the same item.
const (
	// HelpThreshold is the consecutive-failure count at which the help text
	// is escalated to include a worked example.
	HelpThreshold = 3

	// ProgressiveThreshold is the consecutive-failure count at which the
	// step-by-step progressive help is appended.
	ProgressiveThreshold = 5
)

// workedExamples holds the worked-example help shown once HelpThreshold
// consecutive failures are reached. Escalation changes only the help text,
// never the acceptance rule.
var workedExamples = map[Kind]string{
	KindYesNo: "💡 Consejo: Si no estás seguro, piensa en tu experiencia reciente. " +
		"Por ejemplo, escribe: Sí",
	KindScale: "💡 Consejo: Si no experimentas el síntoma, responde '1'. " +
		"Si lo experimentas intensamente, responde '5'. " +
		"Para síntomas moderados, usa '2', '3' o '4'.",
	KindAge: "💡 Consejo: Introduce solo números, sin letras ni símbolos. " +
		"Por ejemplo: 30",
	KindBodyFat: "💡 Consejo: Si no conoces tu porcentaje exacto, puedes estimarlo:\n" +
		"- Muy delgado: 8-12\n- Delgado: 12-18\n- Normal: 18-25\n- Con sobrepeso: 25-35",
	KindExercise: "💡 Consejo: Cuenta solo ejercicios de fuerza como pesas, calistenia " +
		"o entrenamientos de resistencia. No incluyas cardio. Por ejemplo: 3",
}

// progressiveHelp holds the last-resort guidance shown once
// ProgressiveThreshold consecutive failures are reached.
var progressiveHelp = map[Kind]string{
	KindYesNo: "🆘 Ayuda progresiva:\n" +
		"Simplemente escribe la letra 'S' para Sí o 'N' para No.",
	KindScale: "🆘 Ayuda progresiva:\n" +
		"Escribe solo un número del 1 al 5. " +
		"Si no tienes este síntoma, escribe '1'. Si lo tienes muy intenso, escribe '5'.",
	KindAge: "🆘 Ayuda progresiva:\n" +
		"Escribe solo tu edad como número. Por ejemplo, si tienes treinta años, escribe: 30",
	KindBodyFat: "🆘 Ayuda progresiva:\n" +
		"Si no estás seguro, puedes usar estos valores aproximados:\n" +
		"- Muy delgado: 10\n- Delgado: 15\n- Normal: 20\n- Con sobrepeso: 30",
	KindExercise: "🆘 Ayuda progresiva:\n" +
		"Escribe un número del 0 al 7 (días por semana).\n" +
		"Si no haces ejercicio de fuerza, escribe: 0",
}

// EscalatedHelp composes the help text for a rejection given the number of
// consecutive failures already accumulated for the current item. Pure: the
// caller owns the retry counter.
func EscalatedHelp(result Result, kind Kind, retryCount int) string {
	parts := []string{result.Help}

	if retryCount >= HelpThreshold {
		if example, ok := workedExamples[kind]; ok {
			parts = append(parts, example)
		}
	}
	if retryCount >= ProgressiveThreshold {
		if progressive, ok := progressiveHelp[kind]; ok {
			parts = append(parts, progressive)
		}
		parts = append(parts, "🔄 Si sigues teniendo problemas, puedes usar /reset para reiniciar.")
	}

	return strings.Join(parts, "\n\n")
}
