package instrument

import (
	"fmt"
	"strings"
)

// Report renders the final results message delivered when a questionnaire is
// confirmed and completed.
func Report(s Scores) string {
	var adamResult string
	if s.ADAMPositive {
		adamResult = "🔴 Posible déficit."
	} else {
		adamResult = "🟢 No se detecta un posible déficit."
	}

	var lifestyleSummary string
	if len(s.LifestyleFactors) > 0 {
		lifestyleSummary = "Factores a mejorar: " + strings.Join(s.LifestyleFactors, ", ") + "."
	} else {
		lifestyleSummary = "Tus hábitos de estilo de vida parecen adecuados."
	}

	return fmt.Sprintf(
		"📝 **RESULTADOS DE TU EVALUACIÓN**\n"+
			"━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n"+
			"✅ **Resultado ADAM:** %s\n"+
			"📊 **Escala AMS:** %d puntos → %s.\n"+
			"🏃‍♂️ **Estilo de Vida:** %s\n\n"+
			"👉 **Recomendación:**\n"+
			"Recuerda que esto es solo una estimación. Si tus resultados indican un posible déficit "+
			"o síntomas moderados/severos, considera consultar a un médico especialista "+
			"(urólogo o endocrinólogo) para un diagnóstico preciso a través de un análisis de sangre.\n\n"+
			"Para volver a empezar, escribe /start.",
		adamResult, s.AMSTotal, s.AMSBand, lifestyleSummary)
}
