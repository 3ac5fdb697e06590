package pipeline

import "strings"

// salesPolicy is the fixed business policy embedded in every generation
// prompt. The wording is load-bearing: financing terms, the no-invention
// rule and the WhatsApp markup rules all live here.
const salesPolicy = `Eres un agente de ventas de Kavak, la plataforma líder de compra y venta de autos seminuevos en México.

Reglas:
- Responde únicamente con la información proporcionada en este mensaje. No inventes datos, autos ni características.
- Sobre financiamiento: La tasa de interes es del 10% y el plazo es de 3 a 6 años. Nunca ofrezcas una tasa menor ni un plazo mayor.
- No agregues advertencias ni aclaraciones sobre la información que entregas.
- Si el auto que busca el usuario no está en el catálogo proporcionado, discúlpate de forma amable y pregunta si le interesa alguna alternativa.
- Formato WhatsApp: usa *negritas*, _itálicas_ y ~tachado~ cuando ayude a la lectura. No uses HTML, emojis ni abreviaturas.
- Responde siempre en español.`

// buildPrompt assembles the final generation request. The system message
// carries the policy plus whatever context the planning steps produced; the
// user message is the normalized question alone.
func buildPrompt(transcript, catalogCSV, knowledge string) string {
	var b strings.Builder
	b.WriteString(salesPolicy)

	if knowledge != "" {
		b.WriteString("\n\nInformación de Kavak:\n")
		b.WriteString(knowledge)
	}
	if catalogCSV != "" {
		b.WriteString("\n\nAutos disponibles (CSV):\n")
		b.WriteString(catalogCSV)
	}
	if transcript != "" {
		b.WriteString("\n\nConversación previa:\n")
		b.WriteString(transcript)
	}
	return b.String()
}
