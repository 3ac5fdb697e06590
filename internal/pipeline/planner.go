package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"salesbot/internal/domain"
)

const needsCatalogPrompt = "Eres un agente de ventas de Kavak. Analiza la conversación y el último " +
	"mensaje del usuario y decide si para responder necesitas consultar el catálogo de autos " +
	"disponibles (precios, modelos, kilometraje, características). " +
	"Responde únicamente 'true' o 'false', sin explicación."

// needsCatalogInfo asks the classification model whether this turn requires
// catalog data. The parse is fail-closed: anything other than a bare "true"
// counts as false, so a confused model costs one catalog lookup at most,
// never a hallucinated inventory.
func (p *Pipeline) needsCatalogInfo(ctx context.Context, transcript, normalized string) (bool, error) {
	out, err := p.completer.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.PromptMessage{
			{Role: "system", Content: needsCatalogPrompt},
			{Role: "user", Content: planningInput(transcript, normalized)},
		},
		Model:       p.cfg.ClassificationModel,
		Temperature: p.cfg.ClassificationTemperature,
	})
	if err != nil {
		return false, fmt.Errorf("catalog decision: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(out)) == "true", nil
}

const articleSelectPrompt = "Eres un agente de ventas de Kavak. A continuación tienes la lista de " +
	"artículos de la base de conocimiento en formato 'id: título'. Analiza la conversación y el " +
	"último mensaje del usuario y devuelve un arreglo JSON con los ids de los artículos relevantes " +
	"para responder. Si ninguno es relevante devuelve un arreglo vacío. " +
	"Ejemplo de salida: [\"uuid1\", \"uuid2\"]"

// relevantArticleIDs asks the classification model which knowledge articles
// apply to this turn, given the active article index. The response is parsed
// fail-open: malformed output means no articles, never an aborted run. IDs
// not in the index are discarded.
func (p *Pipeline) relevantArticleIDs(ctx context.Context, transcript, normalized string, articles []domain.KnowledgeArticle) ([]string, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	var index strings.Builder
	for _, a := range articles {
		index.WriteString(a.ID)
		index.WriteString(": ")
		index.WriteString(a.Name)
		index.WriteString("\n")
	}

	out, err := p.completer.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.PromptMessage{
			{Role: "system", Content: articleSelectPrompt + "\n\nArtículos:\n" + index.String()},
			{Role: "user", Content: planningInput(transcript, normalized)},
		},
		Model:       p.cfg.ClassificationModel,
		Temperature: p.cfg.ClassificationTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("article selection: %w", err)
	}

	ids := parseIDArray(out)
	if ids == nil {
		p.logger.Warn("article selection returned unparseable output", "output", truncate(out, 200))
		return nil, nil
	}

	known := make(map[string]bool, len(articles))
	for _, a := range articles {
		known[a.ID] = true
	}
	kept := ids[:0]
	for _, id := range ids {
		if known[id] {
			kept = append(kept, id)
		}
	}
	return kept, nil
}

// parseIDArray extracts a JSON string array from model output, tolerating
// markdown code fences. Returns nil when no valid array is found.
func parseIDArray(out string) []string {
	s := strings.TrimSpace(out)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var ids []string
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil
	}
	return ids
}

// planningInput joins the conversation context and the current question the
// same way for both planning calls.
func planningInput(transcript, normalized string) string {
	if transcript == "" {
		return "Mensaje del usuario: " + normalized
	}
	return "Conversación:\n" + transcript + "\n\nMensaje del usuario: " + normalized
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
