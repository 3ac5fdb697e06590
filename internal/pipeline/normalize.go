package pipeline

import (
	"context"
	"fmt"

	"salesbot/internal/domain"
)

const normalizeSystemPrompt = "Corrige y normaliza la siguiente frase del usuario sobre autos. " +
	"Devuelve el texto corregido en español, SIN añadir información adicional ni explicación. " +
	"Ejemplo: 'nesesito un nissan versa 2022 en guadaljara' -> 'Necesito un Nissan Versa 2022 en Guadalajara'."

// normalize fixes spelling and casing of the user's raw message so the
// retrieval steps see a clean query. An error here aborts the run: every
// later step consumes the normalized form.
func (p *Pipeline) normalize(ctx context.Context, raw string) (string, error) {
	out, err := p.completer.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.PromptMessage{
			{Role: "system", Content: normalizeSystemPrompt},
			{Role: "user", Content: raw},
		},
		Model:       p.cfg.ClassificationModel,
		Temperature: p.cfg.ClassificationTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("normalize message: %w", err)
	}
	if out == "" {
		return "", fmt.Errorf("normalize message: %w", domain.ErrEmptyCompletion)
	}
	return out, nil
}
