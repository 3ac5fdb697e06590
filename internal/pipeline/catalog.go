package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"salesbot/internal/domain"
)

// catalogHeader is the fixed column order of the serialized inventory. The
// filter prompt instructs the model to echo this header, so it must stay
// stable across serialize and parse.
var catalogHeader = []string{
	"stock_id", "km", "price", "make", "model", "year", "version",
	"bluetooth", "largo", "ancho", "altura", "car_play",
}

// vehiclesCSV renders the inventory as CSV text in catalogHeader order.
// Booleans are literal "true"/"false", numbers are unpadded decimal.
func vehiclesCSV(vehicles []domain.Vehicle) (string, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)
	if err := w.Write(catalogHeader); err != nil {
		return "", err
	}
	for _, v := range vehicles {
		row := []string{
			v.StockID,
			strconv.Itoa(v.KM),
			strconv.FormatFloat(v.Price, 'f', -1, 64),
			v.Make,
			v.Model,
			strconv.Itoa(v.Year),
			v.Version,
			strconv.FormatBool(v.Bluetooth),
			strconv.FormatFloat(v.Largo, 'f', -1, 64),
			strconv.FormatFloat(v.Ancho, 'f', -1, 64),
			strconv.FormatFloat(v.Altura, 'f', -1, 64),
			strconv.FormatBool(v.CarPlay),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

const catalogFilterPrompt = "Eres un agente de ventas de Kavak. A continuación tienes el catálogo " +
	"completo de autos disponibles en formato CSV. Filtra el catálogo y devuelve, en el mismo " +
	"formato CSV con el mismo encabezado, únicamente los autos que coinciden con lo que busca el " +
	"usuario. No inventes nada. Si no hay coincidencias, devuelve un CSV con solo el encabezado."

// filterCatalog hands the whole serialized inventory to the model and asks
// for the matching subset back as CSV. This call uses the generation model at
// temperature 0: the catalog plus conversation does not fit the cheaper
// model's context, and filtering must stay deterministic.
func (p *Pipeline) filterCatalog(ctx context.Context, normalized string, vehicles []domain.Vehicle) (string, error) {
	full, err := vehiclesCSV(vehicles)
	if err != nil {
		return "", fmt.Errorf("serialize catalog: %w", err)
	}

	out, err := p.completer.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.PromptMessage{
			{Role: "system", Content: catalogFilterPrompt + "\n\nCatálogo:\n" + full},
			{Role: "user", Content: normalized},
		},
		Model:       p.cfg.GenerationModel,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("filter catalog: %w", err)
	}
	return stripCodeFence(out), nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```csv")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
