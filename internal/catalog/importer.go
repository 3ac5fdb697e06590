// Package catalog imports vehicle inventory from CSV files.
package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"salesbot/internal/domain"
)

// ImportResult summarizes one import run.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Importer parses inventory CSVs and upserts rows keyed by stock_id, so
// re-importing a refreshed export updates prices and mileage in place.
type Importer struct {
	store  domain.CatalogStore
	logger *slog.Logger
}

func NewImporter(store domain.CatalogStore, logger *slog.Logger) *Importer {
	return &Importer{store: store, logger: logger}
}

// Import reads CSV from r. The header row names the columns; order is free
// and unknown columns are ignored. Rows without a stock_id are counted as
// skipped, a malformed numeric field fails the import.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for idx, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	if _, ok := cols["stock_id"]; !ok {
		return nil, fmt.Errorf("header missing stock_id column")
	}

	result := &ImportResult{}
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		field := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		stockID := field("stock_id")
		if stockID == "" {
			result.Skipped++
			continue
		}

		v := &domain.Vehicle{
			StockID: stockID,
			Make:    field("make"),
			Model:   field("model"),
			Version: field("version"),
		}
		if v.KM, err = parseInt(field("km")); err != nil {
			return nil, fmt.Errorf("line %d km: %w", line, err)
		}
		if v.Year, err = parseInt(field("year")); err != nil {
			return nil, fmt.Errorf("line %d year: %w", line, err)
		}
		if v.Price, err = parseFloat(field("price")); err != nil {
			return nil, fmt.Errorf("line %d price: %w", line, err)
		}
		if v.Largo, err = parseFloat(field("largo")); err != nil {
			return nil, fmt.Errorf("line %d largo: %w", line, err)
		}
		if v.Ancho, err = parseFloat(field("ancho")); err != nil {
			return nil, fmt.Errorf("line %d ancho: %w", line, err)
		}
		if v.Altura, err = parseFloat(field("altura")); err != nil {
			return nil, fmt.Errorf("line %d altura: %w", line, err)
		}
		v.Bluetooth = parseBool(field("bluetooth"))
		v.CarPlay = parseBool(field("car_play"))

		// Keep the row id stable across re-imports of the same stock_id.
		if existing, err := i.store.GetVehicleByStockID(ctx, stockID); err == nil && existing != nil {
			v.ID = existing.ID
		}

		if err := i.store.SaveVehicle(ctx, v); err != nil {
			return nil, fmt.Errorf("line %d: save %s: %w", line, stockID, err)
		}
		result.Imported++
	}

	i.logger.Info("catalog import finished", "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// parseBool accepts the spellings seen in real inventory exports.
func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "si", "sí":
		return true
	}
	return false
}
