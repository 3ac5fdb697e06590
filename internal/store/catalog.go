package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"salesbot/internal/domain"
)

// --- domain.CatalogStore ---

const vehicleColumns = `id, stock_id, km, price, make, model, year, version, bluetooth, car_play, largo, ancho, altura`

func scanVehicle(row interface{ Scan(...any) error }) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := row.Scan(&v.ID, &v.StockID, &v.KM, &v.Price, &v.Make, &v.Model, &v.Year,
		&v.Version, &v.Bluetooth, &v.CarPlay, &v.Largo, &v.Ancho, &v.Altura)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVehicles returns the whole catalog snapshot in stock-id order.
func (s *SQLiteStore) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles ORDER BY stock_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, rows.Err()
}

func (s *SQLiteStore) GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error) {
	v, err := scanVehicle(s.db.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func (s *SQLiteStore) GetVehicleByStockID(ctx context.Context, stockID string) (*domain.Vehicle, error) {
	v, err := scanVehicle(s.db.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE stock_id = ?`, stockID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// SaveVehicle inserts or updates a vehicle. An empty ID means create; the
// generated id is written back to v.
func (s *SQLiteStore) SaveVehicle(ctx context.Context, v *domain.Vehicle) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vehicles (`+vehicleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   stock_id=excluded.stock_id, km=excluded.km, price=excluded.price,
		   make=excluded.make, model=excluded.model, year=excluded.year,
		   version=excluded.version, bluetooth=excluded.bluetooth,
		   car_play=excluded.car_play, largo=excluded.largo,
		   ancho=excluded.ancho, altura=excluded.altura`,
		v.ID, v.StockID, v.KM, v.Price, v.Make, v.Model, v.Year,
		v.Version, v.Bluetooth, v.CarPlay, v.Largo, v.Ancho, v.Altura,
	)
	if err != nil {
		return fmt.Errorf("save vehicle %s: %w", v.StockID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteVehicle(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id)
	return err
}
