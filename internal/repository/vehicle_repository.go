package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/alanwtom/carmodel/internal/model"
)

// VehicleRepo manages rows of the vehicles table.
type VehicleRepo struct {
	db *sql.DB
}

// NewVehicleRepo returns a new VehicleRepo bound to the given database.
func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

const vehicleColumns = `id, make, model, year, category, daily_rate, description, image_url, is_available, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(s rowScanner) (*model.Vehicle, error) {
	var (
		v     model.Vehicle
		desc  sql.NullString
		image sql.NullString
	)
	if err := s.Scan(&v.ID, &v.Make, &v.Model, &v.Year, &v.Category, &v.DailyRate,
		&desc, &image, &v.IsAvailable, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.Description = desc.String
	v.ImageURL = image.String
	return &v, nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts a vehicle and fills in its ID and timestamps.
func (r *VehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO vehicles (make, model, year, category, daily_rate, description, image_url, is_available)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.Make, v.Model, v.Year, v.Category, v.DailyRate, nullString(v.Description), nullString(v.ImageURL), v.IsAvailable)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM vehicles WHERE id = ?`, v.ID).Scan(&v.CreatedAt, &v.UpdatedAt)
}

// GetByID loads a vehicle or returns ErrVehicleNotFound.
func (r *VehicleRepo) GetByID(ctx context.Context, id uint64) (*model.Vehicle, error) {
	v, err := scanVehicle(r.db.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVehicleNotFound
	}
	return v, err
}

// GetByIDForUpdateTx loads a vehicle and holds an exclusive lock on its row
// until tx ends.  Every booking write for the vehicle takes this lock first.
func (r *VehicleRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Vehicle, error) {
	v, err := scanVehicle(tx.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVehicleNotFound
	}
	return v, classify(err)
}

// Update overwrites the editable columns of a vehicle.
func (r *VehicleRepo) Update(ctx context.Context, v *model.Vehicle) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE vehicles
		    SET make = ?, model = ?, year = ?, category = ?, daily_rate = ?, description = ?, image_url = ?, is_available = ?
		  WHERE id = ?`,
		v.Make, v.Model, v.Year, v.Category, v.DailyRate, nullString(v.Description), nullString(v.ImageURL), v.IsAvailable, v.ID)
	if err != nil {
		return err
	}
	// MySQL reports zero affected rows when nothing changed, so confirm the row exists.
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, v.ID); err != nil {
			return err
		}
	}
	return r.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM vehicles WHERE id = ?`, v.ID).Scan(&v.CreatedAt, &v.UpdatedAt)
}

// Delete removes a vehicle together with its images and cancelled
// bookings.  Returns ErrConflict while any active booking references it.
func (r *VehicleRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := r.GetByIDForUpdateTx(ctx, tx, id); err != nil {
		return err
	}
	var active int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE vehicle_id = ? AND status = ?`, id, model.BookingActive).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Count returns the number of vehicles in the catalog.
func (r *VehicleRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicles`).Scan(&n)
	return n, err
}
