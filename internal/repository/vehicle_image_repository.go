package repository

import (
	"context"
	"database/sql"

	"github.com/alanwtom/carmodel/internal/model"
)

// VehicleImageRepo manages the ordered image gallery of each vehicle.  At
// most one image per vehicle carries is_primary.
type VehicleImageRepo struct {
	db       *sql.DB
	vehicles *VehicleRepo
}

func NewVehicleImageRepo(db *sql.DB, vehicles *VehicleRepo) *VehicleImageRepo {
	return &VehicleImageRepo{db: db, vehicles: vehicles}
}

// ListByVehicle returns the gallery in display order.
func (r *VehicleImageRepo) ListByVehicle(ctx context.Context, vehicleID uint64) ([]model.VehicleImage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, vehicle_id, url, is_primary, position, created_at
		   FROM vehicle_images WHERE vehicle_id = ? ORDER BY position ASC, id ASC`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.VehicleImage{}
	for rows.Next() {
		var im model.VehicleImage
		if err := rows.Scan(&im.ID, &im.VehicleID, &im.URL, &im.IsPrimary, &im.Position, &im.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, im)
	}
	return out, rows.Err()
}

// Add appends an image to the end of the gallery.  When primary is true the
// previous primary image loses the flag in the same transaction.
func (r *VehicleImageRepo) Add(ctx context.Context, vehicleID uint64, url string, primary bool) (*model.VehicleImage, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	// the vehicle row lock serializes concurrent uploads for position numbering
	if _, err := r.vehicles.GetByIDForUpdateTx(ctx, tx, vehicleID); err != nil {
		return nil, err
	}
	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM vehicle_images WHERE vehicle_id = ?`, vehicleID).Scan(&next); err != nil {
		return nil, err
	}
	if primary {
		if _, err := tx.ExecContext(ctx,
			`UPDATE vehicle_images SET is_primary = 0 WHERE vehicle_id = ?`, vehicleID); err != nil {
			return nil, err
		}
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO vehicle_images (vehicle_id, url, is_primary, position) VALUES (?, ?, ?, ?)`,
		vehicleID, url, primary, next)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	im := &model.VehicleImage{ID: uint64(id), VehicleID: vehicleID, URL: url, IsPrimary: primary, Position: next}
	if err := tx.QueryRowContext(ctx,
		`SELECT created_at FROM vehicle_images WHERE id = ?`, im.ID).Scan(&im.CreatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return im, nil
}

// SetPrimary marks one image as the vehicle's primary image.
func (r *VehicleImageRepo) SetPrimary(ctx context.Context, vehicleID, imageID uint64) error {
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
	var found int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vehicle_images WHERE id = ? AND vehicle_id = ?`, imageID, vehicleID).Scan(&found); err != nil {
		return err
	}
	if found == 0 {
		return ErrImageNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE vehicle_images SET is_primary = (id = ?) WHERE vehicle_id = ?`, imageID, vehicleID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes one image from a vehicle's gallery.
func (r *VehicleImageRepo) Delete(ctx context.Context, vehicleID, imageID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM vehicle_images WHERE id = ? AND vehicle_id = ?`, imageID, vehicleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrImageNotFound
	}
	return nil
}
