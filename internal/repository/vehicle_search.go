package repository

import (
	"context"
	"strings"

	"github.com/alanwtom/carmodel/internal/model"
)

// VehicleSearchQuery defines filters, ordering and pagination for the catalog.
type VehicleSearchQuery struct {
	Category      string
	Sort          string // price_low | price_high | newest (default)
	AvailableOnly bool
	Page          int
	PageSize      int
}

// Search lists vehicles matching q and returns the total number of matches.
func (r *VehicleRepo) Search(ctx context.Context, q VehicleSearchQuery) ([]model.Vehicle, int64, error) {
	where := []string{}
	args := []any{}

	if q.AvailableOnly {
		where = append(where, "is_available = 1")
	}
	if c := strings.ToLower(strings.TrimSpace(q.Category)); c != "" {
		where = append(where, "category = ?")
		args = append(args, c)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicles WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "created_at DESC, id DESC"
	switch strings.ToLower(q.Sort) {
	case "price_low":
		order = "daily_rate ASC, id ASC"
	case "price_high":
		order = "daily_rate DESC, id ASC"
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE ` + cond + ` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Vehicle, 0, limit)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
