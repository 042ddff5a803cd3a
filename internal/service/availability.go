package service

import (
	"context"
	"time"
)

// IsAvailable reports whether no active booking of vehicleID overlaps the
// inclusive range [start, end].  excludeBookingID (0 for none) lets a booking
// be checked against everything but itself.  It must run in the same unit of
// work as the write it guards, after the vehicle row has been locked.
func IsAvailable(ctx context.Context, tx Tx, vehicleID uint64, start, end time.Time, excludeBookingID uint64) (bool, error) {
	n, err := tx.CountOverlapping(ctx, vehicleID, start, end, excludeBookingID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
