// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the booking service to distinguish between different
// failure scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as deleting a
// vehicle that still has active bookings. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrNotFound is wrapped by every "row does not exist" error below so
// callers can test for the whole family with errors.Is.
var ErrNotFound = errors.New("not found")

var (
	ErrVehicleNotFound = fmt.Errorf("vehicle %w", ErrNotFound)
	ErrImageNotFound   = fmt.Errorf("image %w", ErrNotFound)
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
	ErrWalletNotFound  = fmt.Errorf("wallet %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
)

// ErrLockConflict marks a statement that lost a row-lock race (deadlock or
// lock wait timeout).  The whole transaction has been rolled back by MySQL
// and is safe to run again.
var ErrLockConflict = errors.New("lock conflict")

const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

func mysqlErrNumber(err error) (uint16, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number, true
	}
	return 0, false
}

func isDuplicateKey(err error) bool {
	n, ok := mysqlErrNumber(err)
	return ok && n == mysqlDuplicateEntry
}

// IsLockConflict reports whether err is a deadlock or lock wait timeout,
// either raw from the driver or already wrapped as ErrLockConflict.
func IsLockConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrLockConflict) {
		return true
	}
	n, ok := mysqlErrNumber(err)
	return ok && (n == mysqlDeadlock || n == mysqlLockWaitTimeout)
}

// classify wraps driver lock errors in ErrLockConflict and leaves
// everything else untouched.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrLockConflict) {
		return err
	}
	if IsLockConflict(err) {
		return fmt.Errorf("%w: %v", ErrLockConflict, err)
	}
	return err
}
