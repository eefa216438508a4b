package personstore

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrUniqueViolation   = errors.New("unique constraint violated")
	ErrConnectivity      = errors.New("database unreachable")
	ErrInvalidURL        = errors.New("invalid URL")
	ErrMissingExternalID = errors.New("external identifier (ap_id) required")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrExternalIDChanged = errors.New("external identifier (ap_id) cannot change once assigned")

	// returned by the name availability check; matches ErrUniqueViolation with errors.Is
	ErrUsernameAlreadyExists = fmt.Errorf("username already exists: %w", ErrUniqueViolation)
)

// postgres SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// translateError maps driver and gorm errors onto the package sentinels. Anything else passes
// through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUniqueViolation), errors.Is(err, ErrConnectivity):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	case isConnectivityError(err):
		return fmt.Errorf("%w: %w", ErrConnectivity, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isConnectivityError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
