package repository

import (
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsConnectionLoss reports whether a database error means the connection to
// the server is gone. The pipeline escalates these to a run abort: every
// later write would fail the same way, so continuing only burns the catalog.
//
// SQLSTATE class 08 covers connection exceptions; 57P01..57P03 are server
// shutdown/crash notices delivered before the link drops.
func IsConnectionLoss(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "08") {
			return true
		}
		switch pgErr.Code {
		case "57P01", "57P02", "57P03":
			return true
		}
	}
	return false
}

// IsTransient reports whether a statement failed for a reason that clears on
// its own, so the same statement is worth retrying on the spot. 55P03 is a
// lock timeout, 40001 a serialization failure, 40P01 a deadlock.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", "40001", "40P01":
			return true
		}
	}
	return false
}
