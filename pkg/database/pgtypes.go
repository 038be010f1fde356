package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/minds-hub/backend/pkg/timerange"
)

// PGTime converts a time of day to the pgtype used for TIME columns.
func PGTime(t timerange.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: t.Microseconds(), Valid: true}
}

// FromPGTime converts a scanned TIME column. NULL maps to midnight.
func FromPGTime(t pgtype.Time) timerange.TimeOfDay {
	if !t.Valid {
		return 0
	}
	return timerange.FromMicroseconds(t.Microseconds)
}

// IsUniqueViolation reports a unique_violation (23505), optionally on a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
