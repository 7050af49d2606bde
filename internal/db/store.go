package db

import (
	"database/sql"
	"errors"

	"github.com/edupoint/reportcard/internal/report"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store implements the engine's persistence boundary over raw SQL.
type Store struct {
	DB *sql.DB
}

func NewStore(database *sql.DB) *Store { return &Store{DB: database} }

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-constraint failure,
// optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// persistErr wraps non-domain store failures in the engine's fatal
// persistence error.
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return report.ErrNotFound
	}
	return &report.PersistenceError{Op: op, Err: err}
}
