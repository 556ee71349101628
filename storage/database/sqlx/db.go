package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Nanikworkforce/TET-Bloom/core"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err was raised by the named unique constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}

// notFound maps sql.ErrNoRows to errNotFound and wraps anything else.
// A closed pool is reported as a shutdown error so the API stops serving.
func notFound(err error, errNotFound error, msg string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return errNotFound
	case errors.Is(err, sql.ErrConnDone):
		return core.NewShutdownError(msg + ": database connection closed")
	}
	return errors.Wrap(err, msg)
}
