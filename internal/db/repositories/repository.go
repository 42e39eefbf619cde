// Package repositories implements the data access layer over the BaaS Postgres database.
// Each repository wraps a *sqlx.DB, takes a context on every call, and returns
// (nil, nil) from single-row getters when the row does not exist.
package repositories

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/creavibe/creavibe/internal/db"
)

// psql builds Postgres-flavoured ($1, $2, ...) statements
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// isMissingTable reports a "relation does not exist" error. Reads treat it as an
// empty result so a partially provisioned schema still serves.
func isMissingTable(err error) bool {
	return db.IsUndefinedTable(err)
}

// isInvalidInput reports a malformed literal such as a non-UUID id. Lookups by such an
// id cannot match any row.
func isInvalidInput(err error) bool {
	return db.IsInvalidInput(err)
}
