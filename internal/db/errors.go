package db

import (
	"errors"

	"github.com/lib/pq"
)

// Postgres SQLSTATE codes the application reacts to.
const (
	codeUndefinedTable = "42P01"
	codeCheckViolation = "23514"
	codeInvalidText    = "22P02"
)

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// IsUndefinedTable reports whether err is a "relation does not exist" error.
// Reads treat this as an empty result so a partially provisioned project still serves.
func IsUndefinedTable(err error) bool {
	return pqCode(err) == codeUndefinedTable
}

// IsInvalidInput reports whether err was caused by malformed input such as a
// non-uuid id or a value rejected by a CHECK constraint.
func IsInvalidInput(err error) bool {
	code := pqCode(err)
	return code == codeInvalidText || code == codeCheckViolation
}
