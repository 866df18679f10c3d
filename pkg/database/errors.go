package database

import (
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
	"github.com/tenantdesk/tenantdesk-backend/pkg/errors"
)

// PostgreSQL error codes the services care about
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
	codeInvalidText         = "22P02"
	codeUndefinedColumn     = "42703"
	codeUndefinedTable      = "42P01"
	codeDuplicateColumn     = "42701"
)

// MapPQError converts a datastore error into an AppError that is safe to show
// to callers. Driver detail (constraint names, SQL fragments) is never copied
// into the message; the original error stays available through Unwrap for
// server-side logging.
func MapPQError(err error) *errors.AppError {
	if err == nil {
		return nil
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return errors.Datastore(err, "")
	}

	switch pqErr.Code {
	case codeUniqueViolation:
		return errors.Datastore(err, "a record with these values already exists")
	case codeForeignKeyViolation:
		return errors.Datastore(err, "referenced record does not exist")
	case codeNotNullViolation:
		if col := pqErr.Column; col != "" && !strings.ContainsAny(col, " ;'\"") {
			return errors.Datastore(err, "missing value for required column "+col)
		}
		return errors.Datastore(err, "missing value for a required column")
	case codeCheckViolation:
		return errors.Datastore(err, "value violates a table constraint")
	case codeInvalidText:
		return errors.Datastore(err, "invalid value for column type")
	case codeUndefinedColumn:
		return errors.Datastore(err, "column does not exist")
	case codeUndefinedTable:
		return errors.Datastore(err, "table does not exist")
	case codeDuplicateColumn:
		return errors.Datastore(err, "column already exists")
	default:
		return errors.Datastore(err, "")
	}
}

// IsUndefinedColumn reports whether err is PostgreSQL's undefined_column error
func IsUndefinedColumn(err error) bool {
	return hasCode(err, codeUndefinedColumn)
}

// IsUndefinedTable reports whether err is PostgreSQL's undefined_table error
func IsUndefinedTable(err error) bool {
	return hasCode(err, codeUndefinedTable)
}

func hasCode(err error, code string) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}

// IsServerError reports whether err was returned by the PostgreSQL server,
// as opposed to a timeout or a connection failure on the way to it
func IsServerError(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr)
}
