// Package violation defines the categorized rejection errors returned by the
// query validators. Every rejection carries a Kind so callers can distinguish
// e.g. a denied column from a join limit without parsing messages.
package violation

import (
	"errors"
	"fmt"
)

// Kind identifies the rule dimension a query violated.
type Kind string

const (
	SQLSyntax       Kind = "sql_syntax"
	SQLInjection    Kind = "sql_injection"
	TableAccess     Kind = "table_access"
	ColumnAccess    Kind = "column_access"
	Join            Kind = "join_violation"
	QueryComplexity Kind = "query_complexity"
)

// Error is a categorized validation rejection. It is a rejection of the
// query, not a crash: well-formed inputs never produce anything else.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New builds a violation of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Syntaxf builds an SQLSyntax violation.
func Syntaxf(format string, args ...interface{}) *Error {
	return New(SQLSyntax, format, args...)
}

// Injectionf builds an SQLInjection violation.
func Injectionf(format string, args ...interface{}) *Error {
	return New(SQLInjection, format, args...)
}

// TableAccessf builds a TableAccess violation.
func TableAccessf(format string, args ...interface{}) *Error {
	return New(TableAccess, format, args...)
}

// ColumnAccessf builds a ColumnAccess violation.
func ColumnAccessf(format string, args ...interface{}) *Error {
	return New(ColumnAccess, format, args...)
}

// Joinf builds a Join violation.
func Joinf(format string, args ...interface{}) *Error {
	return New(Join, format, args...)
}

// Complexityf builds a QueryComplexity violation.
func Complexityf(format string, args ...interface{}) *Error {
	return New(QueryComplexity, format, args...)
}

// KindOf returns the kind of err if it is (or wraps) a violation.
func KindOf(err error) (Kind, bool) {
	var v *Error
	if errors.As(err, &v) {
		return v.Kind, true
	}
	return "", false
}

// Is reports whether err is (or wraps) a violation of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
