package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes storage failures.
type ErrorCode string

const (
	// CodeStorageUnavailable indicates the database file could not be opened.
	CodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"

	// CodeSchemaUpgrade indicates the versioned layout could not be materialized.
	CodeSchemaUpgrade ErrorCode = "SCHEMA_UPGRADE"

	// CodeDuplicateKey indicates Add found an existing record with the same key.
	CodeDuplicateKey ErrorCode = "DUPLICATE_KEY"

	// CodeNotFound indicates a lookup by key found nothing. The engine itself
	// reports absence through return values; consumers use this code when
	// absence is an error for them.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeTransactionFailure indicates an I/O, quota or driver error.
	CodeTransactionFailure ErrorCode = "TRANSACTION_FAILURE"

	// CodeUnknownCollection indicates a collection or index the registry does not declare.
	CodeUnknownCollection ErrorCode = "UNKNOWN_COLLECTION"

	// CodeInvalidRecord indicates a record that is not a JSON object with a string key.
	CodeInvalidRecord ErrorCode = "INVALID_RECORD"
)

// Sentinels for errors.Is. They match any *Error with the same Code.
var (
	ErrStorageUnavailable = &Error{Code: CodeStorageUnavailable}
	ErrSchemaUpgrade      = &Error{Code: CodeSchemaUpgrade}
	ErrDuplicateKey       = &Error{Code: CodeDuplicateKey}
	ErrNotFound           = &Error{Code: CodeNotFound}
	ErrTransactionFailure = &Error{Code: CodeTransactionFailure}
	ErrUnknownCollection  = &Error{Code: CodeUnknownCollection}
	ErrInvalidRecord      = &Error{Code: CodeInvalidRecord}
)

// Error is a typed storage failure.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the engine operation ("add", "open", ...).
	Op string

	// Collection and Key identify the affected record, when known.
	Collection string
	Key        string

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	msg := "store: "
	if e.Op != "" {
		msg += e.Op
		if e.Collection != "" {
			msg += " " + e.Collection
			if e.Key != "" {
				msg += "/" + e.Key
			}
		}
		msg += ": "
	}
	msg += string(e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the Code of the first *Error in err's chain, or "" when
// there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func newError(code ErrorCode, op, collection, key string, err error) *Error {
	return &Error{Code: code, Op: op, Collection: collection, Key: key, Err: err}
}

// txFailure wraps a driver error unless it already carries a Code.
func txFailure(op, collection, key string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return newError(CodeTransactionFailure, op, collection, key, err)
}

func unknownCollection(op, collection string) error {
	return newError(CodeUnknownCollection, op, collection, "", fmt.Errorf("collection %q is not declared", collection))
}
