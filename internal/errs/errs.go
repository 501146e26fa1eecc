// Package errs declares AETHERA's typed error taxonomy . The
// orchestrator is the single place that pattern-matches on Kind to decide
// fatal vs. skip; stages themselves never retry or catch their own errors
// except to attach a Stage/Kind.
package errs

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy of 
type Kind string

const (
	InvalidInput         Kind = "InvalidInput"
	DatasetMissing       Kind = "DatasetMissing"
	DatasetCorrupt       Kind = "DatasetCorrupt"
	StageFailedOptional  Kind = "StageFailed(optional=true)"
	StageFailedRequired  Kind = "StageFailed(optional=false)"
	ModelSchemaMismatch  Kind = "ModelSchemaMismatch"
	LegalRuleParseError  Kind = "LegalRuleParseError"
	Timeout              Kind = "Timeout"
	Cancelled            Kind = "Cancelled"
	StorageError         Kind = "StorageError"
)

// Error is AETHERA's structured error type: a Kind, the stage that raised
// it, a human message, and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error.
func New(kind Kind, stage, message string) *Error {
	return &Error{Kind: kind, Stage: stage, Message: message}
}

// Wrap constructs an *Error that wraps cause.
func Wrap(kind Kind, stage string, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, Stage: stage, Message: msg, Cause: cause}
}

// IsOptionalStageFailure reports whether err represents a non-fatal,
// skippable stage failure.
func IsOptionalStageFailure(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == StageFailedOptional
	}
	return false
}

// KindOf extracts the Kind of err, if it (or something it wraps) is an
// *Error. The zero Kind is returned otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
