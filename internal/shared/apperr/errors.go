package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the request boundary.
type Kind string

const (
	KindValidation     Kind = "VALIDATION_ERROR"
	KindProcessing     Kind = "PROCESSING_ERROR"
	KindUpstream       Kind = "UPSTREAM_SERVICE_ERROR"
	KindPartialFailure Kind = "PARTIAL_FAILURE"
	KindNotFound       Kind = "NOT_FOUND"
)

// Error is a structured pipeline error. Op names the failing step and
// Message is safe to show to callers only for validation errors.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s (caused by: %v)", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation reports missing or malformed caller input.
func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// Processing reports a local transformation failure (decode, image filters).
func Processing(op string, cause error) *Error {
	return &Error{Kind: KindProcessing, Op: op, Message: "processing failed", Cause: cause}
}

// Upstream reports a failed call to the OCR engine or the cloud store.
func Upstream(op string, cause error) *Error {
	return &Error{Kind: KindUpstream, Op: op, Message: "upstream call failed", Cause: cause}
}

// NotFound reports a missing remote resource.
func NotFound(op string, cause error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: "not found", Cause: cause}
}

// PartialFailure reports a multi-step write that stopped after its first
// step succeeded. fileID identifies the artifact left behind.
func PartialFailure(op, fileID string, cause error) *Error {
	return &Error{
		Kind:    KindPartialFailure,
		Op:      op,
		Message: "write stopped after binary upload",
		Details: map[string]any{"file_id": fileID},
		Cause:   cause,
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsValidation reports whether err carries a validation error.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// ToMap flattens the error for structured logging.
func (e *Error) ToMap() map[string]any {
	out := map[string]any{
		"error_kind": string(e.Kind),
		"op":         e.Op,
		"message":    e.Message,
	}
	for k, v := range e.Details {
		out[k] = v
	}
	if e.Cause != nil {
		out["cause"] = e.Cause.Error()
	}
	return out
}
