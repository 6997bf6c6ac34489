package service

import (
	"errors"
	"fmt"
)

// Error codes returned to callers. They match the reasons the mobile client
// already understands.
const (
	CodeInvalidArgument = "invalid-argument"
	CodeNotFound        = "not-found"
	CodeInternal        = "internal"
)

// CodeResourceExhausted means every build slot was taken; the caller may retry.
const CodeResourceExhausted = "resource-exhausted"

// ReportError is a failure with a machine-readable code.
type ReportError struct {
	Code    string
	Message string
	Err     error
}

func (e *ReportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *ReportError) Unwrap() error { return e.Err }

func invalidArgument(msg string) error {
	return &ReportError{Code: CodeInvalidArgument, Message: msg}
}

func notFound(msg string, err error) error {
	return &ReportError{Code: CodeNotFound, Message: msg, Err: err}
}

func internal(msg string, err error) error {
	return &ReportError{Code: CodeInternal, Message: msg, Err: err}
}

// CodeOf returns the code of a ReportError in err's chain, or CodeInternal.
func CodeOf(err error) string {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Code
	}
	return CodeInternal
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Message
	}
	return "Error interno."
}
