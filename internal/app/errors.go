package app

import (
	"errors"
	"strings"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

const genericExternalMsg = "the deals service could not complete the request, please try again"

// ExternalError carries a deals API failure upward unchanged. Local state is
// never rolled back; the caller decides whether to reload or retry.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string { return e.Op + ": " + e.Detail() }

// Detail is the upstream message, or a generic one when upstream said nothing.
func (e *ExternalError) Detail() string {
	if e.Err == nil {
		return genericExternalMsg
	}
	if msg := strings.TrimSpace(e.Err.Error()); msg != "" {
		return msg
	}
	return genericExternalMsg
}

func (e *ExternalError) Unwrap() error { return e.Err }

func external(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalError{Op: op, Err: err}
}
