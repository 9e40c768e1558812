package models

import (
	"errors"
	"fmt"
)

// Error codes used for fatal setup failures and per-query diagnostics.
const (
	ErrCodeInputNotFound = "INPUT_NOT_FOUND"
	ErrCodeSchema        = "SCHEMA_ERROR"
	ErrCodeDecode        = "DECODE_ERROR"
	ErrCodeDriverMissing = "DRIVER_MISSING"
	ErrCodeBrowserLaunch = "BROWSER_LAUNCH"
	ErrCodeNavigation    = "NAVIGATION_FAILED"
	ErrCodeLedgerWrite   = "LEDGER_WRITE"
	ErrCodeInvalidConfig = "INVALID_CONFIG"
)

// ProbeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ProbeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ProbeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// NewProbeError creates a new ProbeError.
func NewProbeError(code, message string, err error) *ProbeError {
	return &ProbeError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first ProbeError in err's chain, or "".
func CodeOf(err error) string {
	var pe *ProbeError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
