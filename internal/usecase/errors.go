package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrorUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrorNotFound       ErrorCode = "NOT_FOUND"
	ErrorMalformedCalls ErrorCode = "MALFORMED_CALLS"
	ErrorEmptyResponse  ErrorCode = "EMPTY_RESPONSE"
	ErrorIterationLimit ErrorCode = "ITERATION_LIMIT"
	ErrorExtraction     ErrorCode = "EXTRACTION_ERROR"
	ErrorRateLimited    ErrorCode = "RATE_LIMITED"
	ErrorUpstream       ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal       ErrorCode = "INTERNAL_ERROR"
)

// Error is the typed failure crossing the usecase boundary. Code drives the
// handler's HTTP mapping; Reason is a stable machine-readable detail.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// CodeOf extracts the ErrorCode from err, defaulting to INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ErrorInternal
}
