package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeTimeout         Code = "TIMEOUT"
	CodeInternal        Code = "INTERNAL"

	// training core
	CodeScenarioNotFound        Code = "SCENARIO_NOT_FOUND"
	CodeSessionNotFound         Code = "SESSION_NOT_FOUND"
	CodeSessionClosed           Code = "SESSION_CLOSED"
	CodeMessageNotFound         Code = "MESSAGE_NOT_FOUND"
	CodeCorrectionAlreadyExists Code = "CORRECTION_ALREADY_EXISTS"
	CodeGenerationTimeout       Code = "GENERATION_TIMEOUT"
	CodeGenerationFailed        Code = "GENERATION_FAILED"
	CodeStoreUnavailable        Code = "STORE_UNAVAILABLE"
)

// AppError is the unified error contract across layers.
//
// Partial marks an operation whose primary write committed while a secondary
// effect (cache, event) did not. Callers get the result alongside such an error.
type AppError struct {
	Code    Code
	Op      string // operation name, ex: "TurnEngine.Advance"
	Message string // safe message
	Err     error  // wrapped error
	Partial bool
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "error"
	}
}

func (e *AppError) Unwrap() error { return e.Err }

func E(code Code, op, msg string, err error) error {
	return &AppError{Code: code, Op: op, Message: msg, Err: err}
}

// Partial builds an error for a committed write whose follow-up effect failed.
func Partial(code Code, op, msg string, err error) error {
	return &AppError{Code: code, Op: op, Message: msg, Err: err, Partial: true}
}

func IsCode(err error, code Code) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

func IsPartial(err error) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Partial
	}
	return false
}

// CodeOf returns the code of the outermost AppError, or CodeInternal.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	if errors.Is(err, ErrNotFound) {
		return CodeNotFound
	}
	return CodeInternal
}

func HTTPStatus(err error) int {
	var ae *AppError
	if errors.As(err, &ae) {
		switch ae.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeUnauthorized:
			return http.StatusUnauthorized
		case CodeForbidden:
			return http.StatusForbidden
		case CodeNotFound, CodeScenarioNotFound, CodeSessionNotFound, CodeMessageNotFound:
			return http.StatusNotFound
		case CodeConflict, CodeSessionClosed, CodeCorrectionAlreadyExists:
			return http.StatusConflict
		case CodeUnavailable, CodeStoreUnavailable:
			return http.StatusServiceUnavailable
		case CodeTimeout, CodeGenerationTimeout:
			return http.StatusGatewayTimeout
		case CodeGenerationFailed:
			return http.StatusBadGateway
		default:
			return http.StatusInternalServerError
		}
	}
	// fallback
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Sentinel errors returned by repositories.
var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a conditional write whose precondition no longer held.
	ErrConflict = errors.New("conflict")
)
