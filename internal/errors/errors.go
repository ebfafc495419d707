package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes. Each maps to one failure class of the aggregation pipeline.
const (
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeDecodeError      = "DECODE_ERROR"
	CodeTooLarge         = "PAYLOAD_TOO_LARGE"
	CodeParseError       = "PARSE_ERROR"
	CodeValidationError  = "VALIDATION_ERROR"
	CodeAggregationError = "AGGREGATION_ERROR"
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeInternalError    = "INTERNAL_ERROR"
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context, keeping the code of an
// AppError cause.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// WithCode wraps err under the given code.
func WithCode(code string, err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// GetCode returns the code of the first AppError in the chain, otherwise
// CodeInternalError.
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return err != nil && GetCode(err) == code
}

// HTTPStatus maps an error to its response status: client errors for bad
// input, server errors for aggregation and internal failures.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeDecodeError, CodeParseError, CodeValidationError:
		return http.StatusBadRequest
	case CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message)
}

func DecodeError(message string, cause error) *AppError {
	return &AppError{Code: CodeDecodeError, Message: message, Cause: cause}
}

func TooLarge(limit int64) *AppError {
	return Newf(CodeTooLarge, "upload exceeds the %d byte limit", limit)
}

func ParseError(message string, cause error) *AppError {
	return &AppError{Code: CodeParseError, Message: message, Cause: cause}
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func AggregationError(message string, cause error) *AppError {
	return &AppError{Code: CodeAggregationError, Message: message, Cause: cause}
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}
