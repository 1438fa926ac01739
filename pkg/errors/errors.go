package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents session-core error codes surfaced to clients.
type ErrorCode string

const (
	ErrCodeInvalidInput          ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound              ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized          ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden             ErrorCode = "FORBIDDEN"
	ErrCodeRoomFull              ErrorCode = "ROOM_FULL"
	ErrCodeRoomClosed            ErrorCode = "ROOM_CLOSED"
	ErrCodeTransportNotReady     ErrorCode = "TRANSPORT_NOT_READY"
	ErrCodeNegotiationTimeout    ErrorCode = "NEGOTIATION_TIMEOUT"
	ErrCodeIncompatibleMedia     ErrorCode = "INCOMPATIBLE_MEDIA"
	ErrCodeUnsupportedCapability ErrorCode = "UNSUPPORTED_CAPABILITY"
	ErrCodePermissionDenied      ErrorCode = "PERMISSION_DENIED"
	ErrCodeRateLimit             ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal              ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with code and context
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Context    map[string]interface{}
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Context:    make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with application error
func WrapError(err error, code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      err,
		Context:    make(map[string]interface{}),
	}
}

// Common error constructors. Join-path failures get distinct codes and
// messages: room-full, waiting-room and permission-denied must never
// collapse into one generic response.

func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NewUnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message, http.StatusForbidden)
}

func NewRoomFullError(capacity int) *AppError {
	return NewAppError(ErrCodeRoomFull, "meeting is at capacity", http.StatusConflict).
		WithContext("capacity", capacity)
}

func NewRoomClosedError() *AppError {
	return NewAppError(ErrCodeRoomClosed, "meeting has ended", http.StatusGone)
}

func NewTransportNotReadyError(transportID string) *AppError {
	return NewAppError(ErrCodeTransportNotReady, "transport is not connected yet", http.StatusConflict).
		WithContext("transport_id", transportID)
}

func NewNegotiationTimeoutError(transportID string) *AppError {
	return NewAppError(ErrCodeNegotiationTimeout, "transport negotiation timed out", http.StatusGatewayTimeout).
		WithContext("transport_id", transportID)
}

func NewIncompatibleMediaError(producerID string) *AppError {
	return NewAppError(ErrCodeIncompatibleMedia, "local capability cannot consume this producer", http.StatusUnprocessableEntity).
		WithContext("producer_id", producerID)
}

func NewUnsupportedCapabilityError() *AppError {
	return NewAppError(ErrCodeUnsupportedCapability, "device cannot satisfy the room media profile", http.StatusUnprocessableEntity)
}

func NewPermissionDeniedError(device string) *AppError {
	return NewAppError(ErrCodePermissionDenied, fmt.Sprintf("%s access was denied", device), http.StatusForbidden).
		WithContext("device", device)
}

func NewRateLimitError() *AppError {
	return NewAppError(ErrCodeRateLimit, "rate limit exceeded", http.StatusTooManyRequests)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

// IsAppError checks if error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	type unwrapper interface {
		Unwrap() error
	}

	if u, ok := err.(unwrapper); ok {
		return GetAppError(u.Unwrap())
	}

	return nil
}
