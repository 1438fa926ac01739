package errors

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "test error", 400)
	expected := "INVALID_INPUT: test error"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestAppError_WithCause(t *testing.T) {
	originalErr := errors.New("original error")
	err := WrapError(originalErr, ErrCodeInternal, "wrapped error", 500)

	if err.Cause != originalErr {
		t.Errorf("Cause = %v, want %v", err.Cause, originalErr)
	}
	if !strings.Contains(err.Error(), "original error") {
		t.Errorf("Error() should contain cause, got: %v", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("errors.Is should see through AppError")
	}
}

func TestAppError_WithContext(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "test error", 400)
	err.WithContext("room_id", "meeting_1").WithContext("capacity", 10)

	if err.Context["room_id"] != "meeting_1" {
		t.Errorf("Context[room_id] = %v, want 'meeting_1'", err.Context["room_id"])
	}
	if err.Context["capacity"] != 10 {
		t.Errorf("Context[capacity] = %v, want 10", err.Context["capacity"])
	}
}

func TestJoinFailuresAreDistinct(t *testing.T) {
	// Room-full, room-closed and permission-denied must stay
	// distinguishable for the UI.
	full := NewRoomFullError(10)
	closed := NewRoomClosedError()
	denied := NewPermissionDeniedError("camera")

	codes := map[ErrorCode]bool{full.Code: true, closed.Code: true, denied.Code: true}
	if len(codes) != 3 {
		t.Fatalf("expected 3 distinct codes, got %v", codes)
	}
	if full.Message == closed.Message || full.Message == denied.Message {
		t.Error("join failure messages must be distinct")
	}
}

func TestTransportErrors(t *testing.T) {
	notReady := NewTransportNotReadyError("t1")
	if notReady.Code != ErrCodeTransportNotReady {
		t.Errorf("Code = %v", notReady.Code)
	}
	if notReady.Context["transport_id"] != "t1" {
		t.Errorf("Context[transport_id] = %v", notReady.Context["transport_id"])
	}

	timeout := NewNegotiationTimeoutError("t1")
	if timeout.HTTPStatus != http.StatusGatewayTimeout {
		t.Errorf("HTTPStatus = %v, want 504", timeout.HTTPStatus)
	}
}

func TestGetAppError(t *testing.T) {
	inner := NewIncompatibleMediaError("p1")
	if got := GetAppError(inner); got != inner {
		t.Errorf("GetAppError = %v, want %v", got, inner)
	}
	if got := GetAppError(errors.New("plain")); got != nil {
		t.Errorf("GetAppError(plain) = %v, want nil", got)
	}
	if got := GetAppError(nil); got != nil {
		t.Errorf("GetAppError(nil) = %v, want nil", got)
	}
}
