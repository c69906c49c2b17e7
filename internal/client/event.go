package client

import "time"

// Event is the interface for all session lifecycle events.
type Event interface {
	GetType() string
	GetSessionID() string
}

// BaseEvent is the base implementation of Event.
type BaseEvent struct {
	Type      string
	SessionID string
}

// GetType returns the event type.
func (e *BaseEvent) GetType() string {
	return e.Type
}

// GetSessionID returns the session id the event belongs to.
func (e *BaseEvent) GetSessionID() string {
	return e.SessionID
}

// Event types
const (
	EventTypeStatus    = "status"
	EventTypeQR        = "qr"
	EventTypeConnected = "connected"
	EventTypeLoggedOut = "logged_out"
	EventTypeError     = "error"
)

// StatusEvent reports a connection state transition.
type StatusEvent struct {
	BaseEvent
	Status Status
}

// NewStatusEvent creates a new status event.
func NewStatusEvent(sessionID string, status Status) *StatusEvent {
	return &StatusEvent{
		BaseEvent: BaseEvent{Type: EventTypeStatus, SessionID: sessionID},
		Status:    status,
	}
}

// QREvent reports a freshly issued pairing code.
type QREvent struct {
	BaseEvent
	Code      string
	ExpiresAt time.Time
}

// NewQREvent creates a new QR event.
func NewQREvent(sessionID, code string, expiresAt time.Time) *QREvent {
	return &QREvent{
		BaseEvent: BaseEvent{Type: EventTypeQR, SessionID: sessionID},
		Code:      code,
		ExpiresAt: expiresAt,
	}
}

// ConnectedEvent reports a completed pairing with the paired phone number.
type ConnectedEvent struct {
	BaseEvent
	PhoneNumber string
}

// NewConnectedEvent creates a new connected event.
func NewConnectedEvent(sessionID, phoneNumber string) *ConnectedEvent {
	return &ConnectedEvent{
		BaseEvent:   BaseEvent{Type: EventTypeConnected, SessionID: sessionID},
		PhoneNumber: phoneNumber,
	}
}

// LoggedOutEvent reports that the network revoked the session's pairing.
type LoggedOutEvent struct {
	BaseEvent
	OnConnect bool
	Reason    string
}

// NewLoggedOutEvent creates a new logged-out event.
func NewLoggedOutEvent(sessionID string, onConnect bool, reason string) *LoggedOutEvent {
	return &LoggedOutEvent{
		BaseEvent: BaseEvent{Type: EventTypeLoggedOut, SessionID: sessionID},
		OnConnect: onConnect,
		Reason:    reason,
	}
}

// ErrorEvent reports a transport-level error.
type ErrorEvent struct {
	BaseEvent
	Error string
}

// NewErrorEvent creates a new error event.
func NewErrorEvent(sessionID, errorMsg string) *ErrorEvent {
	return &ErrorEvent{
		BaseEvent: BaseEvent{Type: EventTypeError, SessionID: sessionID},
		Error:     errorMsg,
	}
}
