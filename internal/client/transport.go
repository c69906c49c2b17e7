package client

import (
	"context"
	"errors"
	"time"
)

// ErrNotConnected is returned when a send is attempted on a socket that is
// not currently connected. Callers should treat it as retryable.
var ErrNotConnected = errors.New("session is not connected")

// QRItem is one pairing challenge issued by the messaging network. The
// network rotates codes until one is scanned, so a socket may receive
// several items before pairing completes.
type QRItem struct {
	Event   string
	Code    string
	Timeout time.Duration
	Error   error
}

// QR channel event names, mirrored from the underlying library.
const (
	QREventCode    = "code"
	QREventSuccess = "success"
	QREventTimeout = "timeout"
)

// TransportEventKind identifies a lifecycle notification from the transport.
type TransportEventKind int

const (
	TransportConnected TransportEventKind = iota
	TransportDisconnected
	TransportLoggedOut
	TransportStreamError
)

// TransportEvent is a lifecycle notification from the underlying transport.
// LoggedOut means the network revoked the pairing; it must never trigger an
// automatic reconnect.
type TransportEvent struct {
	Kind      TransportEventKind
	OnConnect bool
	Reason    string
	Err       error
}

// Attachment is an optional payload sent alongside a text message.
type Attachment struct {
	Kind      string // "document" or "image"
	FileName  string
	MimeType  string
	Caption   string
	Data      []byte
	Thumbnail []byte // JPEG preview, images only
}

// Transport is the live wire connection for one session. The production
// implementation wraps the whatsmeow client; tests use fakes.
type Transport interface {
	// Connect opens the transport. The handshake continues asynchronously;
	// completion is reported through the event handler.
	Connect() error
	// Disconnect closes the transport. Safe to call when already closed.
	Disconnect()
	// Logout revokes the pairing with the network.
	Logout(ctx context.Context) error
	IsConnected() bool
	// IsRegistered reports whether valid pairing credentials exist, i.e.
	// whether the transport can resume without a QR scan.
	IsRegistered() bool
	// PairedPhone returns the phone number of the paired device, or "" if
	// not yet paired.
	PairedPhone() string
	// QRChannel returns a stream of pairing challenges. Must be called
	// before Connect and only when IsRegistered is false.
	QRChannel(ctx context.Context) (<-chan QRItem, error)
	// SetEventHandler registers the lifecycle event callback. Events are
	// delivered in the order the transport produced them.
	SetEventHandler(handler func(TransportEvent))
	SendText(ctx context.Context, phone, message string) (string, error)
	SendAttachment(ctx context.Context, phone, message string, att *Attachment) (string, error)
	// Close releases the credential store backing this transport.
	Close()
}
