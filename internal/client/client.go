package client

import (
	"context"
	"math"
	"sync"
	"time"
)

// Status represents the connection state of a socket.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusQRRequired
	StatusConnected
)

// String returns the persisted form of the status.
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusQRRequired:
		return "qr_required"
	case StatusConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// defaultQRTimeout is used when the network does not report how long a
// pairing code stays valid.
const defaultQRTimeout = 60 * time.Second

// ClientConfig carries per-session settings applied when a socket is created.
type ClientConfig struct {
	AutoReconnect bool
}

// ConnectionStatus is a non-blocking snapshot of a socket's state.
type ConnectionStatus struct {
	Status      Status
	IsConnected bool
	PhoneNumber string
	QRCode      string
	QRExpiresAt time.Time
}

// Client is the live socket for one session. It owns the transport, tracks
// the connection state machine and emits lifecycle events through the
// manager. The manager holds at most one Client per session id.
type Client struct {
	ID            string
	transport     Transport
	manager       *Manager
	autoReconnect bool

	mu          sync.Mutex
	status      Status
	phoneNumber string
	qrCode      string
	qrExpiresAt time.Time
	// loggedOut marks a pairing revoked by the network: reconnecting would
	// loop against dead credentials, so auto-reconnect is suppressed until
	// the next explicit Connect.
	loggedOut bool
	// closing marks a local Disconnect in progress, which also suppresses
	// auto-reconnect.
	closing  bool
	qrCancel context.CancelFunc

	reconnectAttempts int
	lastReconnectTime time.Time
}

func newClient(id string, transport Transport, cfg ClientConfig, manager *Manager) *Client {
	c := &Client{
		ID:            id,
		transport:     transport,
		manager:       manager,
		autoReconnect: cfg.AutoReconnect,
		status:        StatusDisconnected,
	}
	transport.SetEventHandler(c.handleTransportEvent)
	return c
}

// Connect initiates the handshake and returns immediately. Calling it while
// already connecting or connected is a no-op, so concurrent requests never
// spawn a duplicate transport. The final state is observed via
// GetConnectionStatus or the manager's event stream.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.status == StatusConnecting || c.status == StatusConnected {
		c.mu.Unlock()
		return nil
	}
	c.loggedOut = false
	c.closing = false
	c.status = StatusConnecting
	needsQR := !c.transport.IsRegistered()
	c.mu.Unlock()

	c.manager.Dispatch(NewStatusEvent(c.ID, StatusConnecting))

	if needsQR {
		ctx, cancel := context.WithCancel(context.Background())
		qrChan, err := c.transport.QRChannel(ctx)
		if err != nil {
			cancel()
			c.mu.Lock()
			c.status = StatusDisconnected
			c.mu.Unlock()
			c.manager.Dispatch(NewStatusEvent(c.ID, StatusDisconnected))
			return err
		}
		c.mu.Lock()
		c.qrCancel = cancel
		c.mu.Unlock()
		go c.consumeQR(qrChan)
	}

	go func() {
		if err := c.transport.Connect(); err != nil {
			c.manager.log.Error().Err(err).Str("session", c.ID).Msg("transport connect failed")
			c.mu.Lock()
			c.status = StatusDisconnected
			retry := c.autoReconnect && !c.loggedOut && !c.closing
			c.mu.Unlock()
			c.manager.Dispatch(NewStatusEvent(c.ID, StatusDisconnected))
			c.manager.Dispatch(NewErrorEvent(c.ID, err.Error()))
			if retry {
				go c.reconnect()
			}
		}
	}()

	return nil
}

// Disconnect gracefully closes the transport. Always leaves the socket
// disconnected; calling it on an already-disconnected socket is a no-op.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closing = true
	if c.qrCancel != nil {
		c.qrCancel()
		c.qrCancel = nil
	}
	wasDisconnected := c.status == StatusDisconnected
	c.status = StatusDisconnected
	c.qrCode = ""
	c.qrExpiresAt = time.Time{}
	c.mu.Unlock()

	c.transport.Disconnect()

	if !wasDisconnected {
		c.manager.Dispatch(NewStatusEvent(c.ID, StatusDisconnected))
	}
}

// Logout revokes the pairing with the network. Best effort: the caller
// clears credentials regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.loggedOut = true
	c.mu.Unlock()
	return c.transport.Logout(ctx)
}

// IsRegistered reports whether pairing credentials exist for this socket,
// i.e. whether a connect can resume without a QR scan.
func (c *Client) IsRegistered() bool {
	return c.transport.IsRegistered()
}

// GetConnectionStatus returns the current snapshot without blocking.
func (c *Client) GetConnectionStatus() ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnectionStatus{
		Status:      c.status,
		IsConnected: c.status == StatusConnected && c.transport.IsConnected(),
		PhoneNumber: c.phoneNumber,
		QRCode:      c.qrCode,
		QRExpiresAt: c.qrExpiresAt,
	}
}

// SendText sends a text message through the live transport.
func (c *Client) SendText(ctx context.Context, phone, message string) (string, error) {
	if !c.GetConnectionStatus().IsConnected {
		return "", ErrNotConnected
	}
	return c.transport.SendText(ctx, phone, message)
}

// SendAttachment sends a message with a document or image payload.
func (c *Client) SendAttachment(ctx context.Context, phone, message string, att *Attachment) (string, error) {
	if !c.GetConnectionStatus().IsConnected {
		return "", ErrNotConnected
	}
	return c.transport.SendAttachment(ctx, phone, message, att)
}

// consumeQR applies pairing codes from the transport's QR stream. Each new
// code replaces the previous one; pairing success is reported separately by
// the transport's connected event.
func (c *Client) consumeQR(ch <-chan QRItem) {
	for item := range ch {
		switch {
		case item.Code != "":
			timeout := item.Timeout
			if timeout <= 0 {
				timeout = defaultQRTimeout
			}
			expiresAt := time.Now().Add(timeout)
			c.mu.Lock()
			c.qrCode = item.Code
			c.qrExpiresAt = expiresAt
			c.status = StatusQRRequired
			c.mu.Unlock()
			c.manager.Dispatch(NewStatusEvent(c.ID, StatusQRRequired))
			c.manager.Dispatch(NewQREvent(c.ID, item.Code, expiresAt))
		case item.Event == QREventSuccess:
			// Pairing completed; the connected transport event carries the
			// phone number.
		case item.Event == QREventTimeout:
			c.manager.log.Warn().Str("session", c.ID).Msg("QR pairing timed out")
		case item.Error != nil:
			c.manager.Dispatch(NewErrorEvent(c.ID, item.Error.Error()))
		}
	}
}

func (c *Client) handleTransportEvent(evt TransportEvent) {
	switch evt.Kind {
	case TransportConnected:
		c.mu.Lock()
		c.status = StatusConnected
		c.phoneNumber = c.transport.PairedPhone()
		c.qrCode = ""
		c.qrExpiresAt = time.Time{}
		c.reconnectAttempts = 0
		phone := c.phoneNumber
		c.mu.Unlock()
		c.manager.Dispatch(NewConnectedEvent(c.ID, phone))

	case TransportLoggedOut:
		c.manager.log.Warn().Str("session", c.ID).Bool("on_connect", evt.OnConnect).
			Str("reason", evt.Reason).Msg("session logged out by network")
		c.mu.Lock()
		c.loggedOut = true
		c.status = StatusDisconnected
		c.phoneNumber = ""
		c.qrCode = ""
		c.qrExpiresAt = time.Time{}
		c.mu.Unlock()
		c.manager.Dispatch(NewLoggedOutEvent(c.ID, evt.OnConnect, evt.Reason))

	case TransportDisconnected:
		c.mu.Lock()
		wasConnected := c.status == StatusConnected
		retry := c.autoReconnect && !c.loggedOut && !c.closing
		c.status = StatusDisconnected
		c.mu.Unlock()
		c.manager.Dispatch(NewStatusEvent(c.ID, StatusDisconnected))
		if wasConnected && retry {
			go c.reconnect()
		}

	case TransportStreamError:
		msg := evt.Reason
		if evt.Err != nil {
			msg = evt.Err.Error()
		}
		c.manager.Dispatch(NewErrorEvent(c.ID, msg))
	}
}

// reconnect retries the connection with exponential backoff, capped at 30s.
func (c *Client) reconnect() {
	c.mu.Lock()
	backoffSeconds := math.Min(30, math.Pow(2, float64(c.reconnectAttempts)))
	backoffDuration := time.Duration(backoffSeconds) * time.Second
	sinceLast := time.Since(c.lastReconnectTime)
	if sinceLast < backoffDuration {
		wait := backoffDuration - sinceLast
		c.mu.Unlock()
		c.manager.log.Info().Str("session", c.ID).Dur("wait", wait).Msg("waiting before reconnect")
		time.Sleep(wait)
		c.mu.Lock()
	}
	if c.loggedOut || c.closing {
		c.mu.Unlock()
		return
	}
	c.lastReconnectTime = time.Now()
	c.reconnectAttempts++
	attempt := c.reconnectAttempts
	c.mu.Unlock()

	c.manager.log.Info().Str("session", c.ID).Int("attempt", attempt).Msg("attempting reconnect")
	if err := c.Connect(); err != nil {
		c.manager.log.Error().Err(err).Str("session", c.ID).Int("attempt", attempt).
			Msg("reconnect attempt failed")
	}
}

// teardown force-closes the socket without emitting further events. Called
// by the manager when the socket is evicted.
func (c *Client) teardown() {
	c.mu.Lock()
	c.closing = true
	c.loggedOut = true
	if c.qrCancel != nil {
		c.qrCancel()
		c.qrCancel = nil
	}
	c.status = StatusDisconnected
	c.mu.Unlock()
	c.transport.Disconnect()
	c.transport.Close()
}
