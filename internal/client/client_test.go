package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, ft *fakeTransport, cfg ClientConfig) (*Client, *Manager) {
	t.Helper()
	m := newTestManager(t, func(id string) (Transport, error) {
		return ft, nil
	})
	c, err := m.GetOrCreate("default", cfg)
	require.NoError(t, err)
	return c, m
}

func TestClientConnectIdempotent(t *testing.T) {
	ft := newFakeTransport()
	ft.registered = true
	c, _ := newTestClient(t, ft, ClientConfig{})

	require.NoError(t, c.Connect())
	require.NoError(t, c.Connect())
	require.NoError(t, c.Connect())

	require.Eventually(t, func() bool {
		return ft.calls() == 1
	}, time.Second, 10*time.Millisecond)

	// Still only one transport connect after settling.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, ft.calls())
	assert.Equal(t, StatusConnecting, c.GetConnectionStatus().Status)
}

func TestClientQRFlow(t *testing.T) {
	ft := newFakeTransport()
	c, _ := newTestClient(t, ft, ClientConfig{})

	require.NoError(t, c.Connect())
	ft.pushQR(QRItem{Event: QREventCode, Code: "qr-challenge-1", Timeout: 30 * time.Second})

	require.Eventually(t, func() bool {
		snap := c.GetConnectionStatus()
		return snap.Status == StatusQRRequired && snap.QRCode == "qr-challenge-1"
	}, time.Second, 10*time.Millisecond)

	snap := c.GetConnectionStatus()
	assert.False(t, snap.IsConnected)
	assert.True(t, snap.QRExpiresAt.After(time.Now()))

	// A rotated code replaces the previous challenge.
	ft.pushQR(QRItem{Event: QREventCode, Code: "qr-challenge-2", Timeout: 30 * time.Second})
	require.Eventually(t, func() bool {
		return c.GetConnectionStatus().QRCode == "qr-challenge-2"
	}, time.Second, 10*time.Millisecond)
}

func TestClientConnectedEvent(t *testing.T) {
	ft := newFakeTransport()
	ft.registered = true
	c, _ := newTestClient(t, ft, ClientConfig{})

	require.NoError(t, c.Connect())
	require.Eventually(t, func() bool {
		return ft.calls() == 1
	}, time.Second, 10*time.Millisecond)

	ft.mu.Lock()
	ft.phone = "+6281234567890"
	ft.mu.Unlock()
	ft.emit(TransportEvent{Kind: TransportConnected})

	require.Eventually(t, func() bool {
		snap := c.GetConnectionStatus()
		return snap.IsConnected && snap.PhoneNumber == "+6281234567890"
	}, time.Second, 10*time.Millisecond)

	snap := c.GetConnectionStatus()
	assert.Equal(t, StatusConnected, snap.Status)
	assert.Empty(t, snap.QRCode)
}

func TestClientLogoutNeverAutoReconnects(t *testing.T) {
	ft := newFakeTransport()
	ft.registered = true
	c, _ := newTestClient(t, ft, ClientConfig{AutoReconnect: true})

	require.NoError(t, c.Connect())
	ft.emit(TransportEvent{Kind: TransportConnected})
	require.Eventually(t, func() bool {
		return c.GetConnectionStatus().IsConnected
	}, time.Second, 10*time.Millisecond)

	ft.emit(TransportEvent{Kind: TransportLoggedOut, Reason: "device removed"})
	ft.emit(TransportEvent{Kind: TransportDisconnected})

	// Auto-reconnect is enabled but the pairing was revoked: no further
	// connect attempts may happen.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, ft.calls())
	snap := c.GetConnectionStatus()
	assert.Equal(t, StatusDisconnected, snap.Status)
	assert.Empty(t, snap.PhoneNumber)
}

func TestClientAutoReconnectOnTransientDrop(t *testing.T) {
	ft := newFakeTransport()
	ft.registered = true
	c, _ := newTestClient(t, ft, ClientConfig{AutoReconnect: true})

	require.NoError(t, c.Connect())
	ft.emit(TransportEvent{Kind: TransportConnected})
	require.Eventually(t, func() bool {
		return c.GetConnectionStatus().IsConnected
	}, time.Second, 10*time.Millisecond)

	ft.mu.Lock()
	ft.connected = false
	ft.mu.Unlock()
	ft.emit(TransportEvent{Kind: TransportDisconnected})

	require.Eventually(t, func() bool {
		return ft.calls() >= 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestClientNoReconnectWhenDisabled(t *testing.T) {
	ft := newFakeTransport()
	ft.registered = true
	c, _ := newTestClient(t, ft, ClientConfig{AutoReconnect: false})

	require.NoError(t, c.Connect())
	ft.emit(TransportEvent{Kind: TransportConnected})
	require.Eventually(t, func() bool {
		return c.GetConnectionStatus().IsConnected
	}, time.Second, 10*time.Millisecond)

	ft.emit(TransportEvent{Kind: TransportDisconnected})

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, ft.calls())
}

func TestClientDisconnectIdempotent(t *testing.T) {
	ft := newFakeTransport()
	ft.registered = true
	c, _ := newTestClient(t, ft, ClientConfig{AutoReconnect: true})

	require.NoError(t, c.Connect())
	ft.emit(TransportEvent{Kind: TransportConnected})
	require.Eventually(t, func() bool {
		return c.GetConnectionStatus().IsConnected
	}, time.Second, 10*time.Millisecond)

	c.Disconnect()
	assert.Equal(t, StatusDisconnected, c.GetConnectionStatus().Status)

	// Second disconnect is a no-op, not an error.
	c.Disconnect()
	assert.Equal(t, StatusDisconnected, c.GetConnectionStatus().Status)

	// A local disconnect must not trigger auto-reconnect.
	ft.emit(TransportEvent{Kind: TransportDisconnected})
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, ft.calls())
}

func TestClientSendRequiresConnection(t *testing.T) {
	ft := newFakeTransport()
	ft.registered = true
	c, _ := newTestClient(t, ft, ClientConfig{})

	_, err := c.SendText(t.Context(), "6281234567890", "hello")
	require.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, c.Connect())
	ft.emit(TransportEvent{Kind: TransportConnected})
	require.Eventually(t, func() bool {
		return c.GetConnectionStatus().IsConnected
	}, time.Second, 10*time.Millisecond)

	id, err := c.SendText(t.Context(), "6281234567890", "hello")
	require.NoError(t, err)
	assert.Equal(t, "MSG-1", id)
}
