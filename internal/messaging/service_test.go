package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosanku/kos-wa-service/internal/app"
	"github.com/kosanku/kos-wa-service/internal/client"
	"github.com/kosanku/kos-wa-service/internal/config"
)

// sendStub is a Transport that records sends for messaging tests.
type sendStub struct {
	handler func(client.TransportEvent)
	sent    []string
}

func (t *sendStub) Connect() error                   { return nil }
func (t *sendStub) Disconnect()                      {}
func (t *sendStub) Logout(ctx context.Context) error { return nil }
func (t *sendStub) IsConnected() bool                { return true }
func (t *sendStub) IsRegistered() bool               { return true }
func (t *sendStub) PairedPhone() string {
	return "+628111"
}

func (t *sendStub) QRChannel(ctx context.Context) (<-chan client.QRItem, error) {
	return nil, nil
}

func (t *sendStub) SetEventHandler(handler func(client.TransportEvent)) {
	t.handler = handler
}

func (t *sendStub) SendText(ctx context.Context, phone, message string) (string, error) {
	t.sent = append(t.sent, phone)
	return "3EB0A9C8F2", nil
}

func (t *sendStub) SendAttachment(ctx context.Context, phone, message string, att *client.Attachment) (string, error) {
	t.sent = append(t.sent, phone)
	return "3EB0A9C8F3", nil
}

func (t *sendStub) Close() {}

func newTestApp(t *testing.T, stub *sendStub) *app.App {
	t.Helper()
	manager := client.NewManager(func(id string) (client.Transport, error) {
		return stub, nil
	}, zerolog.Nop())
	t.Cleanup(manager.Shutdown)

	return app.NewApp(&config.Config{DefaultSession: "default"}, zerolog.Nop(), manager)
}

func TestSendWithoutSocket(t *testing.T) {
	a := newTestApp(t, &sendStub{})
	svc := NewService(a)

	// No socket was ever created for the session: the send must fail with
	// a retryable not-connected error, never panic or create a socket.
	_, err := svc.Send(t.Context(), "default", "6281234567890", "invoice due", nil)
	require.Error(t, err)
	ncErr, ok := isNotConnectedError(err)
	require.True(t, ok)
	assert.Equal(t, "default", ncErr.SessionID)
	assert.Equal(t, 0, a.Manager.Count())
}

func TestSendThroughConnectedSocket(t *testing.T) {
	stub := &sendStub{}
	a := newTestApp(t, stub)
	svc := NewService(a)

	sock, err := a.Manager.GetOrCreate("default", client.ClientConfig{})
	require.NoError(t, err)
	require.NoError(t, sock.Connect())
	stub.handler(client.TransportEvent{Kind: client.TransportConnected})
	require.Eventually(t, func() bool {
		return sock.GetConnectionStatus().IsConnected
	}, time.Second, 10*time.Millisecond)

	id, err := svc.Send(t.Context(), "default", "6281234567890", "invoice due", nil)
	require.NoError(t, err)
	assert.Equal(t, "3EB0A9C8F2", id)
	assert.Equal(t, []string{"6281234567890"}, stub.sent)
}

func TestResolveAttachmentValidation(t *testing.T) {
	a := newTestApp(t, &sendStub{})
	svc := NewService(a)

	t.Run("rejects attachments with no payload", func(t *testing.T) {
		_, err := svc.resolveAttachment(&AttachmentRequest{Kind: "document"})
		require.Error(t, err)
	})

	t.Run("rejects invalid base64", func(t *testing.T) {
		_, err := svc.resolveAttachment(&AttachmentRequest{Kind: "document", Data: "%%%not-base64%%%"})
		require.Error(t, err)
	})

	t.Run("decodes inline documents", func(t *testing.T) {
		payload, err := svc.resolveAttachment(&AttachmentRequest{
			Kind:     "document",
			Data:     "aW52b2ljZSBwZGYgYnl0ZXM=",
			FileName: "invoice-2026-08.pdf",
		})
		require.NoError(t, err)
		assert.Equal(t, "document", payload.Kind)
		assert.Equal(t, "invoice-2026-08.pdf", payload.FileName)
		assert.Equal(t, []byte("invoice pdf bytes"), payload.Data)
	})

	t.Run("unknown kinds fall back to document", func(t *testing.T) {
		payload, err := svc.resolveAttachment(&AttachmentRequest{
			Kind: "spreadsheet",
			Data: "aGVsbG8=",
		})
		require.NoError(t, err)
		assert.Equal(t, "document", payload.Kind)
	})
}
