package client

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

// WhatsmeowTransport adapts a whatsmeow client to the Transport interface.
// The credential container is a per-session sqlite file under the data
// directory; it is the durable pairing material that lets a session resume
// without re-scanning a QR code.
type WhatsmeowTransport struct {
	client    *whatsmeow.Client
	container *sqlstore.Container
}

// CredentialPath returns the credential container file for a session id.
func CredentialPath(dataDir, id string) string {
	return filepath.Join(dataDir, id+".db")
}

// HasCredentials reports whether a credential container exists on disk for
// the session id.
func HasCredentials(dataDir, id string) bool {
	_, err := os.Stat(CredentialPath(dataDir, id))
	return err == nil
}

// DeleteCredentials removes all cached credential material for a session id.
// Missing files are not an error.
func DeleteCredentials(dataDir, id string) error {
	err := os.Remove(CredentialPath(dataDir, id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// NewWhatsmeowTransport opens (or creates) the credential container for a
// session and builds the whatsmeow client around it. An unreadable container
// is treated as corrupted: the file is removed and recreated once, so the
// session falls back to QR pairing instead of failing to connect.
func NewWhatsmeowTransport(ctx context.Context, dataDir, id string, log zerolog.Logger) (*WhatsmeowTransport, error) {
	dbPath := CredentialPath(dataDir, id)
	dbLog := waLog.Stdout("Database-"+id, "INFO", true)

	container, err := sqlstore.New(ctx, "sqlite3", "file:"+dbPath+"?_foreign_keys=on", dbLog)
	if err != nil {
		log.Warn().Err(err).Str("session", id).Msg("credential container unreadable, recreating")
		if rmErr := os.Remove(dbPath); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("removing corrupt credential container: %v", rmErr)
		}
		container, err = sqlstore.New(ctx, "sqlite3", "file:"+dbPath+"?_foreign_keys=on", dbLog)
		if err != nil {
			return nil, fmt.Errorf("credential container error: %v", err)
		}
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("device error: %v", err)
	}

	store.SetOSInfo("Linux", store.GetWAVersion())
	store.DeviceProps.PlatformType = waCompanionReg.DeviceProps_CHROME.Enum()

	clientLog := waLog.Stdout("WhatsApp-"+id, "INFO", true)
	return &WhatsmeowTransport{
		client:    whatsmeow.NewClient(deviceStore, clientLog),
		container: container,
	}, nil
}

// Connect opens the websocket. The handshake continues asynchronously.
func (t *WhatsmeowTransport) Connect() error {
	if t.client.IsConnected() {
		return nil
	}
	return t.client.Connect()
}

// Disconnect closes the websocket. Safe to call when already closed.
func (t *WhatsmeowTransport) Disconnect() {
	t.client.Disconnect()
}

// Logout revokes the pairing with the network.
func (t *WhatsmeowTransport) Logout(ctx context.Context) error {
	return t.client.Logout(ctx)
}

// IsConnected reports whether the websocket is open.
func (t *WhatsmeowTransport) IsConnected() bool {
	return t.client.IsConnected()
}

// IsRegistered reports whether pairing credentials exist for this session.
func (t *WhatsmeowTransport) IsRegistered() bool {
	return t.client.Store.ID != nil
}

// PairedPhone returns the paired phone number, or "" before pairing.
func (t *WhatsmeowTransport) PairedPhone() string {
	if t.client.Store.ID == nil {
		return ""
	}
	return t.client.Store.ID.User
}

// QRChannel maps the whatsmeow QR stream into QRItems. Must be called
// before Connect.
func (t *WhatsmeowTransport) QRChannel(ctx context.Context) (<-chan QRItem, error) {
	qrChan, err := t.client.GetQRChannel(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan QRItem, 4)
	go func() {
		defer close(out)
		for evt := range qrChan {
			out <- QRItem{
				Event:   evt.Event,
				Code:    evt.Code,
				Timeout: evt.Timeout,
				Error:   evt.Error,
			}
		}
	}()
	return out, nil
}

// SetEventHandler translates whatsmeow lifecycle events into TransportEvents.
func (t *WhatsmeowTransport) SetEventHandler(handler func(TransportEvent)) {
	t.client.AddEventHandler(func(evt interface{}) {
		switch e := evt.(type) {
		case *events.Connected:
			handler(TransportEvent{Kind: TransportConnected})
		case *events.LoggedOut:
			reason := ""
			if e.OnConnect {
				reason = e.Reason.String()
			}
			handler(TransportEvent{Kind: TransportLoggedOut, OnConnect: e.OnConnect, Reason: reason})
		case *events.Disconnected:
			handler(TransportEvent{Kind: TransportDisconnected})
		case *events.StreamError:
			handler(TransportEvent{Kind: TransportStreamError, Reason: fmt.Sprintf("stream error: %v", e)})
		}
	})
}

// SendText sends a plain text message and returns the message id.
func (t *WhatsmeowTransport) SendText(ctx context.Context, phone, message string) (string, error) {
	recipient, err := t.resolveRecipient(phone)
	if err != nil {
		return "", err
	}

	msg := &waE2E.Message{
		Conversation: proto.String(message),
	}

	opts := whatsmeow.SendRequestExtra{
		ID: whatsmeow.GenerateMessageID(),
	}
	resp, err := t.client.SendMessage(ctx, recipient, msg, opts)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %v", err)
	}
	return string(resp.ID), nil
}

// SendAttachment uploads the attachment payload and sends it as a document
// or image message.
func (t *WhatsmeowTransport) SendAttachment(ctx context.Context, phone, message string, att *Attachment) (string, error) {
	recipient, err := t.resolveRecipient(phone)
	if err != nil {
		return "", err
	}

	caption := att.Caption
	if caption == "" {
		caption = message
	}
	mimeType := att.MimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(att.Data)
	}

	var msg waE2E.Message
	switch att.Kind {
	case "image":
		uploaded, err := t.client.Upload(ctx, att.Data, whatsmeow.MediaImage)
		if err != nil {
			return "", fmt.Errorf("failed to upload image: %v", err)
		}
		msg = waE2E.Message{
			ImageMessage: &waE2E.ImageMessage{
				Caption:       proto.String(caption),
				URL:           proto.String(uploaded.URL),
				DirectPath:    proto.String(uploaded.DirectPath),
				MediaKey:      uploaded.MediaKey,
				Mimetype:      proto.String(mimeType),
				FileEncSHA256: uploaded.FileEncSHA256,
				FileSHA256:    uploaded.FileSHA256,
				FileLength:    proto.Uint64(uint64(len(att.Data))),
				JPEGThumbnail: att.Thumbnail,
			},
		}
	default:
		uploaded, err := t.client.Upload(ctx, att.Data, whatsmeow.MediaDocument)
		if err != nil {
			return "", fmt.Errorf("failed to upload document: %v", err)
		}
		msg = waE2E.Message{
			DocumentMessage: &waE2E.DocumentMessage{
				Caption:       proto.String(caption),
				FileName:      proto.String(att.FileName),
				URL:           proto.String(uploaded.URL),
				DirectPath:    proto.String(uploaded.DirectPath),
				MediaKey:      uploaded.MediaKey,
				Mimetype:      proto.String(mimeType),
				FileEncSHA256: uploaded.FileEncSHA256,
				FileSHA256:    uploaded.FileSHA256,
				FileLength:    proto.Uint64(uint64(len(att.Data))),
			},
		}
	}

	opts := whatsmeow.SendRequestExtra{
		ID: whatsmeow.GenerateMessageID(),
	}
	resp, err := t.client.SendMessage(ctx, recipient, &msg, opts)
	if err != nil {
		return "", fmt.Errorf("failed to send attachment: %v", err)
	}
	return string(resp.ID), nil
}

// resolveRecipient verifies the number is registered on the network and
// returns its JID.
func (t *WhatsmeowTransport) resolveRecipient(phone string) (types.JID, error) {
	resp, err := t.client.IsOnWhatsApp([]string{phone})
	if err != nil {
		return types.JID{}, fmt.Errorf("failed to check number: %v", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return types.JID{}, fmt.Errorf("phone number %s is not registered on WhatsApp", phone)
	}
	return types.JID{User: phone, Server: "s.whatsapp.net"}, nil
}

// Close releases the credential container.
func (t *WhatsmeowTransport) Close() {
	if t.container != nil {
		t.container.Close()
	}
}
