package messaging

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kosanku/kos-wa-service/internal/app"
	"github.com/kosanku/kos-wa-service/internal/client"
	"github.com/kosanku/kos-wa-service/internal/utils"
)

// sendTimeout bounds one send call against the network.
const sendTimeout = 60 * time.Second

// Service handles message delivery through live session sockets. It never
// creates sockets: a session with no live connected socket yields a
// retryable NotConnectedError, which billing notification senders queue for
// a later attempt.
type Service struct {
	app *app.App
}

// NewService creates a new messaging service.
func NewService(app *app.App) *Service {
	return &Service{app: app}
}

// Send delivers a message, optionally with an attachment, and returns the
// network-assigned message id.
func (s *Service) Send(ctx context.Context, sessionID, phoneNumber, message string, att *AttachmentRequest) (string, error) {
	sock, exists := s.app.Manager.Lookup(sessionID)
	if !exists {
		return "", &NotConnectedError{SessionID: sessionID}
	}
	if !sock.GetConnectionStatus().IsConnected {
		return "", &NotConnectedError{SessionID: sessionID}
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if att == nil {
		id, err := sock.SendText(ctx, phoneNumber, message)
		if err != nil {
			return "", s.wrapSendError(sessionID, err)
		}
		s.app.Log.Info().Str("session", sessionID).Str("to", phoneNumber).
			Str("message_id", id).Msg("message sent")
		return id, nil
	}

	payload, err := s.resolveAttachment(att)
	if err != nil {
		return "", err
	}

	id, err := sock.SendAttachment(ctx, phoneNumber, message, payload)
	if err != nil {
		return "", s.wrapSendError(sessionID, err)
	}
	s.app.Log.Info().Str("session", sessionID).Str("to", phoneNumber).
		Str("kind", payload.Kind).Str("message_id", id).Msg("attachment sent")
	return id, nil
}

func (s *Service) wrapSendError(sessionID string, err error) error {
	if _, ok := isNotConnectedError(err); ok {
		return &NotConnectedError{SessionID: sessionID}
	}
	return err
}

// resolveAttachment materializes the attachment bytes from base64 or URL
// and, for images, renders a JPEG preview thumbnail.
func (s *Service) resolveAttachment(att *AttachmentRequest) (*client.Attachment, error) {
	kind := strings.ToLower(att.Kind)
	if kind != "image" {
		kind = "document"
	}

	var data []byte
	switch {
	case att.Data != "":
		decoded, err := base64.StdEncoding.DecodeString(att.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid attachment data: %v", err)
		}
		data = decoded
	case att.URL != "":
		resp, err := http.Get(att.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to download attachment: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to download attachment, status: %s", resp.Status)
		}
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment: %v", err)
		}
	default:
		return nil, fmt.Errorf("attachment requires either data or url")
	}

	payload := &client.Attachment{
		Kind:     kind,
		FileName: att.FileName,
		MimeType: http.DetectContentType(data),
		Caption:  att.Caption,
		Data:     data,
	}

	if kind == "image" {
		thumb, err := utils.ImageThumbnail(data, 72)
		if err != nil {
			s.app.Log.Warn().Err(err).Msg("thumbnail generation failed, sending without preview")
		} else {
			payload.Thumbnail = thumb
		}
	}

	return payload, nil
}
