package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kosanku/kos-wa-service/internal/client"
)

// Service is the session controller. It orchestrates connect, disconnect and
// reset against the registry, applies socket lifecycle events to the durable
// store in emission order, and merges both views for status reads.
//
// The live socket is the source of truth; the store is its durable shadow.
// Store write failures are logged and never abort the connection: the socket
// re-emits current state, so the next successful write reconciles.
type Service struct {
	repo    *Repository
	manager *client.Manager
	dataDir string
	log     zerolog.Logger
}

// NewService creates the session controller and subscribes it to the
// registry's event stream. Construct it once per process: each instance
// registers its own observers.
func NewService(repo *Repository, manager *client.Manager, dataDir string, log zerolog.Logger) *Service {
	s := &Service{
		repo:    repo,
		manager: manager,
		dataDir: dataDir,
		log:     log,
	}
	manager.RegisterObserver(client.EventTypeStatus, client.ObserverFunc(s.onEvent))
	manager.RegisterObserver(client.EventTypeQR, client.ObserverFunc(s.onEvent))
	manager.RegisterObserver(client.EventTypeConnected, client.ObserverFunc(s.onEvent))
	manager.RegisterObserver(client.EventTypeLoggedOut, client.ObserverFunc(s.onEvent))
	return s
}

// Connect ensures a session row exists, obtains the socket from the
// registry and starts the handshake without waiting for a terminal state.
// The returned view is the best-effort immediate status; callers poll Status
// for the outcome.
func (s *Service) Connect(ctx context.Context, sessionID string) (*StatusView, error) {
	row, err := s.repo.EnsureSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sock, err := s.manager.GetOrCreate(sessionID, client.ClientConfig{AutoReconnect: row.AutoReconnect})
	if err != nil {
		return nil, err
	}

	if err := sock.Connect(); err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("connect failed to start")
		return nil, err
	}

	// A fresh pairing takes a moment to produce its first challenge; wait
	// for it so the immediate response carries the QR code instead of a
	// bare "connecting".
	if !sock.IsRegistered() {
		s.awaitPairing(ctx, sock)
	}

	return s.merge(sessionID, row, sock), nil
}

// pairingWait bounds how long Connect waits for the first pairing outcome.
const pairingWait = 3 * time.Second

// awaitPairing blocks until the socket leaves the connecting state: a QR
// code was issued, the handshake completed or failed, or the wait expires.
func (s *Service) awaitPairing(ctx context.Context, sock *client.Client) {
	deadline := time.NewTimer(pairingWait)
	defer deadline.Stop()
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()

	for {
		snap := sock.GetConnectionStatus()
		if snap.QRCode != "" || snap.Status == client.StatusConnected ||
			snap.Status == client.StatusDisconnected {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-tick.C:
		}
	}
}

// Disconnect tears down the live socket (if any) and persists the
// disconnected state. Idempotent.
func (s *Service) Disconnect(ctx context.Context, sessionID string) error {
	s.manager.Remove(sessionID)
	if _, err := s.repo.EnsureSession(ctx, sessionID); err != nil {
		return err
	}
	return s.repo.MarkDisconnected(ctx, sessionID)
}

// Reset evicts any live socket, deletes all cached credential material and
// clears the stored session state. This is the recovery path for corrupted
// credentials, so it succeeds even when no socket or row exists.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	if sock, ok := s.manager.Lookup(sessionID); ok {
		// Best-effort remote revocation before the credentials are wiped.
		if err := sock.Logout(ctx); err != nil {
			s.log.Warn().Err(err).Str("session", sessionID).Msg("remote logout failed during reset")
		}
	}
	s.manager.Remove(sessionID)

	if err := client.DeleteCredentials(s.dataDir, sessionID); err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("failed to delete credentials")
		return err
	}

	return s.repo.ResetSession(ctx, sessionID)
}

// Status merges the persisted row with the live socket's snapshot. The
// socket wins when both exist; a stale non-disconnected row with no live
// socket reads as disconnected.
func (s *Service) Status(ctx context.Context, sessionID string) (*StatusView, error) {
	row, err := s.repo.GetActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sock, _ := s.manager.Lookup(sessionID)
	return s.merge(sessionID, row, sock), nil
}

func (s *Service) merge(sessionID string, row *Session, sock *client.Client) *StatusView {
	view := &StatusView{
		SessionID:    sessionID,
		Status:       StatusDisconnected,
		StoredStatus: StatusDisconnected,
	}
	if row != nil {
		view.StoredStatus = row.ConnectionStatus
		view.AutoReconnect = row.AutoReconnect
		view.LastConnectedAt = row.LastConnectedAt
		if row.PhoneNumber != nil {
			view.PhoneNumber = *row.PhoneNumber
		}
	}

	if sock == nil {
		// No live socket: whatever the row claims, the session cannot be
		// connected right now.
		return view
	}

	snap := sock.GetConnectionStatus()
	view.Status = snap.Status.String()
	view.IsConnected = snap.IsConnected
	if snap.PhoneNumber != "" {
		view.PhoneNumber = snap.PhoneNumber
	}
	if snap.QRCode != "" {
		view.QRCode = snap.QRCode
		if !snap.QRExpiresAt.IsZero() {
			expires := snap.QRExpiresAt
			view.QRExpiresAt = &expires
		}
	}
	return view
}

// onEvent applies one socket lifecycle event to the store. The registry
// delivers events in emission order on a single goroutine, so writes here
// never race each other for the same session.
func (s *Service) onEvent(evt client.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sessionID := evt.GetSessionID()
	var err error
	switch e := evt.(type) {
	case *client.ConnectedEvent:
		err = s.repo.SetConnected(ctx, sessionID, e.PhoneNumber, time.Now())

	case *client.QREvent:
		err = s.repo.SetQR(ctx, sessionID, e.Code, e.ExpiresAt)

	case *client.LoggedOutEvent:
		// Revoked pairing: the socket and its credential container are both
		// dead. Evict the socket first so its container releases the file
		// before it is deleted; the next connect builds a fresh transport
		// and requires a new QR scan.
		s.manager.Remove(sessionID)
		if delErr := client.DeleteCredentials(s.dataDir, sessionID); delErr != nil {
			s.log.Error().Err(delErr).Str("session", sessionID).
				Msg("failed to delete credentials after logout")
		}
		err = s.repo.ResetSession(ctx, sessionID)

	case *client.StatusEvent:
		switch e.Status {
		case client.StatusConnecting:
			err = s.repo.UpdateStatus(ctx, sessionID, StatusConnecting)
		case client.StatusDisconnected:
			err = s.repo.UpdateStatus(ctx, sessionID, StatusDisconnected)
		}
		// qr_required and connected are persisted by their richer events.
	}

	if err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Str("event", evt.GetType()).
			Msg("failed to persist session event")
	}
}
