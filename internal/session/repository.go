package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// schema for the session store. The partial unique index enforces at most
// one active row per session id; soft-deleted rows stay for audit.
const schema = `
CREATE TABLE IF NOT EXISTS wa_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	connection_status TEXT NOT NULL DEFAULT 'disconnected',
	phone_number TEXT,
	qr_code TEXT,
	qr_expires_at TIMESTAMP,
	session_data TEXT,
	auto_reconnect BOOLEAN NOT NULL DEFAULT 1,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	last_connected_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	deleted_at TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_wa_sessions_active
	ON wa_sessions(session_id) WHERE is_active = 1 AND deleted_at IS NULL;
`

// Repository is the durable session store. Only the controller writes it;
// sockets never read it back.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a session repository over an open database handle.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the session table if it does not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating session store: %w", err)
	}
	return nil
}

// GetActive returns the active row for a session id, or nil when absent.
func (r *Repository) GetActive(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	err := r.db.GetContext(ctx, &s, `
		SELECT * FROM wa_sessions
		WHERE session_id = ? AND is_active = 1 AND deleted_at IS NULL
	`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListActive returns every active session row.
func (r *Repository) ListActive(ctx context.Context) ([]*Session, error) {
	var sessions []*Session
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM wa_sessions
		WHERE is_active = 1 AND deleted_at IS NULL
		ORDER BY session_id
	`)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// EnsureSession returns the active row for a session id, creating a default
// disconnected row when none exists.
func (r *Repository) EnsureSession(ctx context.Context, sessionID string) (*Session, error) {
	existing, err := r.GetActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	// Two callers can race past the existence check; the conflict clause
	// lets the loser fall through to the winner's row.
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO wa_sessions (session_id, connection_status, auto_reconnect, is_active)
		VALUES (?, ?, 1, 1)
		ON CONFLICT DO NOTHING
	`, sessionID, StatusDisconnected)
	if err != nil {
		return nil, fmt.Errorf("creating session row: %w", err)
	}
	return r.GetActive(ctx, sessionID)
}

// UpdateStatus writes just the connection status.
func (r *Repository) UpdateStatus(ctx context.Context, sessionID, status string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE wa_sessions SET connection_status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE session_id = ? AND is_active = 1 AND deleted_at IS NULL
	`, status, sessionID)
	return err
}

// SetConnected records a successful pairing: status, phone number and
// last_connected_at, clearing any pending QR challenge.
func (r *Repository) SetConnected(ctx context.Context, sessionID, phoneNumber string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE wa_sessions
		SET connection_status = ?, phone_number = ?, last_connected_at = ?,
		    qr_code = NULL, qr_expires_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE session_id = ? AND is_active = 1 AND deleted_at IS NULL
	`, StatusConnected, phoneNumber, at, sessionID)
	return err
}

// SetQR records a pairing challenge and moves the row to qr_required.
func (r *Repository) SetQR(ctx context.Context, sessionID, code string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE wa_sessions
		SET connection_status = ?, qr_code = ?, qr_expires_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE session_id = ? AND is_active = 1 AND deleted_at IS NULL
	`, StatusQRRequired, code, expiresAt, sessionID)
	return err
}

// MarkDisconnected records an explicit disconnect: status back to
// disconnected with phone and QR state cleared.
func (r *Repository) MarkDisconnected(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE wa_sessions
		SET connection_status = ?, phone_number = NULL,
		    qr_code = NULL, qr_expires_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE session_id = ? AND is_active = 1 AND deleted_at IS NULL
	`, StatusDisconnected, sessionID)
	return err
}

// ResetSession clears every piece of connection state on the row, creating a
// fresh default row when none exists. Never fails merely because the row is
// absent.
func (r *Repository) ResetSession(ctx context.Context, sessionID string) error {
	existing, err := r.GetActive(ctx, sessionID)
	if err != nil {
		return err
	}
	if existing == nil {
		_, err = r.EnsureSession(ctx, sessionID)
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE wa_sessions
		SET connection_status = ?, phone_number = NULL, qr_code = NULL,
		    qr_expires_at = NULL, session_data = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE session_id = ? AND is_active = 1 AND deleted_at IS NULL
	`, StatusDisconnected, sessionID)
	return err
}

// ReconcileStartup downgrades every row left in a non-disconnected state by
// a previous process. With no live socket the persisted status is stale by
// definition and must read as disconnected until a fresh connect succeeds.
func (r *Repository) ReconcileStartup(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE wa_sessions
		SET connection_status = ?, qr_code = NULL, qr_expires_at = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE connection_status != ? AND is_active = 1 AND deleted_at IS NULL
	`, StatusDisconnected, StatusDisconnected)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
