package session

import "time"

// Session status values as persisted in the store.
const (
	StatusDisconnected = "disconnected"
	StatusConnecting   = "connecting"
	StatusQRRequired   = "qr_required"
	StatusConnected    = "connected"
)

// Session is the durable shadow of one session's connection state. The live
// socket is authoritative while it exists; this row is what survives a
// restart and what operators read for diagnostics.
type Session struct {
	ID               int64      `db:"id" json:"id"`
	SessionID        string     `db:"session_id" json:"session_id"`
	ConnectionStatus string     `db:"connection_status" json:"connection_status"`
	PhoneNumber      *string    `db:"phone_number" json:"phone_number,omitempty"`
	QRCode           *string    `db:"qr_code" json:"qr_code,omitempty"`
	QRExpiresAt      *time.Time `db:"qr_expires_at" json:"qr_expires_at,omitempty"`
	SessionData      *string    `db:"session_data" json:"session_data,omitempty"`
	AutoReconnect    bool       `db:"auto_reconnect" json:"auto_reconnect"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	LastConnectedAt  *time.Time `db:"last_connected_at" json:"last_connected_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at" json:"-"`
}

// StatusView is the unified status returned to callers: the live socket's
// perspective merged over the persisted row, with the stored status exposed
// separately for diagnostics.
type StatusView struct {
	SessionID       string     `json:"session"`
	Status          string     `json:"status"`
	IsConnected     bool       `json:"is_connected"`
	PhoneNumber     string     `json:"phone_number,omitempty"`
	QRCode          string     `json:"qr_code,omitempty"`
	QRExpiresAt     *time.Time `json:"qr_expires_at,omitempty"`
	LastConnectedAt *time.Time `json:"last_connected_at,omitempty"`
	AutoReconnect   bool       `json:"auto_reconnect"`
	StoredStatus    string     `json:"stored_status"`
}
