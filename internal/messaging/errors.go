package messaging

import (
	"errors"
	"fmt"

	"github.com/kosanku/kos-wa-service/internal/client"
)

// NotConnectedError indicates a send was attempted with no connected socket
// for the session. Retryable: callers should try again once the session is
// connected, never treat it as fatal.
type NotConnectedError struct {
	SessionID string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("session %s is not connected", e.SessionID)
}

func isNotConnectedError(err error) (*NotConnectedError, bool) {
	if err == nil {
		return nil, false
	}
	var ncErr *NotConnectedError
	if errors.As(err, &ncErr) {
		return ncErr, true
	}
	if errors.Is(err, client.ErrNotConnected) {
		return &NotConnectedError{}, true
	}
	return nil, false
}
