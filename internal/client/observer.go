package client

// Observer is the interface for event observers.
type Observer interface {
	OnEvent(event Event)
}

// ObserverFunc is a function that implements the Observer interface.
type ObserverFunc func(event Event)

// OnEvent calls the observer function.
func (f ObserverFunc) OnEvent(event Event) {
	f(event)
}

// SessionFilteredObserver only receives events for a specific session.
type SessionFilteredObserver struct {
	SessionID string
	Observer  Observer
}

// NewSessionFilteredObserver creates a new session-filtered observer.
func NewSessionFilteredObserver(sessionID string, observer Observer) *SessionFilteredObserver {
	return &SessionFilteredObserver{
		SessionID: sessionID,
		Observer:  observer,
	}
}

// OnEvent calls the underlying observer if the session id matches.
func (f *SessionFilteredObserver) OnEvent(event Event) {
	if event.GetSessionID() == f.SessionID {
		f.Observer.OnEvent(event)
	}
}
