package client

import (
	"sync"

	"github.com/rs/zerolog"
)

// TransportFactory builds the transport for a session when the socket is
// first created. The production factory opens the whatsmeow credential
// container; tests supply fakes.
type TransportFactory func(sessionID string) (Transport, error)

// Manager is the process-wide session registry: at most one live socket per
// session id. It also owns the lifecycle event stream; events are delivered
// to observers by a single dispatcher goroutine, in the order the sockets
// produced them, so observers can persist state transitions without
// reordering writes.
type Manager struct {
	clientsLock sync.Mutex
	clients     map[string]*Client
	factory     TransportFactory
	log         zerolog.Logger

	observersLock sync.RWMutex
	observers     map[string][]Observer

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewManager creates a session registry. It is created once at process start
// and torn down with Shutdown.
func NewManager(factory TransportFactory, log zerolog.Logger) *Manager {
	m := &Manager{
		clients:   make(map[string]*Client),
		factory:   factory,
		log:       log,
		observers: make(map[string][]Observer),
		events:    make(chan Event, 256),
		done:      make(chan struct{}),
	}
	m.wg.Add(1)
	go m.dispatchLoop()
	return m
}

// Lookup returns the live socket for a session id, without creating one.
func (m *Manager) Lookup(id string) (*Client, bool) {
	m.clientsLock.Lock()
	defer m.clientsLock.Unlock()
	c, exists := m.clients[id]
	return c, exists
}

// GetOrCreate returns the live socket for a session id, creating it if
// absent. The registry lock is held across creation, so two concurrent
// calls for the same id never produce two sockets.
func (m *Manager) GetOrCreate(id string, cfg ClientConfig) (*Client, error) {
	m.clientsLock.Lock()
	defer m.clientsLock.Unlock()

	if c, exists := m.clients[id]; exists {
		return c, nil
	}

	transport, err := m.factory(id)
	if err != nil {
		return nil, err
	}

	c := newClient(id, transport, cfg, m)
	m.clients[id] = c
	m.log.Info().Str("session", id).Msg("registered session socket")
	return c, nil
}

// Remove tears down and evicts the socket for a session id. Idempotent:
// removing an absent id is a no-op.
func (m *Manager) Remove(id string) {
	m.clientsLock.Lock()
	c, exists := m.clients[id]
	delete(m.clients, id)
	m.clientsLock.Unlock()

	if !exists {
		return
	}
	c.teardown()
	m.log.Info().Str("session", id).Msg("removed session socket")
}

// All returns a snapshot of the registered sockets.
func (m *Manager) All() map[string]*Client {
	m.clientsLock.Lock()
	defer m.clientsLock.Unlock()
	snapshot := make(map[string]*Client, len(m.clients))
	for id, c := range m.clients {
		snapshot[id] = c
	}
	return snapshot
}

// Count returns the number of registered sockets.
func (m *Manager) Count() int {
	m.clientsLock.Lock()
	defer m.clientsLock.Unlock()
	return len(m.clients)
}

// RegisterObserver registers an observer for a specific event type.
func (m *Manager) RegisterObserver(eventType string, observer Observer) {
	m.observersLock.Lock()
	defer m.observersLock.Unlock()
	m.observers[eventType] = append(m.observers[eventType], observer)
}

// Dispatch queues an event for delivery. Delivery order matches dispatch
// order. Events dispatched after Shutdown are dropped.
func (m *Manager) Dispatch(event Event) {
	select {
	case <-m.done:
	case m.events <- event:
	}
}

func (m *Manager) dispatchLoop() {
	defer m.wg.Done()
	for {
		select {
		case evt := <-m.events:
			m.deliver(evt)
		case <-m.done:
			// Drain whatever was queued before shutdown.
			for {
				select {
				case evt := <-m.events:
					m.deliver(evt)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) deliver(event Event) {
	m.observersLock.RLock()
	observers := m.observers[event.GetType()]
	m.observersLock.RUnlock()
	for _, observer := range observers {
		observer.OnEvent(event)
	}
}

// Shutdown disconnects every socket and stops the event dispatcher.
func (m *Manager) Shutdown() {
	m.clientsLock.Lock()
	clients := m.clients
	m.clients = make(map[string]*Client)
	m.clientsLock.Unlock()

	for id, c := range clients {
		c.teardown()
		m.log.Info().Str("session", id).Msg("closed session socket on shutdown")
	}

	close(m.done)
	m.wg.Wait()
}
