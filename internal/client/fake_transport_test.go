package client

import (
	"context"
	"sync"
)

// fakeTransport is a controllable Transport for state machine tests.
type fakeTransport struct {
	mu           sync.Mutex
	handler      func(TransportEvent)
	connectCalls int
	connected    bool
	registered   bool
	phone        string
	connectErr   error
	closed       bool
	qrItems      chan QRItem
	sentTo       []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{qrItems: make(chan QRItem, 8)}
}

func (t *fakeTransport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connectCalls++
	if t.connectErr != nil {
		return t.connectErr
	}
	t.connected = true
	return nil
}

func (t *fakeTransport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
}

func (t *fakeTransport) Logout(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.registered = false
	return nil
}

func (t *fakeTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *fakeTransport) IsRegistered() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.registered
}

func (t *fakeTransport) PairedPhone() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phone
}

func (t *fakeTransport) QRChannel(ctx context.Context) (<-chan QRItem, error) {
	return t.qrItems, nil
}

func (t *fakeTransport) SetEventHandler(handler func(TransportEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

func (t *fakeTransport) emit(evt TransportEvent) {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler != nil {
		handler(evt)
	}
}

func (t *fakeTransport) pushQR(item QRItem) {
	t.qrItems <- item
}

func (t *fakeTransport) SendText(ctx context.Context, phone, message string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sentTo = append(t.sentTo, phone)
	return "MSG-1", nil
}

func (t *fakeTransport) SendAttachment(ctx context.Context, phone, message string, att *Attachment) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sentTo = append(t.sentTo, phone)
	return "MSG-2", nil
}

func (t *fakeTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

func (t *fakeTransport) calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectCalls
}
