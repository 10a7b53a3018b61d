package server

import (
	"sync"
)

// fakeConn records everything sent to it.
type fakeConn struct {
	handle  string
	mu      sync.Mutex
	sent    []*ServerMessage
	sendErr error
	closed  bool
	onClose func()
}

func newFakeConn(handle string) *fakeConn {
	return &fakeConn{handle: handle}
}

func (f *fakeConn) Handle() string { return f.handle }

func (f *fakeConn) Send(msg *ServerMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	f.closed = true
	onClose := f.onClose
	f.mu.Unlock()

	if onClose != nil {
		onClose()
	}
}

func (f *fakeConn) Sent() []*ServerMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*ServerMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeConn) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
