package service

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/npezzotti/campus-messaging/internal/database"
	"github.com/npezzotti/campus-messaging/internal/server"
	"github.com/npezzotti/campus-messaging/internal/testutil"
	"github.com/stretchr/testify/require"
)

// liveConn stands in for one browser tab.
type liveConn struct {
	handle string
	mu     sync.Mutex
	sent   []*server.ServerMessage
}

func (c *liveConn) Handle() string { return c.handle }

func (c *liveConn) Send(msg *server.ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *liveConn) Close() {}

func (c *liveConn) pushes() []*server.ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*server.ServerMessage(nil), c.sent...)
}

// recordingEmitter counts emits without any sessions behind it.
type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
	live   int
}

type emitted struct {
	userId string
	event  string
	data   any
}

func (e *recordingEmitter) Emit(userId, event string, payload any) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emitted{userId, event, payload})
	return e.live
}

type harness struct {
	repo     *database.MemoryRepository
	registry *server.Registry
	broker   *server.Broker
	messages *MessageService
	notes    *NotificationService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := testutil.TestLogger(t)
	repo := database.NewMemoryRepository()
	registry := server.NewRegistry(logger, nil)
	broker, err := server.NewBroker(logger, registry, nil)
	require.NoError(t, err)

	msgs, err := NewMessageService(logger, repo, repo, broker)
	require.NoError(t, err)
	notes, err := NewNotificationService(logger, repo, repo, broker)
	require.NoError(t, err)

	return &harness{
		repo:     repo,
		registry: registry,
		broker:   broker,
		messages: msgs,
		notes:    notes,
	}
}

func (h *harness) connect(userId, handle string) *liveConn {
	c := &liveConn{handle: handle}
	h.registry.Join(userId, c)
	return c
}

func decodePush[T any](t *testing.T, msg *server.ServerMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(msg.Data, &v))
	return v
}
