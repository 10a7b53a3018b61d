package server

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendQueueSize  = 256
)

var (
	ErrSendQueueFull = errors.New("send queue full")
	ErrClientClosed  = errors.New("client closed")
)

type ConnState int32

const (
	StateConnecting ConnState = iota
	StateJoined
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Client is one websocket connection. Read and Write each run on their own
// goroutine; everything else talks to the client through Send.
type Client struct {
	conn       *websocket.Conn
	handle     string
	authUserId string
	registry   *Registry
	log        *log.Logger
	send       chan *ServerMessage
	state      atomic.Int32
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewClient wraps conn. authUserId is the identity resolved by the auth
// middleware; when set, joins for any other user are refused.
func NewClient(handle, authUserId string, conn *websocket.Conn, registry *Registry, l *log.Logger) *Client {
	c := &Client{
		conn:       conn,
		handle:     handle,
		authUserId: authUserId,
		registry:   registry,
		log:        l,
		send:       make(chan *ServerMessage, sendQueueSize),
		stop:       make(chan struct{}),
	}
	c.state.Store(int32(StateConnecting))
	return c
}

func (c *Client) Handle() string {
	return c.handle
}

func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

// Send enqueues msg without blocking.
func (c *Client) Send(msg *ServerMessage) error {
	select {
	case <-c.stop:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close stops the write loop, which closes the underlying connection and in
// turn ends the read loop. Safe to call more than once.
func (c *Client) Close() {
	c.stopOnce.Do(func() {
		c.state.Store(int32(StateDisconnected))
		close(c.stop)
	})
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer c.cleanup()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		switch msg.Event {
		case EventJoin:
			c.handleJoin(&msg)
		default:
			c.queueMessage(ErrUnknownEvent(msg.Id))
		}
	}
}

func (c *Client) handleJoin(msg *ClientMessage) {
	var userId string
	if err := json.Unmarshal(msg.Data, &userId); err != nil || userId == "" {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	if c.authUserId != "" && userId != c.authUserId {
		c.log.Printf("session %q refused join for %q", c.handle, userId)
		c.queueMessage(ErrForbidden(msg.Id))
		return
	}

	if c.State() == StateDisconnected {
		return
	}

	c.registry.Join(userId, c)
	c.state.CompareAndSwap(int32(StateConnecting), int32(StateJoined))
	c.queueMessage(NoErrOK(msg.Id, map[string]string{"room": RoomName(userId)}))
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	if err := c.Send(msg); err != nil {
		c.log.Printf("failed to send message to client %q: %v", c.handle, err)
		return false
	}
	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) cleanup() {
	c.registry.Leave(c.handle)
	c.Close()
}
