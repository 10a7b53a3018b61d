package relay

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/npezzotti/campus-messaging/internal/stats"
	"github.com/teris-io/shortid"
)

const subjectPrefix = "campus.delivery"

// Handler receives an event published by another node.
type Handler func(userId, event string, data []byte)

// Relay forwards delivery events between nodes sharing one broker
// subject space.
type Relay interface {
	Publish(userId, event string, data []byte) error
	Subscribe(h Handler) error
	Close() error
}

var _ Relay = (*NatsRelay)(nil)

// natsConn is the part of *nats.Conn the relay uses.
type natsConn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	Drain() error
}

type envelope struct {
	Node   string          `json:"node"`
	UserId string          `json:"userId"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

type NatsRelay struct {
	log   *log.Logger
	nc    natsConn
	node  string
	stats stats.StatsProvider
}

func NewNatsRelay(logger *log.Logger, url string, su stats.StatsProvider) (*NatsRelay, error) {
	node, err := shortid.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate node id: %w", err)
	}

	nc, err := nats.Connect(url,
		nats.Name("campus-messaging-"+node),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Printf("relay disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Printf("relay reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return newNatsRelay(logger, nc, node, su), nil
}

func newNatsRelay(logger *log.Logger, nc natsConn, node string, su stats.StatsProvider) *NatsRelay {
	if su == nil {
		su = stats.NopStats{}
	}

	return &NatsRelay{
		log:   logger,
		nc:    nc,
		node:  node,
		stats: su,
	}
}

func (r *NatsRelay) Node() string {
	return r.node
}

// subject maps a user id onto a single NATS token. The envelope carries
// the exact id, so the mapping only has to be stable.
func subject(userId string) string {
	token := strings.Map(func(c rune) rune {
		switch c {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return c
	}, userId)
	return subjectPrefix + "." + token
}

func (r *NatsRelay) Publish(userId, event string, data []byte) error {
	b, err := json.Marshal(envelope{
		Node:   r.node,
		UserId: userId,
		Event:  event,
		Data:   data,
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	if err := r.nc.Publish(subject(userId), b); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Subscribe passes events from other nodes to h. Events this node
// published are skipped, they were already delivered locally.
func (r *NatsRelay) Subscribe(h Handler) error {
	_, err := r.nc.Subscribe(subjectPrefix+".*", func(m *nats.Msg) {
		r.handle(m.Data, h)
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	r.log.Printf("relay node %s subscribed to %s.*", r.node, subjectPrefix)
	return nil
}

func (r *NatsRelay) handle(raw []byte, h Handler) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.log.Printf("relay: decode envelope: %v", err)
		return
	}

	if env.Node == r.node {
		return
	}
	if env.UserId == "" || env.Event == "" {
		r.log.Printf("relay: incomplete envelope from node %s", env.Node)
		return
	}

	r.stats.Incr(stats.RelayReceived)
	h(env.UserId, env.Event, env.Data)
}

// Close drains pending messages and closes the connection.
func (r *NatsRelay) Close() error {
	if err := r.nc.Drain(); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	return nil
}
