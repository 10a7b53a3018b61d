package server

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/npezzotti/campus-messaging/internal/stats"
)

var ErrNoRegistry = errors.New("broker: registry is required")

// Relay forwards encoded events to other nodes. It is optional.
type Relay interface {
	Publish(userId, event string, data []byte) error
}

// Broker fans a per-user event out to every live session of that user.
// It keeps no state of its own beyond the registry it reads from.
type Broker struct {
	log      *log.Logger
	registry *Registry
	stats    stats.StatsProvider
	relay    Relay
}

func NewBroker(logger *log.Logger, registry *Registry, su stats.StatsProvider) (*Broker, error) {
	if registry == nil {
		return nil, ErrNoRegistry
	}
	if su == nil {
		su = stats.NopStats{}
	}

	return &Broker{
		log:      logger,
		registry: registry,
		stats:    su,
	}, nil
}

// SetRelay enables cross-node forwarding. Must be called before the
// broker is shared.
func (b *Broker) SetRelay(r Relay) {
	b.relay = r
}

// Emit pushes payload to every live session of userId and returns how many
// sessions accepted it. Zero is the normal result for an offline user.
func (b *Broker) Emit(userId, event string, payload any) int {
	data, err := json.Marshal(payload)
	if err != nil {
		b.log.Printf("emit %q to %q: encode payload: %v", event, userId, err)
		return 0
	}

	n := b.DeliverLocal(userId, event, data)

	if b.relay != nil {
		if err := b.relay.Publish(userId, event, data); err != nil {
			b.log.Printf("relay publish %q to %q: %v", event, userId, err)
		} else {
			b.stats.Incr(stats.RelayPublished)
		}
	}

	return n
}

// DeliverLocal enqueues an already encoded event on this node's sessions
// for userId. A session that cannot accept the event is dropped from the
// registry and closed; the others still receive it.
func (b *Broker) DeliverLocal(userId, event string, data []byte) int {
	sessions := b.registry.LiveHandles(userId)
	if len(sessions) == 0 {
		return 0
	}

	msg := NewEvent(event, data)

	var delivered int
	for _, s := range sessions {
		if err := s.conn.Send(msg); err != nil {
			b.log.Printf("dropping session %q of %q: %v", s.Handle, RoomName(userId), err)
			b.stats.Incr(stats.EventsDropped)
			b.registry.drop(s)
			s.conn.Close()
			continue
		}
		delivered++
	}

	b.stats.Add(stats.EventsDelivered, float64(delivered))
	return delivered
}
