package database

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// MemoryRepository keeps everything in process memory. It backs the
// "memory" store driver for local development and the service tests.
type MemoryRepository struct {
	mu            sync.RWMutex
	users         map[string]User
	messages      []Message
	notifications []Notification
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]User),
	}
}

// PutUser inserts or replaces a user in the directory.
func (m *MemoryRepository) PutUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Id] = u
}

func (m *MemoryRepository) CreateMessage(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.Attachments = slices.Clone(msg.Attachments)
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MemoryRepository) GetMessage(_ context.Context, id string) (Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, msg := range m.messages {
		if msg.Id == id {
			return msg, nil
		}
	}
	return Message{}, ErrNotFound
}

func (m *MemoryRepository) ListConversation(_ context.Context, userA, userB string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Message, 0)
	for _, msg := range m.messages {
		if (msg.SenderId == userA && msg.ReceiverId == userB) ||
			(msg.SenderId == userB && msg.ReceiverId == userA) {
			msg.Attachments = slices.Clone(msg.Attachments)
			out = append(out, msg)
		}
	}

	// insertion order breaks ties
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (m *MemoryRepository) MarkMessagesRead(_ context.Context, receiverId, senderId string, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for i := range m.messages {
		msg := &m.messages[i]
		if msg.Read || msg.ReceiverId != receiverId || msg.SenderId != senderId {
			continue
		}
		if slices.Contains(ids, msg.Id) {
			msg.Read = true
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) DeleteMessage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, msg := range m.messages {
		if msg.Id == id {
			m.messages = slices.Delete(m.messages, i, i+1)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryRepository) CreateNotification(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *MemoryRepository) ListNotifications(_ context.Context, userId string, filter NotificationFilter) ([]Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Notification, 0)
	for i := len(m.notifications) - 1; i >= 0; i-- {
		n := m.notifications[i]
		if n.UserId != userId {
			continue
		}
		if filter.Read != nil && n.Read != *filter.Read {
			continue
		}
		if filter.Type != "" && n.Type != filter.Type {
			continue
		}
		out = append(out, n)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

func (m *MemoryRepository) MarkNotificationsRead(_ context.Context, userId, notificationType string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for i := range m.notifications {
		n := &m.notifications[i]
		if n.UserId != userId || n.Read {
			continue
		}
		if notificationType != "" && n.Type != notificationType {
			continue
		}
		n.Read = true
		count++
	}
	return count, nil
}

func (m *MemoryRepository) GetUser(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryRepository) ListUsersByRole(_ context.Context, role string) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]User, 0)
	for _, u := range m.users {
		if u.Role == role {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Id < users[j].Id })
	return users, nil
}

func (m *MemoryRepository) Ping(context.Context) error { return nil }

func (m *MemoryRepository) Close() error { return nil }
