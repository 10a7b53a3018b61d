package database

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// notFound maps sql.ErrNoRows to ErrNotFound and leaves other errors untouched.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

type MessageStore interface {
	CreateMessage(ctx context.Context, msg Message) error
	GetMessage(ctx context.Context, id string) (Message, error)
	ListConversation(ctx context.Context, userA, userB string) ([]Message, error)
	MarkMessagesRead(ctx context.Context, receiverId, senderId string, ids []string) (int64, error)
	DeleteMessage(ctx context.Context, id string) error
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n Notification) error
	ListNotifications(ctx context.Context, userId string, filter NotificationFilter) ([]Notification, error)
	MarkNotificationsRead(ctx context.Context, userId, notificationType string) (int64, error)
}

// UserDirectory is the read-only view of accounts owned by the
// authentication collaborator.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
	ListUsersByRole(ctx context.Context, role string) ([]User, error)
}

type Repository interface {
	MessageStore
	NotificationStore
	UserDirectory
	Ping(ctx context.Context) error
	Close() error
}
