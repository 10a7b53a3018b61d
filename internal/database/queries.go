package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

const (
	messageColumns      = "id, sender_id, receiver_id, content, attachments, read, created_at"
	notificationColumns = "id, user_id, title, message, type, read, created_at"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (Message, error) {
	var msg Message
	err := row.Scan(
		&msg.Id,
		&msg.SenderId,
		&msg.ReceiverId,
		&msg.Content,
		&msg.Attachments,
		&msg.Read,
		&msg.CreatedAt,
	)
	return msg, err
}

func scanNotification(row rowScanner) (Notification, error) {
	var n Notification
	err := row.Scan(
		&n.Id,
		&n.UserId,
		&n.Title,
		&n.Message,
		&n.Type,
		&n.Read,
		&n.CreatedAt,
	)
	return n, err
}

func (db *PgRepository) CreateMessage(ctx context.Context, msg Message) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO messages (id, sender_id, receiver_id, content, attachments, read, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7)",
		msg.Id,
		msg.SenderId,
		msg.ReceiverId,
		msg.Content,
		msg.Attachments,
		msg.Read,
		msg.CreatedAt,
	)

	return err
}

func (db *PgRepository) GetMessage(ctx context.Context, id string) (Message, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE id = $1 LIMIT 1",
		id,
	)

	msg, err := scanMessage(row)
	return msg, notFound(err)
}

func (db *PgRepository) ListConversation(ctx context.Context, userA, userB string) ([]Message, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM messages "+
			"WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1) "+
			"ORDER BY created_at ASC, seq ASC",
		userA,
		userB,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return messages, nil
}

// MarkMessagesRead flips the read flag on the given ids in one statement.
// The receiver/sender predicates keep a caller from marking rows outside
// its own conversation even if it passes foreign ids.
func (db *PgRepository) MarkMessagesRead(ctx context.Context, receiverId, senderId string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := db.conn.ExecContext(ctx,
		"UPDATE messages SET read = TRUE "+
			"WHERE id = ANY($1) AND receiver_id = $2 AND sender_id = $3 AND read = FALSE",
		pq.Array(ids),
		receiverId,
		senderId,
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (db *PgRepository) DeleteMessage(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM messages WHERE id = $1", id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (db *PgRepository) CreateNotification(ctx context.Context, n Notification) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO notifications (id, user_id, title, message, type, read, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7)",
		n.Id,
		n.UserId,
		n.Title,
		n.Message,
		n.Type,
		n.Read,
		n.CreatedAt,
	)

	return err
}

func (db *PgRepository) ListNotifications(ctx context.Context, userId string, filter NotificationFilter) ([]Notification, error) {
	var (
		where = []string{"user_id = $1"}
		args  = []any{userId}
	)

	if filter.Read != nil {
		args = append(args, *filter.Read)
		where = append(where, fmt.Sprintf("read = $%d", len(args)))
	}

	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE "+
			strings.Join(where, " AND ")+" ORDER BY created_at DESC",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return notifications, nil
}

func (db *PgRepository) MarkNotificationsRead(ctx context.Context, userId, notificationType string) (int64, error) {
	query := "UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE"
	args := []any{userId}
	if notificationType != "" {
		query += " AND type = $2"
		args = append(args, notificationType)
	}

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (db *PgRepository) GetUser(ctx context.Context, id string) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, name, role FROM users WHERE id = $1 LIMIT 1",
		id,
	)

	var u User
	err := row.Scan(&u.Id, &u.Name, &u.Role)
	return u, notFound(err)
}

func (db *PgRepository) ListUsersByRole(ctx context.Context, role string) ([]User, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, name, role FROM users WHERE role = $1 ORDER BY id",
		role,
	)
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Id, &u.Name, &u.Role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}
