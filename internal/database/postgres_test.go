package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pgTestRepository connects to TEST_DATABASE_DSN or skips the test.
func pgTestRepository(t *testing.T) *PgRepository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	repo, err := NewPgRepository(dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	require.NoError(t, repo.Migrate())

	t.Cleanup(func() {
		repo.conn.Exec("DELETE FROM notifications")
		repo.conn.Exec("DELETE FROM messages")
		repo.conn.Exec("DELETE FROM users")
		repo.Close()
	})

	return repo
}

func TestPgRepository_MessageLifecycle(t *testing.T) {
	repo := pgTestRepository(t)
	ctx := context.Background()

	_, err := repo.conn.Exec("INSERT INTO users (id, name, role) VALUES ('a', 'A', 'STUDENT'), ('b', 'B', 'STUDENT'), ('c', 'C', 'INSTRUCTOR')")
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	ab := Message{Id: uuid.NewString(), SenderId: "a", ReceiverId: "b", Content: "hi", CreatedAt: now,
		Attachments: Attachments{{Type: "file", Url: "https://example.com/f.pdf"}}}
	ac := Message{Id: uuid.NewString(), SenderId: "a", ReceiverId: "c", Content: "hey", CreatedAt: now}
	require.NoError(t, repo.CreateMessage(ctx, ab))
	require.NoError(t, repo.CreateMessage(ctx, ac))

	conv, err := repo.ListConversation(ctx, "b", "a")
	require.NoError(t, err)
	require.Len(t, conv, 1)
	assert.Equal(t, ab.Attachments, conv[0].Attachments)

	n, err := repo.MarkMessagesRead(ctx, "b", "a", []string{ab.Id, ac.Id})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetMessage(ctx, ac.Id)
	require.NoError(t, err)
	assert.False(t, got.Read)

	require.NoError(t, repo.DeleteMessage(ctx, ab.Id))
	_, err = repo.GetMessage(ctx, ab.Id)
	assert.ErrorIs(t, err, ErrNotFound)

	users, err := repo.ListUsersByRole(ctx, "INSTRUCTOR")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestPgRepository_Notifications(t *testing.T) {
	repo := pgTestRepository(t)
	ctx := context.Background()

	_, err := repo.conn.Exec("INSERT INTO users (id, name, role) VALUES ('u1', 'U1', 'STUDENT'), ('u2', 'U2', 'STUDENT')")
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.CreateNotification(ctx, Notification{Id: uuid.NewString(), UserId: "u1", Title: "t", Message: "m", Type: "info", CreatedAt: now}))
	require.NoError(t, repo.CreateNotification(ctx, Notification{Id: uuid.NewString(), UserId: "u2", Title: "t", Message: "m", Type: "info", CreatedAt: now}))

	n, err := repo.MarkNotificationsRead(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unread := false
	rows, err := repo.ListNotifications(ctx, "u2", NotificationFilter{Read: &unread, Type: "info"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
