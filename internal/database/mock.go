package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateMessage(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
func (m *MockRepository) GetMessage(ctx context.Context, id string) (Message, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockRepository) ListConversation(ctx context.Context, userA, userB string) ([]Message, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockRepository) MarkMessagesRead(ctx context.Context, receiverId, senderId string, ids []string) (int64, error) {
	args := m.Called(ctx, receiverId, senderId, ids)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockRepository) DeleteMessage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockRepository) CreateNotification(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
func (m *MockRepository) ListNotifications(ctx context.Context, userId string, filter NotificationFilter) ([]Notification, error) {
	args := m.Called(ctx, userId, filter)
	return args.Get(0).([]Notification), args.Error(1)
}
func (m *MockRepository) MarkNotificationsRead(ctx context.Context, userId, notificationType string) (int64, error) {
	args := m.Called(ctx, userId, notificationType)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockRepository) GetUser(ctx context.Context, id string) (User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) ListUsersByRole(ctx context.Context, role string) ([]User, error) {
	args := m.Called(ctx, role)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
