package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/npezzotti/campus-messaging/internal/database"
	"github.com/npezzotti/campus-messaging/internal/server"
	"github.com/npezzotti/campus-messaging/internal/types"
	"github.com/samber/lo"
)

type NotifyParams struct {
	UserId  string                 `json:"userId" validate:"required"`
	Title   string                 `json:"title" validate:"required,max=200"`
	Message string                 `json:"message" validate:"required,max=2000"`
	Type    types.NotificationType `json:"type" validate:"required,oneof=info success warning error"`
}

type NotifyRoleParams struct {
	Role    types.Role             `json:"role" validate:"required,oneof=STUDENT INSTRUCTOR ADMIN"`
	Title   string                 `json:"title" validate:"required,max=200"`
	Message string                 `json:"message" validate:"required,max=2000"`
	Type    types.NotificationType `json:"type" validate:"required,oneof=info success warning error"`
}

type BroadcastFailure struct {
	UserId string `json:"userId"`
	Error  string `json:"error"`
}

// BroadcastResult reports a role broadcast: the rows that were written, the
// recipients whose row could not be written, and how many live pushes went out.
type BroadcastResult struct {
	Created   []types.Notification `json:"created"`
	Failed    []BroadcastFailure   `json:"failed"`
	Delivered int                  `json:"delivered"`
}

type ListFilter struct {
	Read *bool
	Type types.NotificationType
}

type NotificationService struct {
	log      *log.Logger
	store    database.NotificationStore
	users    database.UserDirectory
	emitter  Emitter
	validate *validator.Validate
	now      func() time.Time
}

func NewNotificationService(logger *log.Logger, store database.NotificationStore, users database.UserDirectory, emitter Emitter) (*NotificationService, error) {
	if emitter == nil {
		return nil, ErrNoEmitter
	}

	return &NotificationService{
		log:      logger,
		store:    store,
		users:    users,
		emitter:  emitter,
		validate: newValidator(),
		now:      now,
	}, nil
}

// Notify persists one notification and pushes it to the target's live sessions.
func (s *NotificationService) Notify(ctx context.Context, p NotifyParams) (types.Notification, error) {
	if p.Type == "" {
		p.Type = types.NotificationInfo
	}
	if err := validateStruct(s.validate, p); err != nil {
		return types.Notification{}, err
	}

	if _, err := s.users.GetUser(ctx, p.UserId); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return types.Notification{}, newNotFoundError("user not found")
		}
		return types.Notification{}, newInternalError("get user", err)
	}

	n, err := s.create(ctx, p.UserId, p.Title, p.Message, p.Type)
	if err != nil {
		return types.Notification{}, newInternalError("create notification", err)
	}

	delivered := s.emitter.Emit(n.UserId, server.EventNotification, n)
	s.log.Printf("notification %q to %q delivered to %d sessions", n.Id, n.UserId, delivered)

	return n, nil
}

// NotifyRole writes one notification per user holding p.Role. A failed
// write for one recipient is recorded and the rest still proceed.
func (s *NotificationService) NotifyRole(ctx context.Context, p NotifyRoleParams) (BroadcastResult, error) {
	if p.Type == "" {
		p.Type = types.NotificationInfo
	}
	if err := validateStruct(s.validate, p); err != nil {
		return BroadcastResult{}, err
	}

	users, err := s.users.ListUsersByRole(ctx, string(p.Role))
	if err != nil {
		return BroadcastResult{}, newInternalError("list users by role", err)
	}

	result := BroadcastResult{
		Created: make([]types.Notification, 0, len(users)),
		Failed:  make([]BroadcastFailure, 0),
	}

	for _, u := range users {
		n, err := s.create(ctx, u.Id, p.Title, p.Message, p.Type)
		if err != nil {
			s.log.Printf("role broadcast to %q: %v", u.Id, err)
			result.Failed = append(result.Failed, BroadcastFailure{UserId: u.Id, Error: err.Error()})
			continue
		}

		result.Created = append(result.Created, n)
		result.Delivered += s.emitter.Emit(n.UserId, server.EventNotification, n)
	}

	s.log.Printf("role broadcast to %s: %d created, %d failed, %d delivered",
		p.Role, len(result.Created), len(result.Failed), result.Delivered)

	return result, nil
}

// List returns userId's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userId string, filter ListFilter) ([]types.Notification, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, newValidationError("unknown notification type")
	}

	rows, err := s.store.ListNotifications(ctx, userId, database.NotificationFilter{
		Read: filter.Read,
		Type: string(filter.Type),
	})
	if err != nil {
		return nil, newInternalError("list notifications", err)
	}

	return lo.Map(rows, toNotification), nil
}

// MarkAllRead marks userId's unread notifications read, optionally only
// those of one type, and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userId string, typ types.NotificationType) (int64, error) {
	if userId == "" {
		return 0, newValidationError("user is required")
	}
	if typ != "" && !typ.Valid() {
		return 0, newValidationError("unknown notification type")
	}

	n, err := s.store.MarkNotificationsRead(ctx, userId, string(typ))
	if err != nil {
		return 0, newInternalError("mark notifications read", err)
	}

	return n, nil
}

func (s *NotificationService) create(ctx context.Context, userId, title, message string, typ types.NotificationType) (types.Notification, error) {
	row := database.Notification{
		Id:        uuid.NewString(),
		UserId:    userId,
		Title:     title,
		Message:   message,
		Type:      string(typ),
		CreatedAt: s.now(),
	}

	if err := s.store.CreateNotification(ctx, row); err != nil {
		return types.Notification{}, err
	}

	return toNotification(row, 0), nil
}

func toNotification(n database.Notification, _ int) types.Notification {
	return types.Notification{
		Id:        n.Id,
		Title:     n.Title,
		Message:   n.Message,
		Type:      types.NotificationType(n.Type),
		UserId:    n.UserId,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
