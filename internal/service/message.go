package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/npezzotti/campus-messaging/internal/database"
	"github.com/npezzotti/campus-messaging/internal/server"
	"github.com/npezzotti/campus-messaging/internal/types"
	"github.com/samber/lo"
)

var ErrNoEmitter = errors.New("service: emitter is required")

// Emitter pushes an event to the live sessions of one user.
type Emitter interface {
	Emit(userId, event string, payload any) int
}

type SendParams struct {
	SenderId    string             `json:"senderId" validate:"required"`
	ReceiverId  string             `json:"receiverId" validate:"required"`
	Content     string             `json:"content" validate:"required,max=2000"`
	Attachments []types.Attachment `json:"attachments" validate:"max=10,dive"`
}

type MessageService struct {
	log      *log.Logger
	store    database.MessageStore
	users    database.UserDirectory
	emitter  Emitter
	validate *validator.Validate
	now      func() time.Time
}

func NewMessageService(logger *log.Logger, store database.MessageStore, users database.UserDirectory, emitter Emitter) (*MessageService, error) {
	if emitter == nil {
		return nil, ErrNoEmitter
	}

	return &MessageService{
		log:      logger,
		store:    store,
		users:    users,
		emitter:  emitter,
		validate: newValidator(),
		now:      now,
	}, nil
}

// Send persists a direct message and then pushes it to the receiver's live
// sessions. The push result never changes the outcome.
func (s *MessageService) Send(ctx context.Context, p SendParams) (types.Message, error) {
	p.Content = strings.TrimSpace(p.Content)
	if err := validateStruct(s.validate, p); err != nil {
		return types.Message{}, err
	}

	if _, err := s.users.GetUser(ctx, p.ReceiverId); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return types.Message{}, newNotFoundError("receiver not found")
		}
		return types.Message{}, newInternalError("get receiver", err)
	}

	row := database.Message{
		Id:         uuid.NewString(),
		SenderId:   p.SenderId,
		ReceiverId: p.ReceiverId,
		Content:    p.Content,
		Attachments: lo.Map(p.Attachments, func(a types.Attachment, _ int) database.Attachment {
			return database.Attachment{Type: a.Type, Url: a.Url, Name: a.Name}
		}),
		CreatedAt: s.now(),
	}

	if err := s.store.CreateMessage(ctx, row); err != nil {
		return types.Message{}, newInternalError("create message", err)
	}

	msg := toMessage(row, 0)
	n := s.emitter.Emit(msg.ReceiverId, server.EventMessage, msg)
	s.log.Printf("message %q from %q to %q delivered to %d sessions", msg.Id, msg.SenderId, msg.ReceiverId, n)

	return msg, nil
}

// Fetch returns the conversation between userA and userB oldest first and
// marks as read the messages userA had not yet read from userB. Only rows
// in the returned snapshot are marked, so a message arriving mid-call stays
// unread. The returned list reflects the state before marking.
func (s *MessageService) Fetch(ctx context.Context, userA, userB string) ([]types.Message, error) {
	if userA == "" || userB == "" {
		return nil, newValidationError("both users are required")
	}

	rows, err := s.store.ListConversation(ctx, userA, userB)
	if err != nil {
		return nil, newInternalError("list conversation", err)
	}

	unread := lo.FilterMap(rows, func(m database.Message, _ int) (string, bool) {
		return m.Id, !m.Read && m.ReceiverId == userA && m.SenderId == userB
	})

	if len(unread) > 0 {
		n, err := s.store.MarkMessagesRead(ctx, userA, userB, unread)
		if err != nil {
			return nil, newInternalError("mark messages read", err)
		}
		s.log.Printf("marked %d messages from %q to %q read", n, userB, userA)
	}

	return lo.Map(rows, toMessage), nil
}

// Delete removes a message when requesterId is one of its parties.
func (s *MessageService) Delete(ctx context.Context, messageId, requesterId string) error {
	msg, err := s.store.GetMessage(ctx, messageId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return newNotFoundError("message not found")
		}
		return newInternalError("get message", err)
	}

	if requesterId != msg.SenderId && requesterId != msg.ReceiverId {
		return newForbiddenError("not a party to this message")
	}

	if err := s.store.DeleteMessage(ctx, messageId); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return newNotFoundError("message not found")
		}
		return newInternalError("delete message", err)
	}

	return nil
}

func toMessage(m database.Message, _ int) types.Message {
	return types.Message{
		Id:         m.Id,
		Content:    m.Content,
		SenderId:   m.SenderId,
		ReceiverId: m.ReceiverId,
		Read:       m.Read,
		Attachments: lo.Map(m.Attachments, func(a database.Attachment, _ int) types.Attachment {
			return types.Attachment{Type: a.Type, Url: a.Url, Name: a.Name}
		}),
		CreatedAt: m.CreatedAt,
	}
}
