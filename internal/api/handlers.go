package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/campus-messaging/internal/database"
	"github.com/npezzotti/campus-messaging/internal/server"
	"github.com/npezzotti/campus-messaging/internal/service"
	"github.com/npezzotti/campus-messaging/internal/types"
	"github.com/teris-io/shortid"
)

type SendMessageRequest struct {
	ReceiverId  string             `json:"receiverId"`
	Content     string             `json:"content"`
	Attachments []types.Attachment `json:"attachments"`
}

// CreateNotificationRequest addresses either one user or every user with
// a role, never both.
type CreateNotificationRequest struct {
	UserId  string                 `json:"userId"`
	Role    types.Role             `json:"role"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Type    types.NotificationType `json:"type"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

func (s *App) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *App) writeServiceError(w http.ResponseWriter, err error) {
	errResp := fromServiceError(err)
	if errResp.StatusCode >= http.StatusInternalServerError {
		s.log.Printf("internal error: %v", err)
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *App) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.log.Printf("health check: %v", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *App) getMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	peerId := r.URL.Query().Get("userId")
	if peerId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages, err := s.messages.Fetch(r.Context(), userId, peerId)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *App) sendMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.messages.Send(r.Context(), service.SendParams{
		SenderId:    userId,
		ReceiverId:  req.ReceiverId,
		Content:     req.Content,
		Attachments: req.Attachments,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *App) deleteMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messageId := r.PathValue("id")
	if messageId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.messages.Delete(r.Context(), messageId, userId); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"id": messageId})
}

func (s *App) listNotifications(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var filter service.ListFilter
	if readStr := r.URL.Query().Get("read"); readStr != "" {
		read, err := strconv.ParseBool(readStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		filter.Read = &read
	}
	filter.Type = types.NotificationType(r.URL.Query().Get("type"))

	notifications, err := s.notifications.List(r.Context(), userId, filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, notifications)
}

func (s *App) createNotification(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	caller, err := s.db.GetUser(r.Context(), userId)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if err != nil || types.Role(caller.Role) != types.RoleAdmin {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Role != "" {
		if req.UserId != "" {
			errResp := NewBadRequestError()
			errResp.Message = "userId and role are mutually exclusive"
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		result, err := s.notifications.NotifyRole(r.Context(), service.NotifyRoleParams{
			Role:    req.Role,
			Title:   req.Title,
			Message: req.Message,
			Type:    req.Type,
		})
		if err != nil {
			s.writeServiceError(w, err)
			return
		}

		s.writeJson(w, http.StatusCreated, result)
		return
	}

	n, err := s.notifications.Notify(r.Context(), service.NotifyParams{
		UserId:  req.UserId,
		Title:   req.Title,
		Message: req.Message,
		Type:    req.Type,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, n)
}

func (s *App) markNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	typ := types.NotificationType(r.URL.Query().Get("type"))
	n, err := s.notifications.MarkAllRead(r.Context(), userId, typ)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, MarkReadResponse{Updated: n})
}

func (s *App) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.GetUser(r.Context(), userId); err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	handle, err := shortid.Generate()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(handle, userId, conn, s.registry, s.log)
	go client.Write()
	go client.Read()
}
