package types

import (
	"time"
)

type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleInstructor Role = "INSTRUCTOR"
	RoleAdmin      Role = "ADMIN"
)

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError:
		return true
	}
	return false
}

type Attachment struct {
	Type string `json:"type" validate:"required,max=64"`
	Url  string `json:"url" validate:"required,url"`
	Name string `json:"name,omitempty" validate:"max=255"`
}

type Message struct {
	Id          string       `json:"id"`
	Content     string       `json:"content"`
	SenderId    string       `json:"senderId"`
	ReceiverId  string       `json:"receiverId"`
	Read        bool         `json:"read"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type Notification struct {
	Id        string           `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	UserId    string           `json:"userId"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}
