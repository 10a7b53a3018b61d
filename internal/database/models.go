package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type User struct {
	Id   string
	Name string
	Role string
}

type Attachment struct {
	Type string `json:"type"`
	Url  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// Attachments is stored as a single JSONB column.
type Attachments []Attachment

func (a Attachments) Value() (driver.Value, error) {
	if len(a) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *Attachments) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("attachments: unsupported type %T", src)
	}

	var out Attachments
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("attachments: %w", err)
	}
	if len(out) == 0 {
		out = nil
	}
	*a = out
	return nil
}

type Message struct {
	Id          string
	SenderId    string
	ReceiverId  string
	Content     string
	Read        bool
	Attachments Attachments
	CreatedAt   time.Time
}

type Notification struct {
	Id        string
	UserId    string
	Title     string
	Message   string
	Type      string
	Read      bool
	CreatedAt time.Time
}

// NotificationFilter narrows ListNotifications. Nil/empty fields match everything.
type NotificationFilter struct {
	Read *bool
	Type string
}
