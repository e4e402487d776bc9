package domain

import "time"

// ChatType distinguishes two-party private chats from membership-bearing
// group chats.
type ChatType string

const (
	ChatTypePrivate ChatType = "private"
	ChatTypeGroup   ChatType = "group"
)

// Valid reports whether t is one of the known chat types.
func (t ChatType) Valid() bool {
	return t == ChatTypePrivate || t == ChatTypeGroup
}

// Chat is a conversation entity. Name is optional for private chats.
type Chat struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name,omitempty"`
	Type      ChatType  `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
