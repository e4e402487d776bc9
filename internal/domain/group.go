package domain

import "time"

// Group is the membership-bearing extension of a group chat.
type Group struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	CreatorID int64     `json:"creator_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
