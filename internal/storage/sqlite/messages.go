package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ndenisov/chatd/internal/domain"
	"github.com/ndenisov/chatd/internal/storage"
)

// CreateMessage inserts one message with a store-assigned id and UTC
// timestamp; is_read starts false.
func (s *Store) CreateMessage(ctx context.Context, chatID, senderID int64, text string) (domain.Message, error) {
	timestamp := time.Now().UTC()
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO messages (chat_id, sender_id, text, timestamp, is_read) VALUES (?, ?, ?, ?, 0)`,
		chatID, senderID, text, toMillis(timestamp),
	)
	if err != nil {
		return domain.Message{}, fmt.Errorf("create message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Message{}, fmt.Errorf("create message id: %w", err)
	}
	return domain.Message{
		ID:        id,
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		Timestamp: timestamp,
	}, nil
}

// MessageByID returns one message by id.
func (s *Store) MessageByID(ctx context.Context, id int64) (domain.Message, error) {
	return s.scanMessage(s.sqlDB.QueryRowContext(ctx,
		`SELECT id, chat_id, sender_id, text, timestamp, is_read FROM messages WHERE id = ?`, id))
}

// ChatMessages returns one chronological page of messages for chatID.
func (s *Store) ChatMessages(ctx context.Context, chatID int64, limit, offset int) ([]domain.Message, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, chat_id, sender_id, text, timestamp, is_read FROM messages
		 WHERE chat_id = ? ORDER BY timestamp, id LIMIT ? OFFSET ?`,
		chatID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var timestamp int64
		var isRead int
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Text, &timestamp, &isRead); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Timestamp = fromMillis(timestamp)
		msg.IsRead = isRead != 0
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// MarkMessageRead flips the read flag and returns the updated record.
func (s *Store) MarkMessageRead(ctx context.Context, id int64) (domain.Message, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE messages SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return domain.Message{}, fmt.Errorf("mark message read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Message{}, fmt.Errorf("mark message read result: %w", err)
	}
	if affected == 0 {
		return domain.Message{}, storage.ErrNotFound
	}
	return s.MessageByID(ctx, id)
}

func (s *Store) scanMessage(row *sql.Row) (domain.Message, error) {
	var msg domain.Message
	var timestamp int64
	var isRead int
	err := row.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Text, &timestamp, &isRead)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Message{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("scan message: %w", err)
	}
	msg.Timestamp = fromMillis(timestamp)
	msg.IsRead = isRead != 0
	return msg, nil
}
