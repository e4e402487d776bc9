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

// CreateUser inserts one account. Username and email are unique; violations
// map to storage.ErrAlreadyExists.
func (s *Store) CreateUser(ctx context.Context, username, email, hashedPassword string) (domain.User, error) {
	createdAt := time.Now().UTC()
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (username, email, hashed_password, created_at) VALUES (?, ?, ?, ?)`,
		username, email, hashedPassword, toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, storage.ErrAlreadyExists
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.User{}, fmt.Errorf("create user id: %w", err)
	}
	return domain.User{
		ID:             id,
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      createdAt,
	}, nil
}

// UserByID returns one account by id.
func (s *Store) UserByID(ctx context.Context, id int64) (domain.User, error) {
	return s.scanUser(s.sqlDB.QueryRowContext(ctx,
		`SELECT id, username, email, hashed_password, created_at FROM users WHERE id = ?`, id))
}

// UserByUsername returns one account by username.
func (s *Store) UserByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.scanUser(s.sqlDB.QueryRowContext(ctx,
		`SELECT id, username, email, hashed_password, created_at FROM users WHERE username = ?`, username))
}

// UserByEmail returns one account by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.scanUser(s.sqlDB.QueryRowContext(ctx,
		`SELECT id, username, email, hashed_password, created_at FROM users WHERE email = ?`, email))
}

func (s *Store) scanUser(row *sql.Row) (domain.User, error) {
	var user domain.User
	var createdAt int64
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.HashedPassword, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}
