package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nixbot/internal/models"
)

const userColumns = `id, username, name, password_hash, created_at, last_active_at`

type UserStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db, now: now}
}

// Create inserts a user; the caller hashes the password.
func (s *UserStore) Create(ctx context.Context, username, name, passwordHash string) (*models.User, error) {
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Name, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// FindByUsername returns nil when no user matches.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.find(ctx, `username = ?`, username)
}

// FindByID returns nil when no user matches.
func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.find(ctx, `id = ?`, id)
}

func (s *UserStore) UpdateName(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("user rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *UserStore) TouchLastActive(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET last_active_at = ? WHERE id = ?`, s.now(), id); err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}

func (s *UserStore) find(ctx context.Context, where string, arg any) (*models.User, error) {
	var (
		user       models.User
		lastActive sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).
		Scan(&user.ID, &user.Username, &user.Name, &user.PasswordHash, &user.CreatedAt, &lastActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	if lastActive.Valid {
		ts := lastActive.Time
		user.LastActiveAt = &ts
	}
	return &user, nil
}
