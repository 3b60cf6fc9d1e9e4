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

const conversationColumns = `id, user_id, title, is_active, message_count, last_message_at, last_message, created_at, updated_at`

// ConversationStore persists conversations. Every lookup is scoped by owner.
type ConversationStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewConversationStore(db *sql.DB) *ConversationStore {
	return &ConversationStore{db: db, now: now}
}

// Create inserts an active conversation for the owner. A blank title falls back to the default.
func (s *ConversationStore) Create(ctx context.Context, userID, title string) (*models.Conversation, error) {
	if userID == "" {
		return nil, errors.New("user_id is required")
	}
	if title == "" {
		title = models.DefaultConversationTitle
	}
	ts := s.now()
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		IsActive:  true,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, title, is_active, message_count, last_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, '', ?, ?)`,
		conv.ID, conv.UserID, conv.Title, conv.IsActive, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// FindOwned returns the conversation when it exists and belongs to userID, nil otherwise.
func (s *ConversationStore) FindOwned(ctx context.Context, id, userID string) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// ListOwned returns the owner's conversations, most recently updated first.
func (s *ConversationStore) ListOwned(ctx context.Context, userID string, activeOnly bool) ([]*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE user_id = ?`
	args := []any{userID}
	if activeOnly {
		query += ` AND is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY updated_at DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]*models.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// RecordExchange applies one exchange in a single statement: the count grows by two,
// the last message fields are replaced and the title changes only while it is still
// the default. Title and active flag set concurrently by other requests are kept.
func (s *ConversationStore) RecordExchange(ctx context.Context, id, userID string, ex models.Exchange) (*models.Conversation, error) {
	if id == "" {
		return nil, errors.New("conversation id is required")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations
		SET message_count = message_count + 2,
			last_message_at = ?,
			last_message = ?,
			title = CASE WHEN title = '' OR title = ? THEN ? ELSE title END,
			updated_at = ?
		WHERE id = ? AND user_id = ?`,
		ex.At.UTC(), ex.LastMessage, models.DefaultConversationTitle, ex.Title, s.now(),
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("record exchange: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("conversation rows affected: %w", err)
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}
	conv, err := s.FindOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, sql.ErrNoRows
	}
	return conv, nil
}

// Rename sets a new title and returns the updated conversation, nil when not owned.
func (s *ConversationStore) Rename(ctx context.Context, id, userID, title string) (*models.Conversation, error) {
	return s.update(ctx, id, userID, `title = ?`, title)
}

// SoftDelete flags the conversation inactive and returns it, nil when not owned.
func (s *ConversationStore) SoftDelete(ctx context.Context, id, userID string) (*models.Conversation, error) {
	return s.update(ctx, id, userID, `is_active = ?`, false)
}

func (s *ConversationStore) update(ctx context.Context, id, userID, set string, value any) (*models.Conversation, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET `+set+`, updated_at = ? WHERE id = ? AND user_id = ?`,
		value, s.now(), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("conversation rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.FindOwned(ctx, id, userID)
}

// CountOwned counts every conversation of the owner, inactive ones included.
func (s *ConversationStore) CountOwned(ctx context.Context, userID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations WHERE user_id = ?`, userID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count conversations: %w", err)
	}
	return count, nil
}

func scanConversation(row scanner) (*models.Conversation, error) {
	var (
		conv          models.Conversation
		lastMessageAt sql.NullTime
	)
	if err := row.Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.IsActive,
		&conv.Metadata.MessageCount,
		&lastMessageAt,
		&conv.LastMessage,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lastMessageAt.Valid {
		ts := lastMessageAt.Time
		conv.Metadata.LastMessageAt = &ts
	}
	return &conv, nil
}
