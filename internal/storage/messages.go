package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"nixbot/internal/models"
)

// Order selects the chronological direction of a message listing.
type Order int

const (
	Ascending Order = iota
	Descending
)

const messageColumns = `m.id, m.conversation_id, m.role, m.content, m.meta_model, m.meta_tokens, m.meta_latency, m.meta_error, m.created_at`

// MessageStore appends and reads conversation messages. Messages are never updated.
type MessageStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db, now: now}
}

// Append stores a new message. meta may be nil.
func (s *MessageStore) Append(ctx context.Context, conversationID string, role models.Role, content string, meta *models.MessageMetadata) (*models.Message, error) {
	if conversationID == "" {
		return nil, errors.New("conversation_id is required")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Metadata:       meta,
		CreatedAt:      s.now(),
	}
	var model, metaErr sql.NullString
	var tokens, latency sql.NullInt64
	if meta != nil {
		model = sql.NullString{String: meta.Model, Valid: true}
		tokens = sql.NullInt64{Int64: int64(meta.Tokens), Valid: true}
		latency = sql.NullInt64{Int64: meta.Latency, Valid: true}
		metaErr = sql.NullString{String: meta.Error, Valid: meta.Error != ""}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, meta_model, meta_tokens, meta_latency, meta_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, string(msg.Role), msg.Content, model, tokens, latency, metaErr, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// ListByConversation returns the conversation's messages in the requested order.
// A limit <= 0 returns all of them.
func (s *MessageStore) ListByConversation(ctx context.Context, conversationID string, limit int, order Order) ([]*models.Message, error) {
	dir := "ASC"
	if order == Descending {
		dir = "DESC"
	}
	query := `SELECT ` + messageColumns + ` FROM messages m WHERE m.conversation_id = ?
		ORDER BY m.created_at ` + dir + `, m.seq ` + dir
	args := []any{conversationID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// Recent returns the last k messages of the conversation in chronological order.
func (s *MessageStore) Recent(ctx context.Context, conversationID string, k int) ([]*models.Message, error) {
	if k <= 0 {
		return []*models.Message{}, nil
	}
	msgs, err := s.ListByConversation(ctx, conversationID, k, Descending)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *MessageStore) CountByConversation(ctx context.Context, conversationID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// CountByOwner counts messages across every conversation of the owner.
func (s *MessageStore) CountByOwner(ctx context.Context, userID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages m JOIN conversations c ON c.id = m.conversation_id WHERE c.user_id = ?`,
		userID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count owner messages: %w", err)
	}
	return count, nil
}

// Search finds the owner's messages containing query, case-insensitively, newest first.
func (s *MessageStore) Search(ctx context.Context, userID, query string, limit int) ([]*models.Message, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	return s.query(ctx,
		`SELECT `+messageColumns+` FROM messages m JOIN conversations c ON c.id = m.conversation_id
		WHERE c.user_id = ? AND LOWER(m.content) LIKE ? ESCAPE '!'
		ORDER BY m.created_at DESC, m.seq DESC LIMIT ?`,
		userID, pattern, limit,
	)
}

func (s *MessageStore) query(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func scanMessage(row scanner) (*models.Message, error) {
	var (
		msg     models.Message
		role    string
		model   sql.NullString
		tokens  sql.NullInt64
		latency sql.NullInt64
		metaErr sql.NullString
	)
	if err := row.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &model, &tokens, &latency, &metaErr, &msg.CreatedAt); err != nil {
		return nil, err
	}
	msg.Role = models.Role(role)
	if model.Valid || tokens.Valid || latency.Valid || metaErr.Valid {
		msg.Metadata = &models.MessageMetadata{
			Model:   model.String,
			Tokens:  int(tokens.Int64),
			Latency: latency.Int64,
			Error:   metaErr.String,
		}
	}
	return &msg, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
