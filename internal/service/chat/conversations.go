package chat

import (
	"context"
	"strings"

	"nixbot/internal/apperr"
	"nixbot/internal/models"
	"nixbot/internal/storage"
)

type titleInput struct {
	OwnerID string `validate:"required"`
	Title   string `validate:"max=100"`
}

type renameInput struct {
	OwnerID string `validate:"required"`
	Title   string `validate:"required,max=100"`
}

// ConversationDetail is a conversation with its messages, oldest first.
type ConversationDetail struct {
	Conversation *models.Conversation `json:"conversation"`
	Messages     []*models.Message    `json:"messages"`
}

// Stats counts a user's conversations, inactive ones included, and their messages.
type Stats struct {
	TotalConversations int `json:"totalConversations"`
	TotalMessages      int `json:"totalMessages"`
}

// CreateConversation starts a conversation. A blank title means the default one.
func (s *Service) CreateConversation(ctx context.Context, ownerID, title string) (*models.Conversation, error) {
	title = strings.TrimSpace(title)
	if err := s.validate.Struct(titleInput{OwnerID: ownerID, Title: title}); err != nil {
		return nil, validationError(err)
	}
	conv, err := s.conversations.Create(ctx, ownerID, title)
	if err != nil {
		return nil, apperr.Persistence("failed to create conversation", err)
	}
	s.log.Info().Str("conversation_id", conv.ID).Str("user_id", ownerID).Msg("conversation created")
	return conv, nil
}

// EnsureConversation returns the owned conversation id, or creates a new one when id is empty.
func (s *Service) EnsureConversation(ctx context.Context, ownerID, id, title string) (*models.Conversation, error) {
	if id == "" {
		return s.CreateConversation(ctx, ownerID, title)
	}
	return s.owned(ctx, ownerID, id)
}

func (s *Service) ListConversations(ctx context.Context, ownerID string, activeOnly bool) ([]*models.Conversation, error) {
	if ownerID == "" {
		return nil, apperr.Validation("User ID is required")
	}
	convs, err := s.conversations.ListOwned(ctx, ownerID, activeOnly)
	if err != nil {
		return nil, apperr.Persistence("failed to list conversations", err)
	}
	return convs, nil
}

func (s *Service) GetConversation(ctx context.Context, ownerID, id string) (*ConversationDetail, error) {
	conv, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByConversation(ctx, conv.ID, 0, storage.Ascending)
	if err != nil {
		return nil, apperr.Persistence("failed to load messages", err)
	}
	return &ConversationDetail{Conversation: conv, Messages: msgs}, nil
}

// Messages lists every message of an owned conversation, oldest first.
func (s *Service) Messages(ctx context.Context, ownerID, id string) ([]*models.Message, error) {
	detail, err := s.GetConversation(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return detail.Messages, nil
}

func (s *Service) RenameConversation(ctx context.Context, ownerID, id, title string) (*models.Conversation, error) {
	title = strings.TrimSpace(title)
	if err := s.validate.Struct(renameInput{OwnerID: ownerID, Title: title}); err != nil {
		return nil, validationError(err)
	}
	conv, err := s.conversations.Rename(ctx, id, ownerID, title)
	if err != nil {
		return nil, apperr.Persistence("failed to rename conversation", err)
	}
	if conv == nil {
		return nil, apperr.NotFound("Conversation not found")
	}
	return conv, nil
}

// DeleteConversation soft deletes: the conversation is hidden from active listings,
// its messages stay.
func (s *Service) DeleteConversation(ctx context.Context, ownerID, id string) (*models.Conversation, error) {
	if ownerID == "" {
		return nil, apperr.Validation("User ID is required")
	}
	conv, err := s.conversations.SoftDelete(ctx, id, ownerID)
	if err != nil {
		return nil, apperr.Persistence("failed to delete conversation", err)
	}
	if conv == nil {
		return nil, apperr.NotFound("Conversation not found")
	}
	s.log.Info().Str("conversation_id", id).Str("user_id", ownerID).Msg("conversation deleted")
	return conv, nil
}

type searchInput struct {
	OwnerID string `validate:"required"`
	Query   string `validate:"required"`
}

// SearchMessages matches query case-insensitively against the owner's messages, newest first.
// limit is capped at MaxSearchResults.
func (s *Service) SearchMessages(ctx context.Context, ownerID, query string, limit int) ([]*models.Message, error) {
	query = strings.TrimSpace(query)
	if err := s.validate.Struct(searchInput{OwnerID: ownerID, Query: query}); err != nil {
		return nil, validationError(err)
	}
	if limit <= 0 || limit > MaxSearchResults {
		limit = MaxSearchResults
	}
	msgs, err := s.messages.Search(ctx, ownerID, query, limit)
	if err != nil {
		return nil, apperr.Persistence("failed to search messages", err)
	}
	return msgs, nil
}

func (s *Service) Stats(ctx context.Context, ownerID string) (*Stats, error) {
	convs, err := s.conversations.CountOwned(ctx, ownerID)
	if err != nil {
		return nil, apperr.Persistence("failed to count conversations", err)
	}
	msgs, err := s.messages.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Persistence("failed to count messages", err)
	}
	return &Stats{TotalConversations: convs, TotalMessages: msgs}, nil
}

func (s *Service) owned(ctx context.Context, ownerID, id string) (*models.Conversation, error) {
	if ownerID == "" {
		return nil, apperr.Validation("User ID is required")
	}
	if id == "" {
		return nil, apperr.Validation("Conversation ID is required")
	}
	conv, err := s.conversations.FindOwned(ctx, id, ownerID)
	if err != nil {
		return nil, apperr.Persistence("failed to load conversation", err)
	}
	if conv == nil {
		return nil, apperr.NotFound("Conversation not found")
	}
	return conv, nil
}
