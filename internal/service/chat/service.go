// Package chat runs the message exchange pipeline and the conversation operations around it.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"nixbot/internal/apperr"
	"nixbot/internal/lock"
	"nixbot/internal/metrics"
	"nixbot/internal/models"
	"nixbot/internal/service/ai"
	"nixbot/internal/storage"
)

const (
	DefaultHistoryLimit = 20
	MaxSearchResults    = 50
)

type ConversationStore interface {
	Create(ctx context.Context, userID, title string) (*models.Conversation, error)
	FindOwned(ctx context.Context, id, userID string) (*models.Conversation, error)
	ListOwned(ctx context.Context, userID string, activeOnly bool) ([]*models.Conversation, error)
	RecordExchange(ctx context.Context, id, userID string, ex models.Exchange) (*models.Conversation, error)
	Rename(ctx context.Context, id, userID, title string) (*models.Conversation, error)
	SoftDelete(ctx context.Context, id, userID string) (*models.Conversation, error)
	CountOwned(ctx context.Context, userID string) (int, error)
}

type MessageStore interface {
	Append(ctx context.Context, conversationID string, role models.Role, content string, meta *models.MessageMetadata) (*models.Message, error)
	ListByConversation(ctx context.Context, conversationID string, limit int, order storage.Order) ([]*models.Message, error)
	Recent(ctx context.Context, conversationID string, k int) ([]*models.Message, error)
	CountByOwner(ctx context.Context, userID string) (int, error)
	Search(ctx context.Context, userID, query string, limit int) ([]*models.Message, error)
}

type Options struct {
	// Locker serializes sends per conversation. Defaults to an in-process lock.
	Locker       lock.Locker
	HistoryLimit int
	Logger       zerolog.Logger
}

type Service struct {
	conversations ConversationStore
	messages      MessageStore
	provider      ai.Provider
	locker        lock.Locker
	log           zerolog.Logger
	validate      *validator.Validate
	historyLimit  int
}

func NewService(conversations ConversationStore, messages MessageStore, provider ai.Provider, opts Options) *Service {
	if opts.Locker == nil {
		opts.Locker = lock.NewLocal()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	return &Service{
		conversations: conversations,
		messages:      messages,
		provider:      provider,
		locker:        opts.Locker,
		log:           opts.Logger.With().Str("component", "chat").Logger(),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		historyLimit:  opts.HistoryLimit,
	}
}

// Exchange is the result of one successful send.
type Exchange struct {
	UserMessage  *models.Message
	AIMessage    *models.Message
	Conversation *models.Conversation
}

type sendInput struct {
	OwnerID        string `validate:"required"`
	ConversationID string `validate:"required"`
	Content        string `validate:"required,max=10000"`
}

// SendMessage stores the user's message, asks the provider for a reply and stores that too.
// Provider failures are answered by the fallback responder and never reach the caller.
// Content is validated trimmed and stored as sent.
func (s *Service) SendMessage(ctx context.Context, ownerID, conversationID, content string) (*Exchange, error) {
	if err := s.validate.Struct(sendInput{
		OwnerID:        ownerID,
		ConversationID: conversationID,
		Content:        strings.TrimSpace(content),
	}); err != nil {
		return nil, validationError(err)
	}

	conv, err := s.owned(ctx, ownerID, conversationID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("lock conversation %s: %w", conv.ID, err)
	}
	defer unlock()

	userMsg, err := s.messages.Append(ctx, conv.ID, models.RoleUser, content, nil)
	if err != nil {
		return nil, apperr.Persistence("failed to save message", err)
	}

	history, err := s.messages.Recent(ctx, conv.ID, s.historyLimit)
	if err != nil {
		return nil, apperr.Persistence("failed to load history", err)
	}

	start := time.Now()
	reply, genErr := s.provider.Generate(ctx, ai.Request{History: history, Prompt: content})
	if genErr == nil && (reply == nil || strings.TrimSpace(reply.Content) == "") {
		genErr = apperr.Provider("provider returned an empty reply", nil)
	}
	meta := &models.MessageMetadata{}
	if genErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.log.Warn().Err(genErr).
			Str("provider", s.provider.Name()).
			Str("conversation_id", conv.ID).
			Str("code", string(apperr.CodeOf(genErr))).
			Msg("ai provider failed, using fallback reply")
		fb := ai.Fallback(content)
		reply = &fb
		meta.Error = genErr.Error()
	}
	latency := time.Since(start)
	meta.Model = reply.Model
	meta.Tokens = reply.Tokens
	meta.Latency = latency.Milliseconds()

	aiMsg, err := s.messages.Append(ctx, conv.ID, models.RoleAssistant, reply.Content, meta)
	if err != nil {
		return nil, apperr.Persistence("failed to save reply", err)
	}

	conv, err = s.conversations.RecordExchange(ctx, conv.ID, ownerID, models.NewExchange(content, reply.Content, aiMsg.CreatedAt))
	if err != nil {
		return nil, apperr.Persistence("failed to update conversation", err)
	}

	metrics.RecordExchange(s.provider.Name(), reply.Model, reply.Tokens, latency, genErr != nil)
	s.log.Debug().
		Str("conversation_id", conv.ID).
		Str("model", reply.Model).
		Int("tokens", reply.Tokens).
		Dur("latency", latency).
		Msg("exchange stored")

	return &Exchange{UserMessage: userMsg, AIMessage: aiMsg, Conversation: conv}, nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Wrap(apperr.CodeValidation, "invalid input", err)
	}
	fe := fieldErrs[0]
	var msg string
	switch fe.Field() {
	case "Content":
		if fe.Tag() == "max" {
			msg = fmt.Sprintf("Message cannot exceed %d characters", models.MaxMessageLength)
		} else {
			msg = "Message content is required"
		}
	case "ConversationID":
		msg = "Conversation ID is required"
	case "OwnerID":
		msg = "User ID is required"
	case "Title":
		if fe.Tag() == "max" {
			msg = fmt.Sprintf("Title cannot exceed %d characters", models.MaxTitleLength)
		} else {
			msg = "Title is required"
		}
	case "Query":
		msg = "Search query is required"
	default:
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return apperr.Wrap(apperr.CodeValidation, msg, err)
}
