// Package ai produces assistant replies from a language model backend or the offline fallback.
package ai

import (
	"context"

	"nixbot/internal/models"
)

const (
	SystemPrompt = "You are NixBot, a helpful, friendly, and knowledgeable AI assistant. Provide clear, concise, and helpful responses."

	// HistoryTurns is how many prior messages a backend forwards to the model.
	HistoryTurns = 10
	Temperature  = float32(0.7)
	MaxTokens    = 1024
)

// Request is one generation: the conversation so far plus the new user text.
type Request struct {
	History []*models.Message
	Prompt  string
}

type Reply struct {
	Content string
	Tokens  int
	Model   string
}

// Provider is a reply generator. Implementations must be safe for concurrent use.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Reply, error)
	Name() string
}

type turn struct {
	Role    models.Role
	Content string
}

// buildTurns lays out the model input: system prompt, the last HistoryTurns messages, the prompt.
func buildTurns(req Request) []turn {
	history := req.History
	if len(history) > HistoryTurns {
		history = history[len(history)-HistoryTurns:]
	}
	turns := make([]turn, 0, len(history)+2)
	turns = append(turns, turn{Role: models.RoleSystem, Content: SystemPrompt})
	for _, msg := range history {
		if msg == nil {
			continue
		}
		role := models.RoleUser
		if msg.Role == models.RoleAssistant {
			role = models.RoleAssistant
		}
		turns = append(turns, turn{Role: role, Content: msg.Content})
	}
	turns = append(turns, turn{Role: models.RoleUser, Content: req.Prompt})
	return turns
}
