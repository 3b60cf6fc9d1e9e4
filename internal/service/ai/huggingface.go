package ai

import (
	"context"

	goopenai "github.com/sashabaranov/go-openai"

	"nixbot/internal/apperr"
	"nixbot/internal/config"
	"nixbot/internal/models"
)

// compatProvider talks to any OpenAI compatible endpoint, the Hugging Face router by default.
type compatProvider struct {
	name   string
	model  string
	client *goopenai.Client
}

func newCompatProvider(name string, prov config.ProviderConfig) *compatProvider {
	cfg := goopenai.DefaultConfig(prov.APIKey)
	if prov.BaseURL != "" {
		cfg.BaseURL = prov.BaseURL
	}
	return &compatProvider{
		name:   name,
		model:  prov.Model,
		client: goopenai.NewClientWithConfig(cfg),
	}
}

func (p *compatProvider) Name() string { return p.name }

func (p *compatProvider) Generate(ctx context.Context, req Request) (*Reply, error) {
	turns := buildTurns(req)
	messages := make([]goopenai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		role := goopenai.ChatMessageRoleUser
		switch t.Role {
		case models.RoleSystem:
			role = goopenai.ChatMessageRoleSystem
		case models.RoleAssistant:
			role = goopenai.ChatMessageRoleAssistant
		}
		messages = append(messages, goopenai.ChatCompletionMessage{Role: role, Content: t.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	})
	if err != nil {
		return nil, apperr.Provider(p.name+" chat completion failed", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, apperr.Provider(p.name+" returned an empty reply", nil)
	}
	return &Reply{
		Content: resp.Choices[0].Message.Content,
		Tokens:  resp.Usage.TotalTokens,
		Model:   p.model,
	}, nil
}
