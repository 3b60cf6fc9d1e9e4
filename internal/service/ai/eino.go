package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"nixbot/internal/apperr"
	"nixbot/internal/config"
	"nixbot/internal/models"
)

// einoProvider drives any eino chat model with a single non-streaming Generate call.
type einoProvider struct {
	name  string
	model string
	chat  model.BaseChatModel
}

func newEinoProvider(ctx context.Context, name string, prov config.ProviderConfig) (*einoProvider, error) {
	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch name {
	case "openai", "groq":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: prov.BaseURL,
			Model:   prov.Model,
			APIKey:  prov.APIKey,
		})
	case "gemini":
		client, cerr := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  prov.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if cerr != nil {
			return nil, fmt.Errorf("create gemini client: %w", cerr)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  prov.Model,
		})
	case "claude":
		var baseURL *string
		if prov.BaseURL != "" {
			baseURL = &prov.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    prov.APIKey,
			Model:     prov.Model,
			BaseURL:   baseURL,
			MaxTokens: MaxTokens,
		})
	default:
		return nil, fmt.Errorf("invalid eino provider: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", name, err)
	}
	return &einoProvider{name: name, model: prov.Model, chat: chatModel}, nil
}

func (p *einoProvider) Name() string { return p.name }

func (p *einoProvider) Generate(ctx context.Context, req Request) (*Reply, error) {
	resp, err := p.chat.Generate(ctx, toEinoMessages(buildTurns(req)),
		model.WithTemperature(Temperature),
		model.WithMaxTokens(MaxTokens),
	)
	if err != nil {
		return nil, apperr.Provider(p.name+" generate failed", err)
	}
	if resp == nil || resp.Content == "" {
		return nil, apperr.Provider(p.name+" returned an empty reply", nil)
	}
	reply := &Reply{Content: resp.Content, Model: p.model}
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		reply.Tokens = resp.ResponseMeta.Usage.TotalTokens
	}
	return reply, nil
}

func toEinoMessages(turns []turn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		var role schema.RoleType
		switch t.Role {
		case models.RoleSystem:
			role = schema.System
		case models.RoleAssistant:
			role = schema.Assistant
		default:
			role = schema.User
		}
		messages = append(messages, &schema.Message{Role: role, Content: t.Content})
	}
	return messages
}
