package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"nixbot/internal/config"
)

type providerDefaults struct {
	baseURL string
	model   string
}

var defaults = map[string]providerDefaults{
	"groq":        {baseURL: "https://api.groq.com/openai/v1", model: "llama-3.3-70b-versatile"},
	"openai":      {model: "gpt-4o-mini"},
	"claude":      {model: "claude-3-5-haiku-latest"},
	"gemini":      {model: "gemini-1.5-flash-latest"},
	"huggingface": {baseURL: "https://router.huggingface.co/v1", model: "mistralai/Mixtral-8x7B-Instruct-v0.1"},
}

// New builds the configured backend. An empty or "mock" provider, or one without an
// api key, yields MockProvider. Unknown provider names are a configuration error.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	if name == "" || name == MockModel {
		log.Warn().Msg("no ai provider configured, using mock responses")
		return MockProvider{}, nil
	}
	def, known := defaults[name]
	if !known {
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}

	prov, _ := cfg.Provider(name)
	if prov.APIKey == "" {
		log.Warn().Str("provider", name).Msg("ai provider has no api key, using mock responses")
		return MockProvider{}, nil
	}
	if prov.BaseURL == "" {
		prov.BaseURL = def.baseURL
	}
	if prov.Model == "" {
		prov.Model = def.model
	}

	var (
		p   Provider
		err error
	)
	if name == "huggingface" {
		p = newCompatProvider(name, prov)
	} else {
		p, err = newEinoProvider(ctx, name, prov)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("provider", name).Str("model", prov.Model).Msg("ai provider configured")
	return p, nil
}
