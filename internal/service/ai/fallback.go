package ai

import (
	"context"
	"strings"
)

const MockModel = "mock"

const (
	replyGreeting = "Hello! It's great to chat with you. How can I assist you today?"
	replyHelp     = "I can help you with various tasks like answering questions, providing information, brainstorming ideas, or just having a conversation. What would you like to explore?"
	replyCode     = "I'd be happy to help with coding! What programming language or concept would you like assistance with?"
	replyThanks   = "You're very welcome! Feel free to ask if you need anything else."
	replyWeather  = "I'm a text-based AI and don't have access to real-time weather data, but I'd be happy to help with other questions!"
	replyAbout    = "I'm NixBot, your personal AI assistant. I can help answer questions, provide information, assist with coding, brainstorm ideas, and have conversations on various topics!"
	replyDefault  = "That's interesting! I'm here to help. Could you tell me more about what you'd like to know or discuss?"
)

// fallbackRules are checked in order; the first rule with a matching keyword wins.
var fallbackRules = []struct {
	keywords []string
	reply    string
}{
	{[]string{"hello", "hi", "hey"}, replyGreeting},
	{[]string{"help"}, replyHelp},
	{[]string{"code", "program"}, replyCode},
	{[]string{"thank"}, replyThanks},
	{[]string{"weather"}, replyWeather},
	{[]string{"who are you", "what are you", "about you"}, replyAbout},
}

// Fallback picks a canned reply by keyword. Matching is substring based, so "this" counts as "hi".
func Fallback(text string) Reply {
	lower := strings.ToLower(text)
	content := replyDefault
	for _, rule := range fallbackRules {
		if containsAny(lower, rule.keywords) {
			content = rule.reply
			break
		}
	}
	return Reply{Content: content, Model: MockModel}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// MockProvider answers every request with Fallback.
type MockProvider struct{}

func (MockProvider) Name() string { return MockModel }

func (MockProvider) Generate(ctx context.Context, req Request) (*Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reply := Fallback(req.Prompt)
	return &reply, nil
}
