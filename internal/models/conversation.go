package models

import (
	"time"
	"unicode/utf8"
)

const (
	DefaultConversationTitle = "New Conversation"
	MaxTitleLength           = 100
	TitlePrefixLength        = 40
	PreviewLength            = 80
)

// Conversation groups the ordered messages of one owner.
type Conversation struct {
	ID          string               `json:"id"`
	UserID      string               `json:"userId"`
	Title       string               `json:"title"`
	IsActive    bool                 `json:"isActive"`
	Metadata    ConversationMetadata `json:"metadata"`
	LastMessage string               `json:"lastMessage,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

type ConversationMetadata struct {
	MessageCount  int        `json:"messageCount"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
}

// Exchange is the conversation bookkeeping of one stored user/assistant pair.
// Title only replaces a title that still has its default value.
type Exchange struct {
	Title       string
	LastMessage string
	At          time.Time
}

func NewExchange(userContent, reply string, at time.Time) Exchange {
	return Exchange{
		Title:       Truncate(userContent, TitlePrefixLength),
		LastMessage: Truncate(reply, PreviewLength),
		At:          at,
	}
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
