package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewExchangeTruncates(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	ex := NewExchange("Hi, can you help with Python?", strings.Repeat("r", 120), now)
	assert.Equal(t, "Hi, can you help with Python?", ex.Title)
	assert.Equal(t, strings.Repeat("r", PreviewLength), ex.LastMessage)
	assert.Equal(t, now, ex.At)

	ex = NewExchange(strings.Repeat("x", 60), "ok", now)
	assert.Equal(t, strings.Repeat("x", TitlePrefixLength), ex.Title)
	assert.Equal(t, "ok", ex.LastMessage)
}

func TestTruncateCountsCharacters(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo wörld", 5))
	assert.Equal(t, "short", Truncate("short", 40))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "日本語", Truncate("日本語のテキスト", 3))
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.True(t, RoleSystem.Valid())
	assert.False(t, Role("tool").Valid())
}
