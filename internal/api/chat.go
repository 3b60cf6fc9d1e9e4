package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"nixbot/internal/models"
)

type sendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

func (h *Handler) sendMessage(c *gin.Context) {
	userID, authorized := h.authorizedUserID(c)
	if !authorized {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}
	ex, err := h.chat.SendMessage(c.Request.Context(), userID, req.ConversationID, req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Message sent successfully", gin.H{
		"userMessage": ex.UserMessage,
		"aiMessage":   ex.AIMessage,
	})
}

func (h *Handler) getMessages(c *gin.Context) {
	userID, authorized := h.authorizedUserID(c)
	if !authorized {
		return
	}
	messages, err := h.chat.Messages(c.Request.Context(), userID, c.Param("conversationId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"messages": messages})
}

// conversationSummary is the sidebar projection of a conversation.
type conversationSummary struct {
	ID          string                      `json:"id"`
	Title       string                      `json:"title"`
	Metadata    models.ConversationMetadata `json:"metadata"`
	LastMessage string                      `json:"lastMessage"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

// getConversationSummaries lists every conversation of the user, inactive ones included.
func (h *Handler) getConversationSummaries(c *gin.Context) {
	userID, authorized := h.authorizedUserID(c)
	if !authorized {
		return
	}
	convs, err := h.chat.ListConversations(c.Request.Context(), userID, false)
	if err != nil {
		h.fail(c, err)
		return
	}
	summaries := make([]conversationSummary, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, conversationSummary{
			ID:          conv.ID,
			Title:       conv.Title,
			Metadata:    conv.Metadata,
			LastMessage: conv.LastMessage,
			UpdatedAt:   conv.UpdatedAt,
		})
	}
	ok(c, http.StatusOK, "", summaries)
}

func (h *Handler) searchMessages(c *gin.Context) {
	userID, authorized := h.authorizedUserID(c)
	if !authorized {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid limit"})
			return
		}
		limit = parsed
	}
	messages, err := h.chat.SearchMessages(c.Request.Context(), userID, c.Query("q"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"messages": messages})
}
