package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

type titleRequest struct {
	Title string `json:"title"`
}

func (h *Handler) createConversation(c *gin.Context) {
	userID, authorized := h.authorizedUserID(c)
	if !authorized {
		return
	}
	var req titleRequest
	// an empty body creates an untitled conversation
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badBody(c)
		return
	}
	conv, err := h.chat.CreateConversation(c.Request.Context(), userID, req.Title)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Conversation created", gin.H{"conversation": conv})
}

func (h *Handler) listConversations(c *gin.Context) {
	userID, authorized := h.authorizedUserID(c)
	if !authorized {
		return
	}
	convs, err := h.chat.ListConversations(c.Request.Context(), userID, true)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"conversations": convs})
}

func (h *Handler) getConversation(c *gin.Context) {
	userID, authorized := h.authorizedUserID(c)
	if !authorized {
		return
	}
	detail, err := h.chat.GetConversation(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", detail)
}

func (h *Handler) updateConversation(c *gin.Context) {
	userID, authorized := h.authorizedUserID(c)
	if !authorized {
		return
	}
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}
	conv, err := h.chat.RenameConversation(c.Request.Context(), userID, c.Param("id"), req.Title)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Conversation updated", gin.H{"conversation": conv})
}

func (h *Handler) deleteConversation(c *gin.Context) {
	userID, authorized := h.authorizedUserID(c)
	if !authorized {
		return
	}
	if _, err := h.chat.DeleteConversation(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Conversation deleted", nil)
}
