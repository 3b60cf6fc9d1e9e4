package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nixbot/internal/auth"
	"nixbot/internal/models"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}
	user, err := h.auth.Register(c.Request.Context(), req.Username, req.Password, req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	token, err := h.auth.IssueToken(user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "User registered successfully", gin.H{"user": user, "token": token})
}

func (h *Handler) loginUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}
	user, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	token, err := h.auth.IssueToken(user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Login successful", gin.H{"user": user, "token": token})
}

func (h *Handler) getProfile(c *gin.Context) {
	userID, authorized := h.authorizedUserID(c)
	if !authorized {
		return
	}
	ctx := c.Request.Context()
	user, err := h.auth.Profile(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	stats, err := h.chat.Stats(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{
		"user": user,
		"stats": models.UserStats{
			TotalConversations: stats.TotalConversations,
			TotalMessages:      stats.TotalMessages,
			MemberSince:        user.CreatedAt,
		},
	})
}

func (h *Handler) updateProfile(c *gin.Context) {
	userID, authorized := h.authorizedUserID(c)
	if !authorized {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}
	user, err := h.auth.UpdateProfile(c.Request.Context(), userID, req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Profile updated", gin.H{"user": user})
}

func (h *Handler) logoutUser(c *gin.Context) {
	if authToken, found := auth.AuthTokenFromContext(c); found {
		if err := h.auth.RevokeToken(c.Request.Context(), authToken); err != nil {
			h.fail(c, err)
			return
		}
	}
	ok(c, http.StatusOK, "Logged out", nil)
}
