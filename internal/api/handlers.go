package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"nixbot/internal/apperr"
	"nixbot/internal/auth"
	"nixbot/internal/service/chat"
)

// Handler wires HTTP routes to the chat and auth services.
type Handler struct {
	chat *chat.Service
	auth *auth.Service
	log  zerolog.Logger
}

// NewHandler constructs a Handler instance.
func NewHandler(chatService *chat.Service, authService *auth.Service, log zerolog.Logger) *Handler {
	return &Handler{
		chat: chatService,
		auth: authService,
		log:  log.With().Str("component", "api").Logger(),
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/health", h.health)

	authMW := h.auth.Middleware()

	users := api.Group("/users")
	users.POST("/register", h.registerUser)
	users.POST("/login", h.loginUser)
	users.GET("/profile", authMW, h.getProfile)
	users.PUT("/profile", authMW, h.updateProfile)
	users.POST("/logout", authMW, h.logoutUser)

	chatRoutes := api.Group("/chat", authMW)
	chatRoutes.POST("/message", h.sendMessage)
	chatRoutes.GET("/messages/:conversationId", h.getMessages)
	chatRoutes.GET("/conversations", h.getConversationSummaries)
	chatRoutes.GET("/search", h.searchMessages)

	convs := api.Group("/conversations", authMW)
	convs.POST("", h.createConversation)
	convs.GET("", h.listConversations)
	convs.GET("/:id", h.getConversation)
	convs.PUT("/:id", h.updateConversation)
	convs.DELETE("/:id", h.deleteConversation)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "NixBot API is running",
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handler) authorizedUserID(c *gin.Context) (string, bool) {
	userID, found := auth.UserIDFromContext(c)
	if !found {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authorized"})
		return "", false
	}
	return userID, true
}

func ok(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// fail maps err to a status code. Internal errors are logged and answered generically.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	message := apperr.MessageOf(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
		message = "Internal server error"
	}
	c.JSON(status, gin.H{"success": false, "message": message})
}

func statusFor(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperr.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func badBody(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
}
