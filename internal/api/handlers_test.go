package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"nixbot/internal/auth"
	"nixbot/internal/config"
	"nixbot/internal/models"
	"nixbot/internal/service/ai"
	"nixbot/internal/service/chat"
	"nixbot/internal/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func TestHandlersEndToEndFlow(t *testing.T) {
	router := newTestServer(t)
	authHeader := registerAndLogin(t, router, "bob")

	// Create a conversation.
	createResp := doJSONRequest(t, router, http.MethodPost, "/api/conversations", map[string]string{}, authHeader)
	assertStatus(t, createResp, http.StatusCreated)
	var created struct {
		Conversation models.Conversation `json:"conversation"`
	}
	decodeData(t, createResp, &created)
	if created.Conversation.ID == "" || created.Conversation.Title != models.DefaultConversationTitle {
		t.Fatalf("unexpected conversation %+v", created.Conversation)
	}
	convID := created.Conversation.ID

	// Send the first message.
	sendResp := doJSONRequest(t, router, http.MethodPost, "/api/chat/message", map[string]string{
		"conversationId": convID,
		"content":        "Hi, can you help with Python?",
	}, authHeader)
	assertStatus(t, sendResp, http.StatusOK)
	env := decodeEnvelope(t, sendResp)
	if !env.Success || env.Message != "Message sent successfully" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	var sent struct {
		UserMessage models.Message `json:"userMessage"`
		AIMessage   models.Message `json:"aiMessage"`
	}
	decodeJSON(t, env.Data, &sent)
	if sent.UserMessage.Role != models.RoleUser || sent.UserMessage.Content != "Hi, can you help with Python?" {
		t.Fatalf("unexpected user message %+v", sent.UserMessage)
	}
	if sent.AIMessage.Role != models.RoleAssistant || sent.AIMessage.Content != ai.Fallback("hi").Content {
		t.Fatalf("unexpected ai message %+v", sent.AIMessage)
	}
	if sent.AIMessage.Metadata == nil || sent.AIMessage.Metadata.Model != ai.MockModel {
		t.Fatalf("expected mock metadata, got %+v", sent.AIMessage.Metadata)
	}

	// Messages come back oldest first.
	msgsResp := doJSONRequest(t, router, http.MethodGet, "/api/chat/messages/"+convID, nil, authHeader)
	assertStatus(t, msgsResp, http.StatusOK)
	var listed struct {
		Messages []models.Message `json:"messages"`
	}
	decodeData(t, msgsResp, &listed)
	if len(listed.Messages) != 2 || listed.Messages[0].ID != sent.UserMessage.ID || listed.Messages[1].ID != sent.AIMessage.ID {
		t.Fatalf("unexpected message order %+v", listed.Messages)
	}

	// Sidebar summary reflects the exchange.
	sumResp := doJSONRequest(t, router, http.MethodGet, "/api/chat/conversations", nil, authHeader)
	assertStatus(t, sumResp, http.StatusOK)
	var summaries []conversationSummary
	decodeData(t, sumResp, &summaries)
	if len(summaries) != 1 {
		t.Fatalf("expected one conversation, got %d", len(summaries))
	}
	if summaries[0].Title != "Hi, can you help with Python?" || summaries[0].Metadata.MessageCount != 2 {
		t.Fatalf("unexpected summary %+v", summaries[0])
	}
	if summaries[0].LastMessage != models.Truncate(sent.AIMessage.Content, models.PreviewLength) {
		t.Fatalf("unexpected preview %q", summaries[0].LastMessage)
	}

	// Search finds the user's message.
	searchResp := doJSONRequest(t, router, http.MethodGet, "/api/chat/search?q=python", nil, authHeader)
	assertStatus(t, searchResp, http.StatusOK)
	var found struct {
		Messages []models.Message `json:"messages"`
	}
	decodeData(t, searchResp, &found)
	if len(found.Messages) != 1 || found.Messages[0].ID != sent.UserMessage.ID {
		t.Fatalf("unexpected search result %+v", found.Messages)
	}

	// Profile stats.
	profileResp := doJSONRequest(t, router, http.MethodGet, "/api/users/profile", nil, authHeader)
	assertStatus(t, profileResp, http.StatusOK)
	var profile struct {
		User  models.User      `json:"user"`
		Stats models.UserStats `json:"stats"`
	}
	decodeData(t, profileResp, &profile)
	if profile.User.Username != "bob" || profile.Stats.TotalConversations != 1 || profile.Stats.TotalMessages != 2 {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if strings.Contains(profileResp.Body.String(), "password") {
		t.Fatalf("profile must not expose the password hash")
	}
}

func TestHandlersConversationLifecycle(t *testing.T) {
	router := newTestServer(t)
	authHeader := registerAndLogin(t, router, "carol")

	createResp := doJSONRequest(t, router, http.MethodPost, "/api/conversations", map[string]string{"title": "Trip"}, authHeader)
	assertStatus(t, createResp, http.StatusCreated)
	var created struct {
		Conversation models.Conversation `json:"conversation"`
	}
	decodeData(t, createResp, &created)
	convPath := "/api/conversations/" + created.Conversation.ID

	renameResp := doJSONRequest(t, router, http.MethodPut, convPath, map[string]string{"title": "Trip to Lisbon"}, authHeader)
	assertStatus(t, renameResp, http.StatusOK)

	emptyTitle := doJSONRequest(t, router, http.MethodPut, convPath, map[string]string{"title": ""}, authHeader)
	assertStatus(t, emptyTitle, http.StatusBadRequest)

	getResp := doJSONRequest(t, router, http.MethodGet, convPath, nil, authHeader)
	assertStatus(t, getResp, http.StatusOK)
	var detail chat.ConversationDetail
	decodeData(t, getResp, &detail)
	if detail.Conversation.Title != "Trip to Lisbon" || len(detail.Messages) != 0 {
		t.Fatalf("unexpected detail %+v", detail)
	}

	delResp := doJSONRequest(t, router, http.MethodDelete, convPath, nil, authHeader)
	assertStatus(t, delResp, http.StatusOK)

	listResp := doJSONRequest(t, router, http.MethodGet, "/api/conversations", nil, authHeader)
	assertStatus(t, listResp, http.StatusOK)
	var active struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	decodeData(t, listResp, &active)
	if len(active.Conversations) != 0 {
		t.Fatalf("deleted conversation must not be listed, got %d", len(active.Conversations))
	}

	// The sidebar keeps inactive conversations and the messages stay readable.
	sumResp := doJSONRequest(t, router, http.MethodGet, "/api/chat/conversations", nil, authHeader)
	var summaries []conversationSummary
	decodeData(t, sumResp, &summaries)
	if len(summaries) != 1 {
		t.Fatalf("expected inactive conversation in summaries, got %d", len(summaries))
	}
	msgsResp := doJSONRequest(t, router, http.MethodGet, "/api/chat/messages/"+created.Conversation.ID, nil, authHeader)
	assertStatus(t, msgsResp, http.StatusOK)
}

func TestHandlersErrorMapping(t *testing.T) {
	router := newTestServer(t)
	alice := registerAndLogin(t, router, "alice")
	mallory := registerAndLogin(t, router, "mallory")

	createResp := doJSONRequest(t, router, http.MethodPost, "/api/conversations", nil, alice)
	assertStatus(t, createResp, http.StatusCreated)
	var created struct {
		Conversation models.Conversation `json:"conversation"`
	}
	decodeData(t, createResp, &created)

	// Another user's conversation looks missing.
	stolen := doJSONRequest(t, router, http.MethodPost, "/api/chat/message", map[string]string{
		"conversationId": created.Conversation.ID,
		"content":        "hello",
	}, mallory)
	assertStatus(t, stolen, http.StatusNotFound)
	if env := decodeEnvelope(t, stolen); env.Success || env.Message != "Conversation not found" {
		t.Fatalf("unexpected envelope %+v", env)
	}

	empty := doJSONRequest(t, router, http.MethodPost, "/api/chat/message", map[string]string{
		"conversationId": created.Conversation.ID,
		"content":        "   ",
	}, alice)
	assertStatus(t, empty, http.StatusBadRequest)

	tooLong := doJSONRequest(t, router, http.MethodPost, "/api/chat/message", map[string]string{
		"conversationId": created.Conversation.ID,
		"content":        strings.Repeat("a", models.MaxMessageLength+1),
	}, alice)
	assertStatus(t, tooLong, http.StatusBadRequest)

	malformed := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader("{"))
	malformed.Header.Set("Content-Type", "application/json")
	malformed.Header.Set("Authorization", alice["Authorization"])
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, malformed)
	assertStatus(t, rec, http.StatusBadRequest)

	noAuth := doJSONRequest(t, router, http.MethodGet, "/api/chat/conversations", nil, nil)
	assertStatus(t, noAuth, http.StatusUnauthorized)

	dup := doJSONRequest(t, router, http.MethodPost, "/api/users/register", map[string]string{
		"username": "alice",
		"password": "whatever1",
	}, nil)
	assertStatus(t, dup, http.StatusConflict)

	badLogin := doJSONRequest(t, router, http.MethodPost, "/api/users/login", map[string]string{
		"username": "alice",
		"password": "nope-nope",
	}, nil)
	assertStatus(t, badLogin, http.StatusUnauthorized)

	missingQuery := doJSONRequest(t, router, http.MethodGet, "/api/chat/search?q=", nil, alice)
	assertStatus(t, missingQuery, http.StatusBadRequest)
}

func TestHandlersLogoutRevokesToken(t *testing.T) {
	router := newTestServer(t)
	authHeader := registerAndLogin(t, router, "dave")

	logout := doJSONRequest(t, router, http.MethodPost, "/api/users/logout", nil, authHeader)
	assertStatus(t, logout, http.StatusOK)

	after := doJSONRequest(t, router, http.MethodGet, "/api/users/profile", nil, authHeader)
	assertStatus(t, after, http.StatusUnauthorized)
}

func TestHealth(t *testing.T) {
	router := newTestServer(t)
	resp := doJSONRequest(t, router, http.MethodGet, "/api/health", nil, nil)
	assertStatus(t, resp, http.StatusOK)
	env := decodeEnvelope(t, resp)
	if !env.Success || env.Message != "NixBot API is running" {
		t.Fatalf("unexpected health response %s", resp.Body.String())
	}
}

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.Open("sqlite3", &config.Config{
		Databases: map[string]config.DatabaseConfig{"sqlite3": {DSN: ":memory:"}},
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	chatSvc := chat.NewService(storage.NewConversationStore(db), storage.NewMessageStore(db), ai.MockProvider{}, chat.Options{Logger: log})
	authSvc := auth.NewService(storage.NewUserStore(db), nil, "test-secret", time.Hour)
	handler := NewHandler(chatSvc, authSvc, log)

	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func doJSONRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	decodeJSON(t, rec.Body.Bytes(), &env)
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success envelope, got %s", rec.Body.String())
	}
	decodeJSON(t, env.Data, v)
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("unexpected status %d, body: %s", rec.Code, rec.Body.String())
	}
}

func registerAndLogin(t *testing.T, router *gin.Engine, username string) map[string]string {
	t.Helper()
	password := "pass123"
	regResp := doJSONRequest(t, router, http.MethodPost, "/api/users/register", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	assertStatus(t, regResp, http.StatusCreated)

	loginResp := doJSONRequest(t, router, http.MethodPost, "/api/users/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	assertStatus(t, loginResp, http.StatusOK)
	var loginBody struct {
		Token string `json:"token"`
	}
	decodeData(t, loginResp, &loginBody)
	if loginBody.Token == "" {
		t.Fatalf("expected auth token after login")
	}
	return map[string]string{"Authorization": fmt.Sprintf("Bearer %s", loginBody.Token)}
}
