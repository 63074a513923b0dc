package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/cache"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/embedding"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/middleware"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/models"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/services"
	"github.com/priyanshu-1006/GDG-Edit-sub000/pkg/auth"
)

type stubResponder struct {
	mu       sync.Mutex
	calls    int
	err      error
	lastHist []models.HistoryTurn
}

func (r *stubResponder) Respond(_ context.Context, in services.ResponderInput) (*services.ResponderOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.lastHist = in.History
	if r.err != nil {
		return nil, r.err
	}
	return &services.ResponderOutput{
		Answer:  "answer to " + in.Message,
		Context: []models.ContextItem{{Title: "Events", Text: "DevFest in December", Score: 0.9}},
	}, nil
}

func (r *stubResponder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// trackingSessions counts session lookups made by the handler
type trackingSessions struct {
	services.SessionStore
	mu    sync.Mutex
	finds int
}

func (s *trackingSessions) FindOrCreate(ctx context.Context, sessionID, userID string, meta models.SessionMetadata) (*models.ConversationSession, error) {
	s.mu.Lock()
	s.finds++
	s.mu.Unlock()
	return s.SessionStore.FindOrCreate(ctx, sessionID, userID, meta)
}

func (s *trackingSessions) Finds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finds
}

type testEnv struct {
	app       *fiber.App
	responder *stubResponder
	sessions  *services.MemorySessionStore
	tracked   *trackingSessions
	jwtAuth   *auth.LocalJWTAuth
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	jwtAuth, err := auth.NewLocalJWTAuth("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("Failed to create auth: %v", err)
	}

	responder := &stubResponder{}
	sessions := services.NewMemorySessionStore(services.SessionStoreConfig{MaxMessages: 50, TTL: time.Hour}, nil)
	responses := middleware.NewResponseCache(cache.NewMemoryStore[models.CachedResponse](cache.Options{TTL: time.Hour, MaxEntries: 10}), nil)

	tracked := &trackingSessions{SessionStore: sessions}
	chat := NewChatHandler(tracked, responder, 10, nil)

	app := fiber.New()
	api := app.Group("/api", middleware.OptionalLocalAuthMiddleware(jwtAuth))
	api.Post("/chat", middleware.ChatInputValidator(1000), responses.Handler(), chat.Chat)
	api.Get("/chat/history/:sessionId", chat.History)
	api.Delete("/chat/history/:sessionId", chat.DeleteHistory)

	return &testEnv{app: app, responder: responder, sessions: sessions, tracked: tracked, jwtAuth: jwtAuth}
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp.StatusCode, out
}

func TestChatCreatesSession(t *testing.T) {
	env := setupTestApp(t)

	status, body := env.do(t, "POST", "/api/chat", `{"message": "When is DevFest?", "sessionId": "sess_new"}`, "")
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, body)
	}
	if body["success"] != true || body["cached"] != false {
		t.Errorf("Unexpected body: %v", body)
	}
	if body["response"] != "answer to When is DevFest?" {
		t.Errorf("Unexpected answer: %v", body["response"])
	}
	if body["sessionId"] != "sess_new" {
		t.Fatalf("Expected session id to be echoed, got %v", body["sessionId"])
	}

	session, err := env.sessions.Get(context.Background(), "sess_new")
	if err != nil {
		t.Fatalf("Expected session to be stored: %v", err)
	}
	if len(session.Messages) != 2 || session.Messages[0].Role != models.RoleUser || session.Messages[1].Role != models.RoleAssistant {
		t.Errorf("Expected user then assistant message, got %+v", session.Messages)
	}
}

func TestChatStatelessSameShapeOnHitAndMiss(t *testing.T) {
	env := setupTestApp(t)

	_, miss := env.do(t, "POST", "/api/chat", `{"message": "When is DevFest?"}`, "")
	_, hit := env.do(t, "POST", "/api/chat", `{"message": "when is devfest?"}`, "")

	if miss["cached"] != false || hit["cached"] != true {
		t.Fatalf("Expected miss then hit, got %v then %v", miss, hit)
	}
	for name, body := range map[string]map[string]interface{}{"miss": miss, "hit": hit} {
		if _, ok := body["sessionId"]; ok {
			t.Errorf("Expected no sessionId on %s, got %v", name, body["sessionId"])
		}
	}
	if env.tracked.Finds() != 0 {
		t.Errorf("Expected stateless questions not to touch the session store, got %d lookups", env.tracked.Finds())
	}
	if len(env.responder.lastHist) != 0 {
		t.Errorf("Expected no history for a stateless question, got %v", env.responder.lastHist)
	}
}

func TestChatPassesHistoryForSession(t *testing.T) {
	env := setupTestApp(t)

	for i := 0; i < 3; i++ {
		status, _ := env.do(t, "POST", "/api/chat", fmt.Sprintf(`{"message": "question %d", "sessionId": "sess_hist"}`, i), "")
		if status != fiber.StatusOK {
			t.Fatalf("Turn %d: expected 200, got %d", i, status)
		}
	}

	if env.responder.Calls() != 3 {
		t.Errorf("Expected every session turn to reach the responder, got %d", env.responder.Calls())
	}
	if len(env.responder.lastHist) != 4 {
		t.Errorf("Expected 4 prior turns on the third question, got %d", len(env.responder.lastHist))
	}
}

func TestChatStatelessRepeatIsCached(t *testing.T) {
	env := setupTestApp(t)

	env.do(t, "POST", "/api/chat", `{"message": "<script>x</script> hello {{evil}}"}`, "")
	_, body := env.do(t, "POST", "/api/chat", `{"message": "Hello"}`, "")

	if body["cached"] != true {
		t.Errorf("Expected cached response, got %v", body)
	}
	if env.responder.Calls() != 1 {
		t.Errorf("Expected one responder call, got %d", env.responder.Calls())
	}
}

func TestChatResponderFailure(t *testing.T) {
	env := setupTestApp(t)
	env.responder.err = errors.New("model unavailable")

	status, body := env.do(t, "POST", "/api/chat", `{"message": "events?"}`, "")
	if status != fiber.StatusBadGateway {
		t.Errorf("Expected 502, got %d", status)
	}
	if body["success"] != false {
		t.Errorf("Expected failure body, got %v", body)
	}

	env.responder.err = nil
	_, body = env.do(t, "POST", "/api/chat", `{"message": "events?"}`, "")
	if body["cached"] != false {
		t.Error("Expected failed response not to be cached")
	}
}

func TestChatHistory(t *testing.T) {
	env := setupTestApp(t)

	_, body := env.do(t, "POST", "/api/chat", `{"message": "Who leads the team?", "sessionId": "sess_abc"}`, "")
	if body["sessionId"] != "sess_abc" {
		t.Fatalf("Expected client session id to be kept, got %v", body["sessionId"])
	}

	status, history := env.do(t, "GET", "/api/chat/history/sess_abc", "", "")
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	messages, _ := history["messages"].([]interface{})
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	first, _ := messages[0].(map[string]interface{})
	if first["role"] != models.RoleUser || first["content"] != "Who leads the team?" {
		t.Errorf("Unexpected first message: %v", first)
	}
}

func TestChatHistoryNotFound(t *testing.T) {
	env := setupTestApp(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "Unknown session", path: "/api/chat/history/sess_missing", want: fiber.StatusNotFound},
		{name: "Invalid id", path: "/api/chat/history/bad.id", want: fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := env.do(t, "GET", tt.path, "", "")
			if status != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, status)
			}
		})
	}
}

func TestChatHistoryHiddenFromOtherUsers(t *testing.T) {
	env := setupTestApp(t)

	owner, _ := env.jwtAuth.GenerateAccessToken("member-1", "", "user")
	other, _ := env.jwtAuth.GenerateAccessToken("member-2", "", "user")

	env.do(t, "POST", "/api/chat", `{"message": "my certificate?", "sessionId": "sess_private"}`, owner)

	if status, _ := env.do(t, "GET", "/api/chat/history/sess_private", "", other); status != fiber.StatusNotFound {
		t.Errorf("Expected another user to get 404, got %d", status)
	}
	if status, _ := env.do(t, "GET", "/api/chat/history/sess_private", "", owner); status != fiber.StatusOK {
		t.Errorf("Expected owner to get 200, got %d", status)
	}
}

func TestDeleteHistory(t *testing.T) {
	env := setupTestApp(t)

	env.do(t, "POST", "/api/chat", `{"message": "hello", "sessionId": "sess_del"}`, "")

	if status, _ := env.do(t, "DELETE", "/api/chat/history/sess_del", "", ""); status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if status, _ := env.do(t, "GET", "/api/chat/history/sess_del", "", ""); status != fiber.StatusNotFound {
		t.Errorf("Expected deleted session to be gone, got %d", status)
	}
}

type vectorEmbedder struct{}

func (vectorEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func setupAdminApp(t *testing.T) (*fiber.App, *middleware.ResponseCache, *services.EmbeddingCache) {
	t.Helper()

	responses := middleware.NewResponseCache(cache.NewMemoryStore[models.CachedResponse](cache.Options{TTL: time.Hour, MaxEntries: 500}), nil)
	embeddings := services.NewEmbeddingCache(cache.NewMemoryStore[[]float32](cache.Options{TTL: 24 * time.Hour, MaxEntries: 1000}), nil)
	store := services.NewMemoryKnowledgeStore(nil)
	var provider embedding.Provider = embeddings.Provider(vectorEmbedder{})
	ingestion := services.NewIngestionService(store, provider, services.IngestionConfig{Workers: 2}, nil)

	app := fiber.New()
	cacheAdmin := NewCacheAdminHandler(responses, embeddings)
	knowledgeAdmin := NewKnowledgeHandler(ingestion, "")
	app.Get("/api/admin/cache/stats", cacheAdmin.Stats)
	app.Post("/api/admin/cache/clear", cacheAdmin.Clear)
	app.Post("/api/admin/knowledge/ingest", knowledgeAdmin.Ingest)
	app.Post("/api/admin/knowledge/cleanup", knowledgeAdmin.Cleanup)
	app.Get("/api/admin/knowledge/stats", knowledgeAdmin.Stats)

	return app, responses, embeddings
}

func request(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp.StatusCode, out
}

func TestCacheAdminStatsAndClear(t *testing.T) {
	app, _, embeddings := setupAdminApp(t)
	ctx := context.Background()

	if _, err := embeddings.GetEmbedding(ctx, "events", vectorEmbedder{}.Embed); err != nil {
		t.Fatalf("Failed to seed embedding cache: %v", err)
	}

	status, body := request(t, app, "GET", "/api/admin/cache/stats", "")
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	embeddingStats, _ := body["embeddingCache"].(map[string]interface{})
	if embeddingStats["size"] != float64(1) || embeddingStats["maxSize"] != float64(1000) || embeddingStats["ttlSeconds"] != float64(86400) {
		t.Errorf("Unexpected embedding stats: %v", embeddingStats)
	}
	responseStats, _ := body["responseCache"].(map[string]interface{})
	if responseStats["maxSize"] != float64(500) || responseStats["ttlSeconds"] != float64(3600) {
		t.Errorf("Unexpected response stats: %v", responseStats)
	}

	if status, _ := request(t, app, "POST", "/api/admin/cache/clear?target=bogus", ""); status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for unknown target, got %d", status)
	}

	if status, _ := request(t, app, "POST", "/api/admin/cache/clear?target=embedding", ""); status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	stats, _ := embeddings.Stats(ctx)
	if stats.Size != 0 {
		t.Errorf("Expected embedding cache to be empty, got %d", stats.Size)
	}
}

func TestKnowledgeIngestAndStats(t *testing.T) {
	app, _, _ := setupAdminApp(t)

	text := strings.Repeat("DevFest 2025 is our flagship event with talks on Android, Cloud and AI. ", 3)
	body := fmt.Sprintf(`{"documents": [{"title": "DevFest", "text": %q}, {"title": "DevFest copy", "text": %q}]}`, text, text)

	status, resp := request(t, app, "POST", "/api/admin/knowledge/ingest", body)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, resp)
	}
	report, _ := resp["report"].(map[string]interface{})
	if report["inserted"] != float64(1) || report["duplicates"] != float64(1) {
		t.Errorf("Expected one insert and one duplicate, got %v", report)
	}

	status, resp = request(t, app, "GET", "/api/admin/knowledge/stats", "")
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	stats, _ := resp["stats"].(map[string]interface{})
	if stats["total_chunks"] != float64(1) {
		t.Errorf("Expected 1 stored chunk, got %v", stats)
	}

	if status, _ := request(t, app, "POST", "/api/admin/knowledge/cleanup", ""); status != fiber.StatusOK {
		t.Errorf("Expected cleanup to succeed, got %d", status)
	}
}

func TestKnowledgeIngestRequiresSources(t *testing.T) {
	app, _, _ := setupAdminApp(t)

	if status, _ := request(t, app, "POST", "/api/admin/knowledge/ingest", `{}`); status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 without sources, got %d", status)
	}
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		deps   map[string]Pinger
		status int
		want   string
	}{
		{name: "All healthy", deps: map[string]Pinger{"mongodb": stubPinger{}, "redis": nil}, status: fiber.StatusOK, want: "healthy"},
		{name: "Redis down", deps: map[string]Pinger{"mongodb": stubPinger{}, "redis": stubPinger{err: errors.New("refused")}}, status: fiber.StatusServiceUnavailable, want: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/health", NewHealthHandler(tt.deps).Handle)

			status, body := request(t, app, "GET", "/health", "")
			if status != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, status)
			}
			if body["status"] != tt.want {
				t.Errorf("Expected status %q, got %v", tt.want, body["status"])
			}
		})
	}
}
