package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fleetradar/fleetradar-backend/internal/auth"
	"github.com/fleetradar/fleetradar-backend/internal/config"
	"github.com/fleetradar/fleetradar-backend/internal/db"
	"github.com/fleetradar/fleetradar-backend/internal/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testRouter(t *testing.T) (http.Handler, *auth.TokenIssuer) {
	t.Helper()

	cfg := &config.Config{
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:8000"}},
		Telemetry: config.TelemetryConfig{
			CacheCapacity: 16,
			CacheTTL:      time.Minute,
			StoreTimeout:  time.Second,
		},
	}

	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	svc := telemetry.NewService(&stubStore{}, &stubBindings{}, stubPublisher{}, &stubSender{}, cfg, zap.NewNop())
	h := &Handlers{telemetry: svc, validate: validator.New(), logger: zap.NewNop()}

	return NewRouter(cfg, tokens, h, zap.NewNop()), tokens
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	router, _ := testRouter(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/vehicles/"},
		{http.MethodGet, "/api/notecard/data/dev1"},
		{http.MethodPost, "/api/notecard/command/dev1"},
	}

	for _, route := range routes {
		req := httptest.NewRequest(route.method, route.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401 without a token, got %d", route.method, route.path, rec.Code)
		}
	}
}

func TestRouter_InvalidTokenRejected(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/notecard/data/dev1", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a garbage token, got %d", rec.Code)
	}
}

func TestRouter_ValidTokenPassesMiddleware(t *testing.T) {
	router, tokens := testRouter(t)

	token, err := tokens.Issue(&db.User{
		ID:    uuid.New(),
		Kind:  db.UserKindPersonal,
		Email: "driver@example.com",
	})
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/notecard/data/dev1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// No data ingested, so the handler itself answers 404. The point is
	// that the request made it past the auth middleware.
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 from the handler, got %d", rec.Code)
	}
}

func TestRouter_WebhookOpen(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/notecard/webhook", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from the unauthenticated webhook, got %d", rec.Code)
	}
}

func TestRouter_Healthz(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from healthz, got %d", rec.Code)
	}
}
