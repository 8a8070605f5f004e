package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fleetradar/fleetradar-backend/internal/config"
	"github.com/fleetradar/fleetradar-backend/internal/db"
	"github.com/fleetradar/fleetradar-backend/internal/mq"
	"github.com/fleetradar/fleetradar-backend/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type stubStore struct {
	appended int
	err      error
}

func (s *stubStore) AppendTrackingRecord(_ context.Context, vehicleID uuid.UUID, record *db.TrackingRecord) (*db.TrackingRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.appended++
	stored := *record
	stored.ID = uuid.New()
	stored.VehicleID = vehicleID
	return &stored, nil
}

type stubBindings struct {
	bindings map[string]uuid.UUID
}

func (s *stubBindings) ResolveVehicleForDevice(_ context.Context, deviceID string) (uuid.UUID, error) {
	if vehicleID, ok := s.bindings[deviceID]; ok {
		return vehicleID, nil
	}
	return uuid.Nil, db.ErrNotBound
}

type stubPublisher struct{}

func (stubPublisher) PublishPositionEvent(context.Context, mq.PositionEvent, string) error { return nil }
func (stubPublisher) PublishDeadLetter(context.Context, mq.DeadLetterEvent, string) error  { return nil }

type stubSender struct {
	sent []string
}

func (s *stubSender) SendCommand(_ context.Context, deviceID, command string) error {
	s.sent = append(s.sent, deviceID+":"+command)
	return nil
}

func notecardTestRouter(store *stubStore, bindings *stubBindings, sender *stubSender) http.Handler {
	cfg := &config.Config{
		RabbitMQ: config.RabbitMQConfig{
			AcceptedRoutingKey:   "position.accepted",
			DeadLetterRoutingKey: "position.deadletter",
		},
		Telemetry: config.TelemetryConfig{
			CacheCapacity: 16,
			CacheTTL:      time.Minute,
			StoreTimeout:  time.Second,
		},
	}

	svc := telemetry.NewService(store, bindings, stubPublisher{}, sender, cfg, zap.NewNop())
	h := &Handlers{telemetry: svc, validate: validator.New(), logger: zap.NewNop()}

	r := chi.NewRouter()
	r.Post("/api/notecard/webhook", h.webhook)
	r.Get("/api/notecard/data/{deviceID}", h.lastKnownData)
	r.Post("/api/notecard/command/{deviceID}", h.sendCommand)
	return r
}

func TestWebhook_AlwaysAccepts(t *testing.T) {
	router := notecardTestRouter(&stubStore{}, &stubBindings{}, &stubSender{})

	payloads := []string{
		`{"device": "dev1", "body": {"lat": 45.5}}`, // valid but unbound
		`total garbage`,
		`{"body": {"lat": 1.0}}`, // missing device
		``,
	}

	for _, payload := range payloads {
		req := httptest.NewRequest(http.MethodPost, "/api/notecard/webhook", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200 for payload %q, got %d", payload, rec.Code)
		}
	}
}

func TestWebhook_ThenLastKnownData(t *testing.T) {
	store := &stubStore{}
	bindings := &stubBindings{bindings: map[string]uuid.UUID{"dev1": uuid.New()}}
	router := notecardTestRouter(store, bindings, &stubSender{})

	req := httptest.NewRequest(http.MethodPost, "/api/notecard/webhook",
		strings.NewReader(`{"device": "dev1", "body": {"lat": 45.5, "lon": -73.6, "speed": 60}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from webhook, got %d", rec.Code)
	}
	if store.appended != 1 {
		t.Fatalf("Expected one persisted record, got %d", store.appended)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/notecard/data/dev1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from data endpoint, got %d", rec.Code)
	}

	var body lastKnownResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Latitude == nil || *body.Latitude != 45.5 {
		t.Errorf("Expected latitude 45.5, got %v", body.Latitude)
	}
	if body.Longitude == nil || *body.Longitude != -73.6 {
		t.Errorf("Expected longitude -73.6, got %v", body.Longitude)
	}
	if body.Speed == nil || *body.Speed != 60 {
		t.Errorf("Expected speed 60, got %v", body.Speed)
	}
	if body.Altitude != nil || body.BatteryLevel != nil || body.SignalStrength != nil || body.Temperature != nil {
		t.Error("Expected absent input fields to stay null in the response")
	}
}

func TestLastKnownData_UnknownDevice(t *testing.T) {
	router := notecardTestRouter(&stubStore{}, &stubBindings{}, &stubSender{})

	req := httptest.NewRequest(http.MethodGet, "/api/notecard/data/never-seen", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a device with no ingested data, got %d", rec.Code)
	}
}

func TestSendCommand_EmptyCommandRejected(t *testing.T) {
	sender := &stubSender{}
	router := notecardTestRouter(&stubStore{}, &stubBindings{}, sender)

	req := httptest.NewRequest(http.MethodPost, "/api/notecard/command/dev1",
		strings.NewReader(`{"command": ""}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty command, got %d", rec.Code)
	}
	if len(sender.sent) != 0 {
		t.Errorf("Expected no outbound call for empty command, got %v", sender.sent)
	}
}

func TestSendCommand_Accepted(t *testing.T) {
	sender := &stubSender{}
	router := notecardTestRouter(&stubStore{}, &stubBindings{}, sender)

	req := httptest.NewRequest(http.MethodPost, "/api/notecard/command/dev1",
		strings.NewReader(`{"command": "reboot"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", rec.Code)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "dev1:reboot" {
		t.Errorf("Expected one call 'dev1:reboot', got %v", sender.sent)
	}
}
