package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fleetradar/fleetradar-backend/internal/config"
	"github.com/fleetradar/fleetradar-backend/internal/db"
	"github.com/fleetradar/fleetradar-backend/internal/mq"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
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
}

type appendCall struct {
	vehicleID uuid.UUID
	record    *db.TrackingRecord
}

type fakeStore struct {
	mu       sync.Mutex
	appended []appendCall
	err      error
}

func (f *fakeStore) AppendTrackingRecord(_ context.Context, vehicleID uuid.UUID, record *db.TrackingRecord) (*db.TrackingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	stored := *record
	stored.ID = uuid.New()
	stored.VehicleID = vehicleID
	f.appended = append(f.appended, appendCall{vehicleID: vehicleID, record: record})
	return &stored, nil
}

type fakeBindings struct {
	bindings map[string]uuid.UUID
	err      error
}

func (f *fakeBindings) ResolveVehicleForDevice(_ context.Context, deviceID string) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	if vehicleID, ok := f.bindings[deviceID]; ok {
		return vehicleID, nil
	}
	return uuid.Nil, db.ErrNotBound
}

type fakePublisher struct {
	mu          sync.Mutex
	positions   []mq.PositionEvent
	deadLetters []mq.DeadLetterEvent
	err         error
}

func (f *fakePublisher) PublishPositionEvent(_ context.Context, event mq.PositionEvent, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.positions = append(f.positions, event)
	return nil
}

func (f *fakePublisher) PublishDeadLetter(_ context.Context, event mq.DeadLetterEvent, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deadLetters = append(f.deadLetters, event)
	return nil
}

type sentCommand struct {
	deviceID string
	command  string
}

type fakeSender struct {
	sent []sentCommand
	err  error
}

func (f *fakeSender) SendCommand(_ context.Context, deviceID, command string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentCommand{deviceID: deviceID, command: command})
	return nil
}

func newTestService(store *fakeStore, bindings *fakeBindings, publisher *fakePublisher, sender *fakeSender) *Service {
	return NewService(store, bindings, publisher, sender, testConfig(), zap.NewNop())
}

func TestIngest_BoundDevice_PersistsAndCaches(t *testing.T) {
	vehicleID := uuid.New()
	store := &fakeStore{}
	bindings := &fakeBindings{bindings: map[string]uuid.UUID{"dev1": vehicleID}}
	publisher := &fakePublisher{}
	svc := newTestService(store, bindings, publisher, &fakeSender{})

	result := svc.Ingest(context.Background(), []byte(`{"device": "dev1", "body": {"lat": 45.5, "lon": -73.6, "speed": 60}}`))

	if result.Outcome != OutcomeAccepted {
		t.Fatalf("Expected outcome accepted, got %s (err: %v)", result.Outcome, result.Err)
	}

	if len(store.appended) != 1 {
		t.Fatalf("Expected one persisted record, got %d", len(store.appended))
	}
	call := store.appended[0]
	if call.vehicleID != vehicleID {
		t.Errorf("Expected record persisted under vehicle %s, got %s", vehicleID, call.vehicleID)
	}
	if call.record.Latitude == nil || *call.record.Latitude != 45.5 {
		t.Errorf("Expected persisted latitude 45.5, got %v", call.record.Latitude)
	}
	if call.record.Longitude == nil || *call.record.Longitude != -73.6 {
		t.Errorf("Expected persisted longitude -73.6, got %v", call.record.Longitude)
	}
	if call.record.Speed == nil || *call.record.Speed != 60 {
		t.Errorf("Expected persisted speed 60, got %v", call.record.Speed)
	}
	if call.record.Altitude != nil || call.record.BatteryLevel != nil || call.record.SignalStrength != nil || call.record.Temperature != nil {
		t.Error("Expected absent telemetry fields to persist as unknown")
	}

	cached, found := svc.LastKnown("dev1")
	if !found {
		t.Fatal("Expected last-known record for dev1")
	}
	if cached.Latitude == nil || *cached.Latitude != 45.5 {
		t.Errorf("Expected cached latitude 45.5, got %v", cached.Latitude)
	}
	if cached.Speed == nil || *cached.Speed != 60 {
		t.Errorf("Expected cached speed 60, got %v", cached.Speed)
	}

	if len(publisher.positions) != 1 {
		t.Fatalf("Expected one position event, got %d", len(publisher.positions))
	}
	if publisher.positions[0].VehicleID != vehicleID.String() {
		t.Errorf("Expected event for vehicle %s, got %s", vehicleID, publisher.positions[0].VehicleID)
	}
}

func TestIngest_UnboundDevice_CacheOnly(t *testing.T) {
	store := &fakeStore{}
	bindings := &fakeBindings{}
	publisher := &fakePublisher{}
	svc := newTestService(store, bindings, publisher, &fakeSender{})

	result := svc.Ingest(context.Background(), []byte(`{"device": "dev1", "body": {"lat": 45.5, "lon": -73.6, "speed": 60}}`))

	if result.Outcome != OutcomeUnbound {
		t.Fatalf("Expected outcome unbound, got %s", result.Outcome)
	}
	if len(store.appended) != 0 {
		t.Errorf("Expected no persistence call for unbound device, got %d", len(store.appended))
	}

	cached, found := svc.LastKnown("dev1")
	if !found {
		t.Fatal("Expected unbound device report to be retained in cache")
	}
	if cached.Latitude == nil || *cached.Latitude != 45.5 {
		t.Errorf("Expected cached latitude 45.5, got %v", cached.Latitude)
	}

	if len(publisher.deadLetters) != 1 {
		t.Fatalf("Expected one dead-letter event, got %d", len(publisher.deadLetters))
	}
	if publisher.deadLetters[0].Reason != "unbound_device" {
		t.Errorf("Expected dead-letter reason 'unbound_device', got %q", publisher.deadLetters[0].Reason)
	}
}

func TestIngest_MalformedPayloadsAlwaysAccepted(t *testing.T) {
	payloads := [][]byte{
		[]byte(`garbage`),
		[]byte(`{"body": {"lat": 1.0}}`),
		[]byte(`{"device": "dev1"}`),
		[]byte(`{"device": "dev1", "body": {"lat": "not-a-number"}}`),
		nil,
	}

	svc := newTestService(&fakeStore{}, &fakeBindings{}, &fakePublisher{}, &fakeSender{})

	for _, payload := range payloads {
		result := svc.Ingest(context.Background(), payload)
		if result.Outcome != OutcomeMalformed {
			t.Errorf("Expected outcome malformed for %q, got %s", payload, result.Outcome)
		}
		if !errors.Is(result.Err, ErrMalformedPayload) {
			t.Errorf("Expected ErrMalformedPayload for %q, got %v", payload, result.Err)
		}
	}
}

func TestIngest_StoreFailureRetainsCache(t *testing.T) {
	vehicleID := uuid.New()
	store := &fakeStore{err: errors.New("connection reset")}
	bindings := &fakeBindings{bindings: map[string]uuid.UUID{"dev1": vehicleID}}
	publisher := &fakePublisher{}
	svc := newTestService(store, bindings, publisher, &fakeSender{})

	result := svc.Ingest(context.Background(), []byte(`{"device": "dev1", "body": {"lat": 45.5}}`))

	if result.Outcome != OutcomeStoreFailed {
		t.Fatalf("Expected outcome store_failed, got %s", result.Outcome)
	}
	if _, found := svc.LastKnown("dev1"); !found {
		t.Error("Expected record to stay in cache despite persistence failure")
	}
	if len(publisher.deadLetters) != 1 || publisher.deadLetters[0].Reason != "persistence_failed" {
		t.Errorf("Expected one dead-letter with reason 'persistence_failed', got %+v", publisher.deadLetters)
	}
}

func TestIngest_LastWriteWins(t *testing.T) {
	vehicleID := uuid.New()
	bindings := &fakeBindings{bindings: map[string]uuid.UUID{"dev1": vehicleID}}
	svc := newTestService(&fakeStore{}, bindings, &fakePublisher{}, &fakeSender{})

	svc.Ingest(context.Background(), []byte(`{"device": "dev1", "body": {"lat": 45.5, "speed": 60}}`))
	svc.Ingest(context.Background(), []byte(`{"device": "dev1", "body": {"lat": 46.0}}`))

	cached, found := svc.LastKnown("dev1")
	if !found {
		t.Fatal("Expected last-known record for dev1")
	}
	if cached.Latitude == nil || *cached.Latitude != 46.0 {
		t.Errorf("Expected latitude 46.0 from the second report, got %v", cached.Latitude)
	}
	if cached.Speed != nil {
		t.Errorf("Expected speed unknown after full replace, got %v", *cached.Speed)
	}
}

func TestIngest_PublisherFailureDoesNotChangeOutcome(t *testing.T) {
	vehicleID := uuid.New()
	bindings := &fakeBindings{bindings: map[string]uuid.UUID{"dev1": vehicleID}}
	publisher := &fakePublisher{err: errors.New("broker down")}
	svc := newTestService(&fakeStore{}, bindings, publisher, &fakeSender{})

	result := svc.Ingest(context.Background(), []byte(`{"device": "dev1", "body": {"lat": 45.5}}`))

	if result.Outcome != OutcomeAccepted {
		t.Errorf("Expected outcome accepted despite publish failure, got %s", result.Outcome)
	}
}

func TestDispatchCommand_EmptyCommandRejected(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(&fakeStore{}, &fakeBindings{}, &fakePublisher{}, sender)

	err := svc.DispatchCommand(context.Background(), "dev1", "")

	if !errors.Is(err, ErrInvalidCommand) {
		t.Errorf("Expected ErrInvalidCommand, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("Expected no outbound call for empty command, got %d", len(sender.sent))
	}
}

func TestDispatchCommand_Sent(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(&fakeStore{}, &fakeBindings{}, &fakePublisher{}, sender)

	if err := svc.DispatchCommand(context.Background(), "dev1", "reboot"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].deviceID != "dev1" || sender.sent[0].command != "reboot" {
		t.Errorf("Expected one call with device dev1 and command reboot, got %+v", sender.sent)
	}
}

func TestDispatchCommand_NetworkFailureSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("gateway unreachable")}
	svc := newTestService(&fakeStore{}, &fakeBindings{}, &fakePublisher{}, sender)

	if err := svc.DispatchCommand(context.Background(), "dev1", "reboot"); err != nil {
		t.Errorf("Expected network failure to be swallowed, got %v", err)
	}
}
