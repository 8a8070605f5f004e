package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/fleetradar/fleetradar-backend/internal/config"
	"github.com/fleetradar/fleetradar-backend/internal/db"
	"github.com/fleetradar/fleetradar-backend/internal/logging"
	"github.com/fleetradar/fleetradar-backend/internal/metrics"
	"github.com/fleetradar/fleetradar-backend/internal/mq"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidCommand is returned when dispatching an empty command.
// Unlike ingest failures it is surfaced to the caller.
var ErrInvalidCommand = errors.New("command must not be empty")

// Outcome classifies what happened to an ingested payload. The webhook
// response is the same for all of them; outcomes feed metrics and tests.
type Outcome string

const (
	OutcomeAccepted    Outcome = "accepted"
	OutcomeMalformed   Outcome = "malformed"
	OutcomeUnbound     Outcome = "unbound"
	OutcomeStoreFailed Outcome = "store_failed"
)

// IngestResult is the typed outcome of one ingested payload
type IngestResult struct {
	Outcome  Outcome
	DeviceID string
	Record   *db.TrackingRecord
	Err      error
}

// TrackingStore persists position reports for a vehicle
type TrackingStore interface {
	AppendTrackingRecord(ctx context.Context, vehicleID uuid.UUID, record *db.TrackingRecord) (*db.TrackingRecord, error)
}

// BindingResolver maps a device identifier to the vehicle it is bound
// to. Returns db.ErrNotBound when no binding exists.
type BindingResolver interface {
	ResolveVehicleForDevice(ctx context.Context, deviceID string) (uuid.UUID, error)
}

// EventPublisher publishes tracking events to the broker
type EventPublisher interface {
	PublishPositionEvent(ctx context.Context, event mq.PositionEvent, routingKey string) error
	PublishDeadLetter(ctx context.Context, event mq.DeadLetterEvent, routingKey string) error
}

// CommandSender submits a command to a device over the gateway's cloud API
type CommandSender interface {
	SendCommand(ctx context.Context, deviceID, command string) error
}

// Service handles telemetry ingestion, the last-known position cache
// and outbound device commands.
type Service struct {
	store     TrackingStore
	bindings  BindingResolver
	publisher EventPublisher
	commands  CommandSender
	cache     *lastKnownCache
	cfg       *config.Config
	logger    *zap.Logger
}

// NewService creates a new telemetry service
func NewService(
	store TrackingStore,
	bindings BindingResolver,
	publisher EventPublisher,
	commands CommandSender,
	cfg *config.Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:     store,
		bindings:  bindings,
		publisher: publisher,
		commands:  commands,
		cache:     newLastKnownCache(cfg.Telemetry.CacheCapacity, cfg.Telemetry.CacheTTL),
		cfg:       cfg,
		logger:    logger,
	}
}

// Ingest processes one raw webhook payload: normalize, cache, resolve
// the owning vehicle, persist, publish. It never returns an error; the
// webhook must answer "accepted" no matter what happened internally, so
// the gateway does not retry. The typed result carries the real outcome.
func (s *Service) Ingest(ctx context.Context, payload []byte) IngestResult {
	receivedAt := time.Now().UTC()

	record, err := normalizeReport(payload, receivedAt)
	if err != nil {
		s.logger.Warn("discarding malformed webhook payload", zap.Error(err))
		return s.finish(IngestResult{Outcome: OutcomeMalformed, Err: err})
	}

	devLogger := logging.WithDevice(s.logger, record.DeviceID)

	// Cache before resolution: the last-known query must work even for
	// devices nobody has bound to a vehicle yet.
	s.cache.Put(record.DeviceID, record)
	metrics.LastKnownCacheEntries.Set(float64(s.cache.Len()))

	vehicleID, err := s.bindings.ResolveVehicleForDevice(ctx, record.DeviceID)
	if err != nil {
		if errors.Is(err, db.ErrNotBound) {
			devLogger.Info("no vehicle bound to device, report retained in cache only")
			s.deadLetter(ctx, record, "unbound_device")
			return s.finish(IngestResult{Outcome: OutcomeUnbound, DeviceID: record.DeviceID, Err: err})
		}
		devLogger.Error("device binding lookup failed", zap.Error(err))
		s.deadLetter(ctx, record, "binding_lookup_failed")
		return s.finish(IngestResult{Outcome: OutcomeStoreFailed, DeviceID: record.DeviceID, Err: err})
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.Telemetry.StoreTimeout)
	defer cancel()

	persisted, err := s.store.AppendTrackingRecord(storeCtx, vehicleID, record.trackingRecord())
	if err != nil {
		devLogger.Error("failed to persist tracking record",
			zap.Error(err),
			zap.String("vehicle_id", vehicleID.String()),
		)
		s.deadLetter(ctx, record, "persistence_failed")
		return s.finish(IngestResult{Outcome: OutcomeStoreFailed, DeviceID: record.DeviceID, Err: err})
	}

	s.publishPosition(ctx, record, persisted)

	devLogger.Info("tracking record ingested",
		zap.String("vehicle_id", vehicleID.String()),
		zap.String("record_id", persisted.ID.String()),
	)

	return s.finish(IngestResult{Outcome: OutcomeAccepted, DeviceID: record.DeviceID, Record: persisted})
}

// LastKnown returns the cached last-known record for a device. The
// second return value is false when no report has ever been ingested
// for it (or the entry expired); no defaults are fabricated.
func (s *Service) LastKnown(deviceID string) (Record, bool) {
	return s.cache.Get(deviceID)
}

// DispatchCommand submits a command to a device. An empty command is
// rejected with ErrInvalidCommand; network and gateway failures are
// logged and swallowed, matching the best-effort outbound policy.
func (s *Service) DispatchCommand(ctx context.Context, deviceID, command string) error {
	if command == "" {
		metrics.CommandDispatches.WithLabelValues("rejected").Inc()
		return ErrInvalidCommand
	}

	if err := s.commands.SendCommand(ctx, deviceID, command); err != nil {
		metrics.CommandDispatches.WithLabelValues("failed").Inc()
		logging.WithDevice(s.logger, deviceID).Error("failed to send command to device", zap.Error(err))
		return nil
	}

	metrics.CommandDispatches.WithLabelValues("sent").Inc()
	return nil
}

func (s *Service) finish(result IngestResult) IngestResult {
	metrics.IngestOutcomes.WithLabelValues(string(result.Outcome)).Inc()
	return result
}

func (s *Service) deadLetter(ctx context.Context, record Record, reason string) {
	event := mq.DeadLetterEvent{
		DeviceID:   record.DeviceID,
		Reason:     reason,
		ReceivedAt: record.ReceivedAt.Format(time.RFC3339),
	}

	if err := s.publisher.PublishDeadLetter(ctx, event, s.cfg.RabbitMQ.DeadLetterRoutingKey); err != nil {
		metrics.EventPublishErrors.Inc()
		s.logger.Error("failed to publish dead-letter event",
			zap.Error(err),
			zap.String("device_id", record.DeviceID),
			zap.String("reason", reason),
		)
	}
}

func (s *Service) publishPosition(ctx context.Context, record Record, persisted *db.TrackingRecord) {
	event := mq.PositionEvent{
		VehicleID:      persisted.VehicleID.String(),
		DeviceID:       record.DeviceID,
		Latitude:       persisted.Latitude,
		Longitude:      persisted.Longitude,
		Speed:          persisted.Speed,
		Altitude:       persisted.Altitude,
		BatteryLevel:   persisted.BatteryLevel,
		SignalStrength: persisted.SignalStrength,
		Temperature:    persisted.Temperature,
		RecordedAt:     persisted.RecordedAt.Format(time.RFC3339),
	}

	if err := s.publisher.PublishPositionEvent(ctx, event, s.cfg.RabbitMQ.AcceptedRoutingKey); err != nil {
		metrics.EventPublishErrors.Inc()
		s.logger.Error("failed to publish position event",
			zap.Error(err),
			zap.String("device_id", record.DeviceID),
		)
	}
}

// trackingRecord converts a normalized record to its persisted form.
// The vehicle ID is assigned by the store call.
func (r Record) trackingRecord() *db.TrackingRecord {
	return &db.TrackingRecord{
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		Speed:          r.Speed,
		Altitude:       r.Altitude,
		BatteryLevel:   r.BatteryLevel,
		SignalStrength: r.SignalStrength,
		Temperature:    r.Temperature,
		RecordedAt:     r.ReceivedAt,
	}
}
