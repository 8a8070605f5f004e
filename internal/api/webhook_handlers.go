package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fleetradar/fleetradar-backend/internal/metrics"
	"github.com/fleetradar/fleetradar-backend/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxWebhookBodyBytes = 64 * 1024

type commandRequest struct {
	Command string `json:"command"`
}

type lastKnownResponse struct {
	DeviceID       string    `json:"deviceId"`
	Latitude       *float64  `json:"latitude"`
	Longitude      *float64  `json:"longitude"`
	Speed          *float64  `json:"speed"`
	Altitude       *float64  `json:"altitude"`
	BatteryLevel   *float64  `json:"batteryLevel"`
	SignalStrength *string   `json:"signalStrength"`
	Temperature    *float64  `json:"temperature"`
	ReceivedAt     time.Time `json:"receivedAt"`
}

// webhook ingests a Notecard telemetry report. It always answers 200:
// the gateway must not retry, whatever happened internally. Real
// outcomes are visible in metrics and logs.
func (h *Handlers) webhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Warn("failed to read webhook body", zap.Error(err))
		metrics.IngestOutcomes.WithLabelValues(string(telemetry.OutcomeMalformed)).Inc()
		w.WriteHeader(http.StatusOK)
		return
	}

	h.telemetry.Ingest(r.Context(), payload)

	metrics.WebhookDuration.Observe(time.Since(start).Seconds())
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) lastKnownData(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	record, found := h.telemetry.LastKnown(deviceID)
	if !found {
		writeError(w, h.logger, http.StatusNotFound, "no data for device")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, lastKnownResponse{
		DeviceID:       record.DeviceID,
		Latitude:       record.Latitude,
		Longitude:      record.Longitude,
		Speed:          record.Speed,
		Altitude:       record.Altitude,
		BatteryLevel:   record.BatteryLevel,
		SignalStrength: record.SignalStrength,
		Temperature:    record.Temperature,
		ReceivedAt:     record.ReceivedAt,
	})
}

func (h *Handlers) sendCommand(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	var req commandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.telemetry.DispatchCommand(r.Context(), deviceID, req.Command); err != nil {
		if errors.Is(err, telemetry.ErrInvalidCommand) {
			writeError(w, h.logger, http.StatusBadRequest, "command must not be empty")
			return
		}
		h.logger.Error("command dispatch failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, h.logger, http.StatusAccepted, nil)
}
