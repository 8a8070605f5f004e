package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fleetradar/fleetradar-backend/internal/auth"
	"github.com/fleetradar/fleetradar-backend/internal/db"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type vehicleRequest struct {
	Name string `json:"name" validate:"required"`
}

type bindDeviceRequest struct {
	DeviceID string `json:"deviceId" validate:"required"`
}

type vehicleResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type trackingRecordResponse struct {
	ID             string    `json:"id"`
	VehicleID      string    `json:"vehicleId"`
	Latitude       *float64  `json:"latitude"`
	Longitude      *float64  `json:"longitude"`
	Speed          *float64  `json:"speed"`
	Altitude       *float64  `json:"altitude"`
	BatteryLevel   *float64  `json:"batteryLevel"`
	SignalStrength *string   `json:"signalStrength"`
	Temperature    *float64  `json:"temperature"`
	RecordedAt     time.Time `json:"recordedAt"`
}

func toVehicleResponse(v db.Vehicle) vehicleResponse {
	return vehicleResponse{
		ID:        v.ID.String(),
		Name:      v.Name,
		CreatedAt: v.CreatedAt,
	}
}

func toTrackingResponses(records []db.TrackingRecord) []trackingRecordResponse {
	out := make([]trackingRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, trackingRecordResponse{
			ID:             rec.ID.String(),
			VehicleID:      rec.VehicleID.String(),
			Latitude:       rec.Latitude,
			Longitude:      rec.Longitude,
			Speed:          rec.Speed,
			Altitude:       rec.Altitude,
			BatteryLevel:   rec.BatteryLevel,
			SignalStrength: rec.SignalStrength,
			Temperature:    rec.Temperature,
			RecordedAt:     rec.RecordedAt,
		})
	}
	return out
}

func (h *Handlers) addVehicle(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req vehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.vehicles.AddVehicle(r.Context(), principal.UserID, req.Name)
	if err != nil {
		h.logger.Error("failed to create vehicle", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, toVehicleResponse(*created))
}

func (h *Handlers) listVehicles(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	vehicles, err := h.vehicles.UserVehicles(r.Context(), principal.UserID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list vehicles", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]vehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, toVehicleResponse(v))
	}

	writeJSON(w, h.logger, http.StatusOK, out)
}

func (h *Handlers) getVehicle(w http.ResponseWriter, r *http.Request) {
	principal, vehicleID, ok := h.vehicleRequestContext(w, r)
	if !ok {
		return
	}

	vehicle, err := h.vehicles.GetVehicle(r.Context(), vehicleID, principal.UserID)
	if err != nil {
		h.writeVehicleError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toVehicleResponse(*vehicle))
}

func (h *Handlers) deleteVehicle(w http.ResponseWriter, r *http.Request) {
	principal, vehicleID, ok := h.vehicleRequestContext(w, r)
	if !ok {
		return
	}

	if err := h.vehicles.DeleteVehicle(r.Context(), vehicleID, principal.UserID); err != nil {
		h.writeVehicleError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusNoContent, nil)
}

func (h *Handlers) trackingHistory(w http.ResponseWriter, r *http.Request) {
	principal, vehicleID, ok := h.vehicleRequestContext(w, r)
	if !ok {
		return
	}

	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "start must be RFC3339")
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "end must be RFC3339")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	records, err := h.vehicles.TrackingHistory(r.Context(), vehicleID, principal.UserID, from, to, limit, offset)
	if err != nil {
		h.writeVehicleError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toTrackingResponses(records))
}

func (h *Handlers) recentTracking(w http.ResponseWriter, r *http.Request) {
	principal, vehicleID, ok := h.vehicleRequestContext(w, r)
	if !ok {
		return
	}

	since, err := time.Parse(time.RFC3339, r.URL.Query().Get("since"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "since must be RFC3339")
		return
	}

	records, err := h.vehicles.RecentTracking(r.Context(), vehicleID, principal.UserID, since)
	if err != nil {
		h.writeVehicleError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toTrackingResponses(records))
}

func (h *Handlers) latestTracking(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	idsParam := r.URL.Query().Get("vehicleIds")
	if idsParam == "" {
		writeError(w, h.logger, http.StatusBadRequest, "vehicleIds is required")
		return
	}

	var vehicleIDs []uuid.UUID
	for _, raw := range strings.Split(idsParam, ",") {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "invalid vehicle id: "+raw)
			return
		}
		vehicleIDs = append(vehicleIDs, id)
	}

	records, err := h.vehicles.LatestTracking(r.Context(), principal.UserID, vehicleIDs)
	if err != nil {
		h.logger.Error("failed to query latest tracking", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toTrackingResponses(records))
}

func (h *Handlers) bindDevice(w http.ResponseWriter, r *http.Request) {
	principal, vehicleID, ok := h.vehicleRequestContext(w, r)
	if !ok {
		return
	}

	var req bindDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.vehicles.BindDevice(r.Context(), principal.UserID, vehicleID, req.DeviceID); err != nil {
		h.writeVehicleError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusNoContent, nil)
}

func (h *Handlers) unbindDevice(w http.ResponseWriter, r *http.Request) {
	principal, vehicleID, ok := h.vehicleRequestContext(w, r)
	if !ok {
		return
	}

	deviceID := chi.URLParam(r, "deviceID")
	err := h.vehicles.UnbindDevice(r.Context(), principal.UserID, vehicleID, deviceID)
	if err != nil {
		if errors.Is(err, db.ErrNotBound) {
			writeError(w, h.logger, http.StatusNotFound, "device not bound")
			return
		}
		h.writeVehicleError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusNoContent, nil)
}

func (h *Handlers) vehicleRequestContext(w http.ResponseWriter, r *http.Request) (auth.Principal, uuid.UUID, bool) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return auth.Principal{}, uuid.Nil, false
	}

	vehicleID, err := uuid.Parse(chi.URLParam(r, "vehicleID"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid vehicle id")
		return auth.Principal{}, uuid.Nil, false
	}

	return principal, vehicleID, true
}

func (h *Handlers) writeVehicleError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "vehicle not found")
		return
	}
	h.logger.Error("vehicle operation failed", zap.Error(err))
	writeError(w, h.logger, http.StatusInternalServerError, "internal error")
}
