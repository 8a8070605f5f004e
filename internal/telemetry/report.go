package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedPayload is returned by normalization when the webhook
// payload is missing required fields or a telemetry field has the
// wrong type.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// Report is the wire shape of a Notecard webhook payload. Numeric
// telemetry fields are optional: absence means "unknown", not zero.
type Report struct {
	Device string      `json:"device"`
	Body   *ReportBody `json:"body"`
}

// ReportBody carries the telemetry fields of a report
type ReportBody struct {
	Latitude       *float64 `json:"lat"`
	Longitude      *float64 `json:"lon"`
	Speed          *float64 `json:"speed"`
	Altitude       *float64 `json:"alt"`
	BatteryLevel   *float64 `json:"bat"`
	SignalStrength *string  `json:"sig"`
	Temperature    *float64 `json:"temp"`
}

// Record is the canonical, normalized form of a report. It is immutable
// after normalization; the server assigns ReceivedAt at ingestion time
// because the gateway protocol carries no timestamp.
type Record struct {
	DeviceID       string
	Latitude       *float64
	Longitude      *float64
	Speed          *float64
	Altitude       *float64
	BatteryLevel   *float64
	SignalStrength *string
	Temperature    *float64
	ReceivedAt     time.Time
}

// normalizeReport parses and validates a raw webhook payload into a
// Record. Unknown fields in the body are ignored; a missing device or
// body, or a telemetry field of the wrong type, is a malformed payload.
func normalizeReport(payload []byte, receivedAt time.Time) (Record, error) {
	var report Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if report.Device == "" {
		return Record{}, fmt.Errorf("%w: missing device identifier", ErrMalformedPayload)
	}
	if report.Body == nil {
		return Record{}, fmt.Errorf("%w: missing body", ErrMalformedPayload)
	}

	return Record{
		DeviceID:       report.Device,
		Latitude:       report.Body.Latitude,
		Longitude:      report.Body.Longitude,
		Speed:          report.Body.Speed,
		Altitude:       report.Body.Altitude,
		BatteryLevel:   report.Body.BatteryLevel,
		SignalStrength: report.Body.SignalStrength,
		Temperature:    report.Body.Temperature,
		ReceivedAt:     receivedAt,
	}, nil
}
