package notehub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fleetradar/fleetradar-backend/internal/config"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Client sends commands to Notecard devices through the Notehub cloud
// API. Requests carry a timeout and run behind a circuit breaker so a
// degraded gateway cannot pile up in-flight calls.
type Client struct {
	apiURL     string
	productUID string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *zap.Logger
}

// NewClient creates a new Notehub API client
func NewClient(cfg config.NotehubConfig, logger *zap.Logger) *Client {
	return &Client{
		apiURL:     cfg.APIURL,
		productUID: cfg.ProductUID,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		breaker:    gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{Name: "notehub"}),
		logger:     logger,
	}
}

type commandRequest struct {
	Req     string      `json:"req"`
	Product string      `json:"product"`
	Device  string      `json:"device"`
	Body    commandBody `json:"body"`
}

type commandBody struct {
	Command string `json:"command"`
}

// SendCommand submits a note.add request addressed to the device
func (c *Client) SendCommand(ctx context.Context, deviceID, command string) error {
	payload, err := json.Marshal(commandRequest{
		Req:     "note.add",
		Product: c.productUID,
		Device:  deviceID,
		Body:    commandBody{Command: command},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal command request: %w", err)
	}

	_, err = c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("notehub request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read notehub response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("notehub returned status %d: %s", resp.StatusCode, body)
		}

		return body, nil
	})
	if err != nil {
		return err
	}

	c.logger.Debug("command sent to device",
		zap.String("device_id", deviceID),
		zap.String("command", command),
	)

	return nil
}
