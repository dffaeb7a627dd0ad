// Package barrier holds the adapter for physical barrier devices. The
// device protocol is a plain HTTP command endpoint; everything richer
// (SIP intercoms, cameras) lives outside this service.
package barrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/localhood/gatekeeper/internal/domain"
	"github.com/localhood/gatekeeper/internal/reliability/circuitbreaker"
)

// Client implements domain.BarrierOpener over HTTP
type Client struct {
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewClient creates a barrier device client
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client:  &http.Client{Timeout: 5 * time.Second},
		breaker: circuitbreaker.New(5, 2, 15*time.Second),
		logger:  logger,
	}
}

type openCommand struct {
	Command string `json:"command"`
}

// Open sends the open command to the device. Called only after a Granted
// decision; a device failure here is an operations problem, not an
// authorization one.
func (c *Client) Open(ctx context.Context, b *domain.Barrier) error {
	if b.DeviceURL == "" {
		// Barrier without a driven device, e.g. a manually operated gate.
		c.logger.Debug("barrier has no device endpoint", slog.String("barrier_id", b.ID))
		return nil
	}

	return c.breaker.Execute(func() error {
		body, err := json.Marshal(openCommand{Command: "open"})
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.DeviceURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build open request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Api-Key", b.APIKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("open barrier %s: %w", b.ID, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return fmt.Errorf("barrier %s device returned status %d", b.ID, resp.StatusCode)
		}
		return nil
	})
}
