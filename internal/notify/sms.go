package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSSender delivers one text message to one phone number
type SMSSender interface {
	SendSMS(ctx context.Context, phone, text string) error
}

// GatewayConfig configures the SMS gateway client
type GatewayConfig struct {
	Enabled    bool
	GatewayURL string
	APIKey     string
	Sender     string
}

// GatewayClient talks to a Mobizon-style SMS HTTP gateway. When disabled it
// logs the message instead of sending, which is the development default.
type GatewayClient struct {
	cfg    GatewayConfig
	client *http.Client
	logger *slog.Logger
}

// NewGatewayClient creates an SMS gateway client
func NewGatewayClient(cfg GatewayConfig, logger *slog.Logger) *GatewayClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &GatewayClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type gatewayResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SendSMS delivers a text through the gateway
func (c *GatewayClient) SendSMS(ctx context.Context, phone, text string) error {
	if !c.cfg.Enabled {
		c.logger.Info("sms disabled, message not sent",
			slog.String("phone", phone),
			slog.String("text", text),
		)
		return nil
	}

	form := url.Values{}
	form.Set("recipient", phone)
	form.Set("text", text)
	form.Set("from", c.cfg.Sender)
	form.Set("apiKey", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GatewayURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	var gw gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&gw); err != nil {
		return fmt.Errorf("decode sms gateway response: %w", err)
	}
	if gw.Code != 0 {
		return fmt.Errorf("sms gateway rejected message: %s", gw.Message)
	}
	return nil
}
