package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/san-kum/pose-sentinel/server/models"
	"go.uber.org/zap"
)

// WebhookClient posts alerts as JSON to an HTTP endpoint, retrying with a
// linear backoff.
type WebhookClient struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
	config     *WebhookConfig
}

type WebhookConfig struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func NewWebhookClient(url string, config *WebhookConfig, logger *zap.Logger) *WebhookClient {
	return &WebhookClient{
		url:    url,
		logger: logger,
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

func (c *WebhookClient) Name() string {
	return "webhook"
}

func (c *WebhookClient) Notify(ctx context.Context, alert *models.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying alert webhook",
				zap.String("alert_id", alert.ID),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))

			select {
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.post(ctx, body)
		if err == nil {
			c.logger.Debug("Alert delivered to webhook", zap.String("alert_id", alert.ID))
			return nil
		}
		lastErr = err
	}

	return fmt.Errorf("webhook delivery failed after %d attempts: %w",
		c.config.MaxRetries+1, lastErr)
}

func (c *WebhookClient) post(ctx context.Context, body []byte) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("User-Agent", "pose-sentinel/1.0")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return fmt.Errorf("webhook error (status %d): %s", response.StatusCode, string(bodyBytes))
	}

	return nil
}

// HealthCheck reports whether the endpoint answers without a server error.
func (c *WebhookClient) HealthCheck(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= 500 {
		return fmt.Errorf("webhook unhealthy (status %d)", response.StatusCode)
	}

	return nil
}

// StartHealthChecker logs the endpoint health every interval until ctx is
// done.
func (c *WebhookClient) StartHealthChecker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.HealthCheck(ctx); err != nil {
				c.logger.Error("Webhook health check failed", zap.Error(err))
			} else {
				c.logger.Debug("Webhook health check passed")
			}
		case <-ctx.Done():
			return
		}
	}
}
