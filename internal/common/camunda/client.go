// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"loan-intake/internal/common/errors"
	"loan-intake/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe gRPC client with connection retry and health checks.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

// ClientConfig holds configuration for the Camunda/Zeebe client.
type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig defines the backoff used while connecting.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

// Connect dials the gateway and waits for a topology response, retrying
// transient failures with exponential backoff until ctx is done.
func Connect(ctx context.Context, config *ClientConfig, log logger.Logger) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= config.RetryConfig.MaxRetries; attempt++ {
		client, err := dial(ctx, config)
		if err == nil {
			return client, nil
		}
		lastErr = err

		if !isRetryableZeebeError(err) || attempt == config.RetryConfig.MaxRetries {
			return nil, mapZeebeError(err, "connect", attempt)
		}

		delay := backoff(config.RetryConfig, attempt)
		log.Warn("zeebe connection failed, retrying", map[string]interface{}{
			"error":       err,
			"attempt":     attempt + 1,
			"maxRetries":  config.RetryConfig.MaxRetries,
			"nextRetryIn": delay.String(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("zeebe connect cancelled after %d attempts: %w", attempt+1, ctx.Err())
		}
	}

	return nil, mapZeebeError(lastErr, "connect", config.RetryConfig.MaxRetries)
}

func dial(ctx context.Context, config *ClientConfig) (*Client, error) {
	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: config}
	if err := c.HealthCheck(ctx); err != nil {
		zeebeClient.Close()
		return nil, err
	}
	return c, nil
}

// backoff doubles BaseDelay per attempt, capped at MaxDelay.
func backoff(cfg *RetryConfig, attempt int) time.Duration {
	delay := cfg.BaseDelay * time.Duration(1<<attempt)
	if delay <= 0 || delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}

// GetClient returns the raw Zeebe client for job workers.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck asks the broker for its topology.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed at %s: %w", c.config.GatewayAddress, err)
	}
	return nil
}

// Ready lets the broker take part in the server's readiness probe.
func (c *Client) Ready(ctx context.Context) error {
	if err := c.HealthCheck(ctx); err != nil {
		return mapZeebeError(err, "health check", 0)
	}
	return nil
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// mapZeebeError converts Zeebe errors into standardized application errors.
func mapZeebeError(err error, operation string, attempt int) error {
	msg := err.Error()
	lowerMsg := strings.ToLower(msg)

	enhancedMsg := fmt.Sprintf("Zeebe operation '%s' failed", operation)
	if attempt > 0 {
		enhancedMsg += fmt.Sprintf(" after %d attempts", attempt)
	}

	if strings.Contains(lowerMsg, "timeout") || strings.Contains(lowerMsg, "deadline exceeded") {
		return errors.NewTimeoutError("zeebe", fmt.Errorf("%s: %s", enhancedMsg, msg))
	}
	return errors.NewExternalServiceError("zeebe", fmt.Errorf("%s: %s", enhancedMsg, msg))
}
