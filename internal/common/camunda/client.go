// Package camunda connects to the Zeebe gateway and runs job workers against it.
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"iopps-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// ClientConfig holds configuration for the Zeebe client.
type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	Retry                  RetryConfig
}

// RetryConfig defines the backoff used while the gateway is unreachable.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

// Client wraps the Zeebe gRPC client.
type Client struct {
	zbc.Client
	config ClientConfig
}

// Connect creates a Zeebe client and waits for the gateway topology to answer, retrying
// transient failures with exponential backoff.
func Connect(ctx context.Context, cfg ClientConfig, log logger.Logger) (*Client, error) {
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry = DefaultRetryConfig
	}
	if cfg.ConnectionTimeout == 0 {
		cfg.ConnectionTimeout = 10 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}
	c := &Client{Client: zeebeClient, config: cfg}

	err = Retry(ctx, cfg.Retry, log, "Zeebe gateway connection", func(ctx context.Context) error {
		return c.HealthCheck(ctx)
	})
	if err != nil {
		_ = zeebeClient.Close()
		return nil, err
	}
	return c, nil
}

// HealthCheck asks the gateway for its topology.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed at %s: %w", c.config.GatewayAddress, err)
	}
	return nil
}

// Retry runs op until it succeeds, the error is not transient, attempts run out or ctx ends.
func Retry(ctx context.Context, cfg RetryConfig, log logger.Logger, operationName string, op func(context.Context) error) error {
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) || attempt == cfg.MaxRetries {
			break
		}

		log.Warn(operationName+" failed, retrying", map[string]interface{}{
			"error":       lastErr.Error(),
			"attempt":     attempt,
			"maxRetries":  cfg.MaxRetries,
			"nextRetryIn": delay.String(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled after %d attempts: %w", operationName, attempt, ctx.Err())
		}

		delay *= 2
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("%s failed: %w", operationName, lastErr)
}

var retryablePhrases = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"deadline exceeded",
	"unavailable",
	"unreachable",
	"broken pipe",
	"no such host",
	"i/o timeout",
}

// IsRetryable reports whether err looks like a transient network failure.
func IsRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
