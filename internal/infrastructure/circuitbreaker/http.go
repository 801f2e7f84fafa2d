package circuitbreaker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// maxBodySize bounds the response bodies read through the client
const maxBodySize = 1 << 20

// HTTPClient wraps an HTTP client with circuit breaker protection
type HTTPClient struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

// NewHTTPClient creates a new HTTP client with circuit breaker
func NewHTTPClient(client *http.Client, breaker *gobreaker.CircuitBreaker, log *zap.Logger) *HTTPClient {
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	return &HTTPClient{
		client:  client,
		breaker: breaker,
		log:     log,
	}
}

// NewHTTPClientWithSettings creates a client with its own breaker
func NewHTTPClientWithSettings(timeout time.Duration, settings Settings, log *zap.Logger) *HTTPClient {
	return NewHTTPClient(&http.Client{Timeout: timeout}, New(settings, log), log)
}

// GetBody performs a GET request and returns the whole response body.
// 5xx responses count as failures for the breaker.
func (c *HTTPClient) GetBody(ctx context.Context, url string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("server error: %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	})

	if err != nil {
		if IsCircuitOpen(err) {
			c.log.Warn("Circuit breaker open, request blocked",
				zap.String("breaker", c.breaker.Name()),
			)
		}
		return nil, err
	}

	return result.([]byte), nil
}

// State exposes the breaker state for health reporting
func (c *HTTPClient) State() string {
	return c.breaker.State().String()
}
