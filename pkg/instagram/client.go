package instagram

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"igaggregator/pkg/config"
	"igaggregator/pkg/errors"
	"igaggregator/pkg/keys"
	"igaggregator/pkg/logger"
	"igaggregator/pkg/metrics"
	"igaggregator/pkg/ratelimit"
	"igaggregator/pkg/retry"
)

// maxBodySize caps how much of one upstream response is read into memory
const maxBodySize = 32 << 20

// Response is a successful upstream reply with its body fully read
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Client is the request executor: one GET per call, authenticated with the
// next key from the rotator. Transport and HTTP failures never escape
// Execute; they are logged, counted and reported as a nil Response.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	endpoints  Endpoints
	apiHost    string
	keyHeader  string
	hostHeader string
	rotator    *keys.Rotator
	limiter    ratelimit.Limiter
	breaker    *gobreaker.CircuitBreaker[*Response]
	retry      *retry.Policy
	logger     logger.Logger
}

// NewClient creates a request executor for the upstream described by cfg
func NewClient(cfg config.APIConfig, rotator *keys.Rotator, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	keyHeader := cfg.KeyHeader
	if keyHeader == "" {
		keyHeader = "X-RapidAPI-Key"
	}
	hostHeader := cfg.HostHeader
	if hostHeader == "" {
		hostHeader = "X-RapidAPI-Host"
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": "igaggregator/1.0",
		},
		endpoints:  NewEndpoints(cfg.BaseURL),
		apiHost:    cfg.Host,
		keyHeader:  keyHeader,
		hostHeader: hostHeader,
		rotator:    rotator,
		limiter:    ratelimit.Unlimited{},
		retry:      retry.Once(),
		logger:     log.WithField("component", "executor"),
	}
}

// SetHeader sets a custom header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHTTPClient replaces the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// SetLimiter installs per-key request pacing
func (c *Client) SetLimiter(l ratelimit.Limiter) {
	if l == nil {
		l = ratelimit.Unlimited{}
	}
	c.limiter = l
}

// EnableBreaker wraps every upstream call in a circuit breaker.
// While the circuit is open Execute returns nil without touching the network.
func (c *Client) EnableBreaker(cfg config.BreakerConfig) {
	if !cfg.Enabled {
		c.breaker = nil
		return
	}
	c.breaker = newBreaker("upstream-api", cfg, c.logger)
}

// SetRetry installs a retry policy for transient failures. Every attempt
// reuses the key chosen for the request and passes through the breaker.
func (c *Client) SetRetry(p *retry.Policy) {
	if p == nil {
		p = retry.Once()
	}
	c.retry = p
}

// Endpoints returns the URL builder for this upstream
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// Execute performs one authenticated GET. It returns nil on any failure.
func (c *Client) Execute(ctx context.Context, url string) *Response {
	key := c.rotator.Next()
	endpoint := EndpointName(url)
	logger.LogUpstreamRequest(c.logger, url, key)

	if err := c.limiter.Wait(ctx, key); err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "rate_limited").Inc()
		c.logger.WarnWithFields("request not sent", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
		return nil
	}

	start := time.Now()
	resp, err := c.call(ctx, url, key)
	duration := time.Since(start)
	metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(duration.Seconds())

	if err != nil {
		outcome := failureOutcome(err)
		metrics.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
		c.logger.ErrorWithFields("upstream request failed", map[string]interface{}{
			"url":      url,
			"outcome":  outcome,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil
	}

	metrics.UpstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	c.logger.DebugWithFields("upstream request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"bytes":    len(resp.Body),
		"duration": duration,
	})
	return resp
}

// Decode parses a response body. Absent responses, malformed JSON and
// non-object payloads all decode to an empty Body.
func (c *Client) Decode(resp *Response) Body {
	if resp == nil {
		return Body{}
	}
	body, err := DecodeBody(resp.Body)
	if err != nil {
		preview := string(resp.Body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to decode upstream response", map[string]interface{}{
			"url":          resp.URL,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return Body{}
	}
	return body
}

// Fetch is Execute followed by Decode
func (c *Client) Fetch(ctx context.Context, url string) Body {
	return c.Decode(c.Execute(ctx, url))
}

func (c *Client) call(ctx context.Context, url, key string) (*Response, error) {
	return retry.DoWithResult(ctx, c.retry, func() (*Response, error) {
		if c.breaker == nil {
			return c.doRequest(ctx, url, key)
		}
		return c.breaker.Execute(func() (*Response, error) {
			return c.doRequest(ctx, url, key)
		})
	})
}

func (c *Client) doRequest(ctx context.Context, url, key string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set(c.keyHeader, key)
	if c.apiHost != "" {
		req.Header.Set(c.hostHeader, c.apiHost)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &errors.Error{
			Type:    errors.FromStatusCode(resp.StatusCode),
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}

	return &Response{URL: url, StatusCode: resp.StatusCode, Body: body}, nil
}

func failureOutcome(err error) string {
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return "breaker_open"
	}
	var apiErr *errors.Error
	if stderrors.As(err, &apiErr) && apiErr.Type == errors.ErrorTypeNetwork {
		return "transport_error"
	}
	return "http_error"
}
