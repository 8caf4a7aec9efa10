package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xhad/docchat/pkg/logger"
)

const (
	documentsPath = "/api/documents"
	uploadPath    = "/api/upload-document"
	askPath       = "/api/ask"

	requestIDHeader = "X-Request-ID"
)

type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second
	Logger    *zap.Logger
}

// Client talks to the document store and answer service endpoints.
type Client struct {
	config  ClientConfig
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewWithConfig(config ClientConfig) (*Client, error) {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5 // 5 requests per second by default
	}

	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL: %q", config.BaseURL)
	}

	return &Client{
		config: config,
		base:   base,
		http: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		log:     logger.OrNop(config.Logger).With(zap.String("module", "client")),
	}, nil
}

// New is NewWithConfig with defaults for baseURL. It panics on an invalid
// URL, so it suits fixed addresses only.
func New(baseURL string) *Client {
	c, err := NewWithConfig(ClientConfig{BaseURL: baseURL})
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

// do paces, tags and sends req. Transport failures come back as
// *TransportError; the caller owns the response body on success.
func (c *Client) do(ctx context.Context, op string, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		c.log.Warn("request failed",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, &TransportError{Op: op, Err: err}
	}

	c.log.Debug("request completed",
		zap.String("op", op),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64*1024))
	body.Close()
}
