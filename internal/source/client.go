package source

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/aegisshield/case-dashboard/internal/config"
)

// Client reads the raw case-report payload from the backend API
type Client struct {
	config config.SourceConfig
	logger *zap.Logger
	http   *resty.Client
}

// NewClient creates a new backend client
func NewClient(cfg config.SourceConfig, logger *zap.Logger) *Client {
	http := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json")

	if cfg.Token != "" {
		http.SetAuthToken(cfg.Token)
	}

	return &Client{
		config: cfg,
		logger: logger.Named("source"),
		http:   http,
	}
}

// Fetch returns the response body of the case-report listing
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()

	resp, err := c.http.R().SetContext(ctx).Get(c.config.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch case reports")
	}
	if resp.IsError() {
		return nil, errors.Errorf("case report backend returned %s", resp.Status())
	}

	c.logger.Debug("Fetched case reports",
		zap.String("url", c.config.URL),
		zap.Int("bytes", len(resp.Body())),
		zap.Duration("duration", time.Since(start)))

	return resp.Body(), nil
}
