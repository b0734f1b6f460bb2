package chain

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"snarkcollective/internal/model"
)

// Mapping names exposed by the program.
const (
	MappingRounds    = "rounds"
	MappingSubmitted = "project_details_submitted"
	MappingApproved  = "project_details_approved"
)

const maxBodyBytes = 1 << 20

// Config holds explorer connection settings.
type Config struct {
	BaseURL           string
	Network           string
	ProgramID         string
	RequestsPerSecond float64
	MaxRetries        int
	RetryBackoff      time.Duration
	Timeout           time.Duration
}

// Client reads program mappings from the explorer REST endpoint.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a new explorer client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("explorer url is required")
	}
	if cfg.ProgramID == "" {
		return nil, fmt.Errorf("program id is required")
	}
	if cfg.Network == "" {
		cfg.Network = "testnet"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}, nil
}

// MappingURL returns the read URL for a mapping key.
func (c *Client) MappingURL(mapping, key string) string {
	return fmt.Sprintf("%s/v1/%s/program/%s/mapping/%s/%s",
		strings.TrimRight(c.cfg.BaseURL, "/"),
		url.PathEscape(c.cfg.Network),
		url.PathEscape(c.cfg.ProgramID),
		url.PathEscape(mapping),
		url.PathEscape(key),
	)
}

// GetRound reads the round stored under slot in the rounds mapping.
func (c *Client) GetRound(ctx context.Context, slot uint8) (model.Round, error) {
	key := fmt.Sprintf("%du8", slot)
	status, body, err := c.get(ctx, c.MappingURL(MappingRounds, key))
	if err != nil {
		return model.Round{}, fmt.Errorf("read round: %w", err)
	}
	if status != http.StatusOK {
		return model.Round{}, fmt.Errorf("read round: HTTP error status %d", status)
	}

	round, err := ParseRound(body)
	if err != nil {
		c.logger.Debug("round parsed with defaults", zap.String("slot", key), zap.Error(err))
	}
	return round, nil
}

// GetProjectDetails reads one project from the submitted or approved
// mapping. A missing key, a non-OK status and an empty body all return nil.
func (c *Client) GetProjectDetails(ctx context.Context, mapping, key string) (*model.ProjectInfo, error) {
	if mapping != MappingSubmitted && mapping != MappingApproved {
		return nil, fmt.Errorf("unknown project mapping: %s", mapping)
	}
	status, body, err := c.get(ctx, c.MappingURL(mapping, key))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", mapping, err)
	}
	if status != http.StatusOK {
		c.logger.Debug("project not found", zap.String("mapping", mapping), zap.String("key", key), zap.Int("status", status))
		return nil, nil
	}

	info, err := ParseProjectInfo(body)
	if err != nil {
		c.logger.Debug("project parsed with defaults", zap.String("mapping", mapping), zap.String("key", key), zap.Error(err))
	}
	return info, nil
}

func (c *Client) get(ctx context.Context, target string) (int, string, error) {
	var (
		status int
		body   string
	)
	err := withRetry(ctx, c.cfg.MaxRetries, c.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		status, body, err = c.do(ctx, target)
		if err != nil {
			c.logger.Warn("explorer read failed", zap.String("url", target), zap.Error(err))
			return err
		}
		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			c.logger.Warn("explorer read retryable status", zap.String("url", target), zap.Int("status", status))
			return fmt.Errorf("status %d", status)
		}
		return nil
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, "", ctxErr
	}
	if status != 0 {
		return status, body, nil
	}
	return 0, "", err
}

func (c *Client) do(ctx context.Context, target string) (int, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, "", permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, "", permanent(err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, "", fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, string(data), nil
}
