package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	apperrors "baaccli/internal/errors"
)

// ClientOptions tunes one upstream client.
type ClientOptions struct {
	RPS             float64
	Burst           int
	MaxRetries      int
	Timeout         time.Duration
	MemoSize        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// StatusError is a non-2xx upstream answer.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.URL, e.StatusCode)
}

// Retryable reports whether another attempt may succeed.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client issues rate-limited, retried and memoized GET requests that
// return JSON.
type Client struct {
	name    string
	http    *http.Client
	limiter *rate.Limiter
	memo    *lru.Cache[string, []byte]
	opts    ClientOptions
	logger  *slog.Logger
}

// NewClient creates a client. name labels logs.
func NewClient(name string, opts ClientOptions, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MemoSize <= 0 {
		opts.MemoSize = 1024
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = time.Second
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = time.Minute
	}

	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}

	memo, err := lru.New[string, []byte](opts.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("create memo cache: %w", err)
	}

	return &Client{
		name:    name,
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(limit, opts.Burst),
		memo:    memo,
		opts:    opts,
		logger:  logger.With(slog.String("upstream", name)),
	}, nil
}

// MemoLen returns the number of memoized answers.
func (c *Client) MemoLen() int {
	return c.memo.Len()
}

// GetJSON fetches base?params and decodes the body into out. Identical
// requests are answered from the memo without touching the network.
func (c *Client) GetJSON(ctx context.Context, base string, params url.Values, out interface{}) error {
	target := base
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	if body, ok := c.memo.Get(target); ok {
		return json.Unmarshal(body, out)
	}

	body, err := c.fetch(ctx, target)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewNetworkError(fmt.Sprintf("%s: decode response", c.name), err)
	}
	c.memo.Add(target, body)
	return nil
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.opts.InitialInterval
	exp.MaxInterval = c.opts.MaxInterval
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.opts.MaxRetries)), ctx)

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		b, err := c.do(ctx, target)
		if err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && !statusErr.Retryable() {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		body = b
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.DebugContext(ctx, "upstream retry",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()))
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, apperrors.NewNetworkError(fmt.Sprintf("%s: request failed after %d attempts", c.name, attempt), err)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: req.URL.Host + req.URL.Path}
	}
	return io.ReadAll(resp.Body)
}
