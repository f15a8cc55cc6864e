// Package httpclient is the HTTP transport shared by the playlist loaders and
// the stream probers. It wraps http.Client with retries and exponential
// backoff, a circuit breaker, transparent response decompression (gzip,
// deflate, brotli), a response size cap, and credential-redacting request
// logs.
package httpclient

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/jmylchreest/checkarr/internal/version"
)

var (
	ErrCircuitOpen      = errors.New("circuit breaker is open")
	ErrMaxRetries       = errors.New("max retries exceeded")
	ErrResponseTooLarge = errors.New("response body exceeds size limit")
)

// Default configuration values.
const (
	DefaultTimeout            = 30 * time.Second
	DefaultRetryAttempts      = 3
	DefaultRetryDelay         = 1 * time.Second
	DefaultRetryMaxDelay      = 30 * time.Second
	DefaultBackoffMultiplier  = 2.0
	DefaultCircuitThreshold   = 5
	DefaultCircuitTimeout     = 30 * time.Second
	DefaultCircuitHalfOpenMax = 1
)

// Config holds the knobs for a Client. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	// Timeout bounds the whole request.
	Timeout time.Duration

	// ConnectTimeout bounds the TCP connect and TLS handshake phases
	// separately from Timeout. Zero means no dedicated connect budget.
	ConnectTimeout time.Duration

	// MaxResponseSize caps response bodies; reads past the limit surface
	// ErrResponseTooLarge. Zero means unlimited.
	MaxResponseSize int64

	// RetryAttempts is the number of retries after the initial request.
	RetryAttempts int

	// RetryDelay is the delay before the first retry; each further retry
	// multiplies it by BackoffMultiplier up to RetryMaxDelay.
	RetryDelay        time.Duration
	RetryMaxDelay     time.Duration
	BackoffMultiplier float64

	// CircuitThreshold consecutive failures open the circuit; after
	// CircuitTimeout it half-opens and admits CircuitHalfOpenMax probes.
	CircuitThreshold   int
	CircuitTimeout     time.Duration
	CircuitHalfOpenMax int

	// UserAgent is sent when the request carries none.
	UserAgent string

	Logger *slog.Logger

	// EnableDecompression advertises gzip/deflate/br and transparently
	// decodes the response body.
	EnableDecompression bool

	// BaseClient overrides the underlying http.Client when set.
	BaseClient *http.Client
}

// DefaultConfig returns the configuration used when callers have nothing to
// override: 30s timeout, 3 retries, breaker at 5 failures.
func DefaultConfig() Config {
	return Config{
		Timeout:             DefaultTimeout,
		RetryAttempts:       DefaultRetryAttempts,
		RetryDelay:          DefaultRetryDelay,
		RetryMaxDelay:       DefaultRetryMaxDelay,
		BackoffMultiplier:   DefaultBackoffMultiplier,
		CircuitThreshold:    DefaultCircuitThreshold,
		CircuitTimeout:      DefaultCircuitTimeout,
		CircuitHalfOpenMax:  DefaultCircuitHalfOpenMax,
		UserAgent:           version.UserAgent(),
		Logger:              slog.Default(),
		EnableDecompression: true,
	}
}

// Client is the resilient HTTP client.
type Client struct {
	config  Config
	client  *http.Client
	breaker *circuitBreaker
	logger  *slog.Logger
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	base := cfg.BaseClient
	if base == nil {
		base = &http.Client{Timeout: cfg.Timeout}
		if cfg.ConnectTimeout > 0 {
			dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
			base.Transport = &http.Transport{
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: cfg.ConnectTimeout,
				Proxy:               http.ProxyFromEnvironment,
			}
		}
	}

	return &Client{
		config:  cfg,
		client:  base,
		breaker: newBreaker(cfg.CircuitThreshold, cfg.CircuitTimeout, cfg.CircuitHalfOpenMax),
		logger:  cfg.Logger,
	}
}

// NewWithDefaults builds a Client with DefaultConfig.
func NewWithDefaults() *Client {
	return New(DefaultConfig())
}

// Get issues a GET for url.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.Do(req)
}

// Head issues a HEAD for url.
func (c *Client) Head(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.Do(req)
}

// Do executes req with retries and circuit breaker protection. Responses with
// a retryable status (429, 502, 503, 504) count as failures; other statuses
// are returned to the caller as-is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if req.Header.Get("User-Agent") == "" && c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.EnableDecompression && req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	}

	var lastErr error
	delay := c.config.RetryDelay

	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying request",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("url", redactURL(req.URL)),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}

			delay = time.Duration(float64(delay) * c.config.BackoffMultiplier)
			if delay > c.config.RetryMaxDelay {
				delay = c.config.RetryMaxDelay
			}
		}

		resp, retry, err := c.attempt(ctx, req, attempt)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMaxRetries, lastErr)
	}
	return nil, ErrMaxRetries
}

// attempt runs one round trip. retry reports whether the failure is worth
// another attempt.
func (c *Client) attempt(ctx context.Context, req *http.Request, attempt int) (resp *http.Response, retry bool, err error) {
	if !c.breaker.Allow() {
		c.logger.Warn("circuit breaker open, skipping request",
			slog.String("url", redactURL(req.URL)),
			slog.String("state", c.breaker.State().String()),
		)
		return nil, true, ErrCircuitOpen
	}

	start := time.Now()
	resp, err = c.client.Do(req.WithContext(ctx))
	elapsed := time.Since(start)

	if err != nil {
		c.breaker.RecordFailure()
		c.logger.Warn("request failed",
			slog.String("url", redactURL(req.URL)),
			slog.String("method", req.Method),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()),
			slog.Int("attempt", attempt),
		)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, false, err
		}
		return nil, true, err
	}

	if retryableStatus(resp.StatusCode) {
		c.breaker.RecordFailure()
		c.logger.Warn("retryable status code",
			slog.String("url", redactURL(req.URL)),
			slog.String("method", req.Method),
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", elapsed),
			slog.Int("attempt", attempt),
		)
		resp.Body.Close()
		return nil, true, fmt.Errorf("retryable status code: %d", resp.StatusCode)
	}

	c.breaker.RecordSuccess()
	c.logger.Debug("request completed",
		slog.String("url", redactURL(req.URL)),
		slog.String("method", req.Method),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", elapsed),
		slog.Int64("content_length", resp.ContentLength),
	)

	if c.config.EnableDecompression {
		resp.Body = c.decodeBody(resp)
	}
	if c.config.MaxResponseSize > 0 {
		resp.Body = &cappedBody{body: resp.Body, remaining: c.config.MaxResponseSize}
	}
	return resp, false, nil
}

// CircuitState returns the breaker's current state.
func (c *Client) CircuitState() CircuitState {
	return c.breaker.State()
}

// decodeBody wraps the response body with a decoder matching its
// Content-Encoding, passing unknown encodings through untouched.
func (c *Client) decodeBody(resp *http.Response) io.ReadCloser {
	encoding := strings.ToLower(resp.Header.Get("Content-Encoding"))
	switch encoding {
	case "":
		return resp.Body
	case "gzip":
		reader, err := gzip.NewReader(resp.Body)
		if err != nil {
			c.logger.Warn("failed to create gzip reader, returning raw body",
				slog.String("error", err.Error()),
			)
			return resp.Body
		}
		return &decodedBody{reader: reader, closer: resp.Body}
	case "deflate":
		return &decodedBody{reader: flate.NewReader(resp.Body), closer: resp.Body}
	case "br":
		return &decodedBody{reader: brotli.NewReader(resp.Body), closer: resp.Body}
	default:
		c.logger.Debug("unknown content encoding, returning raw body",
			slog.String("encoding", encoding),
		)
		return resp.Body
	}
}

// decodedBody chains the decoder's Close (when it has one) with the original
// body's.
type decodedBody struct {
	reader io.Reader
	closer io.Closer
}

func (d *decodedBody) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

func (d *decodedBody) Close() error {
	if closer, ok := d.reader.(io.Closer); ok {
		closer.Close()
	}
	return d.closer.Close()
}

// cappedBody surfaces ErrResponseTooLarge once more than the configured
// number of bytes has been read.
type cappedBody struct {
	body      io.ReadCloser
	remaining int64
}

func (l *cappedBody) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrResponseTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.body.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrResponseTooLarge
	}
	return n, err
}

func (l *cappedBody) Close() error {
	return l.body.Close()
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

var sensitiveParams = map[string]struct{}{
	"password": {}, "passwd": {}, "pass": {}, "pwd": {},
	"token": {}, "api_key": {}, "apikey": {}, "key": {},
	"secret": {}, "auth": {}, "authorization": {},
	"credential": {}, "credentials": {},
}

// redactURL masks credential-bearing query parameters before a URL reaches
// the logs. IPTV sources often carry tokens in the query string.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	redacted := *u
	query := redacted.Query()
	changed := false
	for param := range query {
		if _, ok := sensitiveParams[strings.ToLower(param)]; ok {
			query.Set(param, "***")
			changed = true
		}
	}
	if changed {
		redacted.RawQuery = query.Encode()
	}
	return redacted.String()
}
