// Package transport implements the HTTP transport to the AxonFlow agent
// and orchestrator. It attaches client credentials, enforces per-request
// timeouts, and returns raw status/body pairs; error taxonomy mapping is
// the caller's concern.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Credentials carries the client credential headers. Zero values mean
// community mode: no auth headers are sent.
type Credentials struct {
	ClientID     string
	ClientSecret string
	LicenseKey   string
}

// Response is a raw agent response.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// Doer is the transport capability consumed by the execution pipeline.
type Doer interface {
	// Do sends a JSON request and returns the raw response. A non-nil
	// error indicates a transport-level failure (connection, timeout),
	// not an HTTP error status.
	Do(ctx context.Context, method, path string, body any, timeout time.Duration) (*Response, error)
}

// Transport sends requests to a single base URL.
type Transport struct {
	baseURL string
	creds   Credentials
	client  *http.Client
	logger  zerolog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithInsecureSkipVerify disables TLS certificate verification. Dev only.
func WithInsecureSkipVerify() Option {
	return func(t *Transport) {
		t.client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		t.client = c
	}
}

// New creates a transport for the given base URL.
func New(baseURL string, creds Credentials, logger zerolog.Logger, opts ...Option) *Transport {
	t := &Transport{
		baseURL: baseURL,
		creds:   creds,
		client:  &http.Client{},
		logger:  logger.With().Str("component", "transport").Logger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do implements Doer.
func (t *Transport) Do(ctx context.Context, method, path string, body any, timeout time.Duration) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.creds.ClientID != "" {
		req.Header.Set("X-Client-ID", t.creds.ClientID)
		req.Header.Set("X-Client-Secret", t.creds.ClientSecret)
	}
	if t.creds.LicenseKey != "" {
		req.Header.Set("X-License-Key", t.creds.LicenseKey)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("Transport request failed")
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	t.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Transport request complete")

	return &Response{Status: resp.StatusCode, Body: data, Header: resp.Header}, nil
}

// IsTimeout reports whether a transport error was caused by a deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ Doer = (*Transport)(nil)
