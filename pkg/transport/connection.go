// Package transport implements the HealthVault wire protocol: request
// envelope construction, response envelope parsing, method descriptors, and
// session establishment over HTTP. All higher-level clients speak to the
// platform through the Connection interface defined here.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Connection executes a named remote method with versioned parameters and
// returns the parsed response info. Implementations must be safe for
// concurrent use.
type Connection interface {
	Execute(ctx context.Context, method Method, params RequestParams) (*ResponseInfo, error)
}

// HTTPConnection is the production Connection over net/http. It holds the
// application identity and, once established, the session credential used to
// authenticate subsequent calls.
type HTTPConnection struct {
	baseURL    string
	appID      uuid.UUID
	httpClient *http.Client
	logger     zerolog.Logger

	// credMu guards cred; sessionMu serializes session establishment so
	// concurrent cold starts collapse into a single network call.
	credMu    sync.Mutex
	sessionMu sync.Mutex
	cred      *SessionCredential
}

// Option configures an HTTPConnection.
type Option func(*HTTPConnection)

// WithHTTPClient replaces the default http.Client. Timeouts and transport
// policy (there is no internal retry or timeout) belong to this client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPConnection) { c.httpClient = hc }
}

// WithLogger attaches a zerolog logger for wire-level logging.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *HTTPConnection) { c.logger = logger }
}

// WithSessionCredential seeds an already-established session credential,
// e.g. one restored from a web session cookie.
func WithSessionCredential(cred *SessionCredential) Option {
	return func(c *HTTPConnection) { c.cred = cred }
}

// NewHTTPConnection creates a connection to the platform endpoint at baseURL
// on behalf of the application identified by appID.
func NewHTTPConnection(baseURL string, appID uuid.UUID, opts ...Option) *HTTPConnection {
	c := &HTTPConnection{
		baseURL:    baseURL,
		appID:      appID,
		httpClient: &http.Client{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute implements Connection. Cancellation is delegated to the context;
// failures are never retried here.
func (c *HTTPConnection) Execute(ctx context.Context, method Method, params RequestParams) (*ResponseInfo, error) {
	start := time.Now()

	envelope, err := buildRequestEnvelope(method, params, c.appID, c.credential(), time.Now())
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("transport: create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: execute %s: %w", method.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transport: execute %s: unexpected HTTP status %d", method.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: read %s response: %w", method.Name, err)
	}

	info, err := parseResponseEnvelope(body)

	evt := c.logger.Debug()
	if err != nil {
		evt = c.logger.Error().Err(err)
	}
	evt.
		Str("method", method.Name).
		Int("method_version", method.Version).
		Dur("latency", time.Since(start)).
		Msg("platform call")

	if err != nil {
		return nil, err
	}
	return info, nil
}

func (c *HTTPConnection) credential() *SessionCredential {
	c.credMu.Lock()
	defer c.credMu.Unlock()
	return c.cred
}

func (c *HTTPConnection) setCredential(cred *SessionCredential) {
	c.credMu.Lock()
	defer c.credMu.Unlock()
	c.cred = cred
}
