package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthvault/sdk/pkg/hverror"
)

// RESTClient is the thin JSON shim used by the platform's REST-style
// surfaces (action plans). It shares nothing with the XML envelope path
// except the session token.
type RESTClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewRESTClient creates a REST client rooted at baseURL, authenticating
// with the given session token.
func NewRESTClient(baseURL, token string) *RESTClient {
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
		logger:     zerolog.Nop(),
	}
}

// SetLogger attaches a zerolog logger for request logging.
func (c *RESTClient) SetLogger(logger zerolog.Logger) { c.logger = logger }

// SetHTTPClient replaces the default http.Client.
func (c *RESTClient) SetHTTPClient(hc *http.Client) { c.httpClient = hc }

type restErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// DoJSON issues one JSON request. reqBody and respBody may be nil. recordID,
// when set, is sent as the x-hv-record-id header the REST surface expects.
func (c *RESTClient) DoJSON(ctx context.Context, method, path string, query url.Values, reqBody, respBody interface{}, recordID *uuid.UUID) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body *bytes.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("transport: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("transport: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	if recordID != nil {
		req.Header.Set("x-hv-record-id", recordID.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transport: execute request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("rest call")

	if resp.StatusCode >= 400 {
		var eb restErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		message := eb.Error.Message
		if message == "" {
			message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return hverror.FromStatusCode(resp.StatusCode, message)
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return hverror.Parsef(err, "decode response")
		}
	}
	return nil
}
