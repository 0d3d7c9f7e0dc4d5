package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPDoer defines the http.Client interface subset used by the gateway.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to the remote parking API. All visitor-portal traffic goes
// through it; it owns normalization, outcome mapping and the gate identity
// token.
type Client struct {
	baseURL string
	http    HTTPDoer
	tokens  *TokenIssuer
	gateID  string
	source  string
	logger  *zap.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL string
	HTTP    HTTPDoer
	Tokens  *TokenIssuer // optional gate identity; nil disables the header
	GateID  string
	Source  string
	Logger  *zap.Logger
}

// NewClient builds a parking API client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		tokens:  opts.Tokens,
		gateID:  opts.GateID,
		source:  opts.Source,
		logger:  logger,
	}
}

// do executes a request against the API and returns status plus body.
// noCache adds cache-busting headers for reads that race the payment webhook.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, noCache bool) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if noCache {
		req.Header.Set("Cache-Control", "no-cache")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp.StatusCode, respBody, nil
}
