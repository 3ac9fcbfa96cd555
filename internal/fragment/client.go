// Package fragment provides the client that fetches server-rendered HTML
// fragments for views and the appointment modal.
package fragment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openclinic/ehr-shell/pkg/logging"
)

// ModalFragment is the fragment name for the appointment modal's inner form.
const ModalFragment = "appointment-details"

// Client fetches named HTML fragments from the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a fragment client for the backend at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves the markup for a named fragment (GET /fragments/{name}).
func (c *Client) Fetch(ctx context.Context, name string) (string, error) {
	return c.FetchURL(ctx, "/fragments/"+name)
}

// FetchURL retrieves markup from an explicit fragment path.
func (c *Client) FetchURL(ctx context.Context, path string) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("fragment: create request: %w", err)
	}
	req.Header.Set("X-Requested-With", "fetch")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fragment: fetch %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fragment: fetch %s returned status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("fragment: read %s body: %w", path, err)
	}
	return string(body), nil
}
