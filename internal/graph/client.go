// Package graph retrieves mailbox collections from the Microsoft Graph REST API.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"outlookflat/internal/logger"
	"outlookflat/pkg/utils"
)

// API errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidNextLink      = errors.New("invalid next page link")
	ErrPageLoop             = errors.New("next page link repeats")
)

const (
	// maxResponseBytes limits one page body.
	maxResponseBytes = 32 * 1024 * 1024
	// maxErrorBody limits how much of an error body is kept in messages.
	maxErrorBody = 512
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues paginated GET requests against a versioned API root.
type Client struct {
	httpClient Doer
	endpoint   *url.URL
	headers    *utils.HTTPHelper
	strings    *utils.StringHelper
	logger     *logger.Logger
}

// page is one response of a collection query.
type page struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

// apiError is the error body the API returns on failure.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient creates a client for endpoint, e.g. https://graph.microsoft.com/v1.0.
// httpClient must attach authorization itself.
func NewClient(endpoint string, httpClient Doer, log *logger.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}

	return &Client{
		httpClient: httpClient,
		endpoint:   u,
		headers:    utils.NewHTTPHelper(),
		strings:    utils.NewStringHelper(),
		logger:     log,
	}, nil
}

// Endpoint returns the API root the client targets.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// GetAll fetches path with query and follows @odata.nextLink until the
// collection is exhausted, returning every item in server order.
func (c *Client) GetAll(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	next := c.endpoint.String() + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		next += "?" + query.Encode()
	}

	items := []json.RawMessage{}
	seen := map[string]bool{}

	for next != "" {
		if seen[next] {
			return nil, fmt.Errorf("%w: %s", ErrPageLoop, next)
		}

		seen[next] = true

		p, err := c.getPage(ctx, next)
		if err != nil {
			return nil, err
		}

		items = append(items, p.Value...)
		c.logger.Debug("Retrieved page", "path", path, "items", len(p.Value), "total", len(items))

		if p.NextLink == "" {
			break
		}

		next, err = c.resolve(p.NextLink)
		if err != nil {
			return nil, err
		}
	}

	return items, nil
}

// resolve turns a next-page link into an absolute URL on the endpoint host.
// Relative links are appended to the API root.
func (c *Client) resolve(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidNextLink, err)
	}

	if !u.IsAbs() {
		return c.endpoint.String() + "/" + strings.TrimLeft(link, "/"), nil
	}

	if u.Host != c.endpoint.Host {
		return "", fmt.Errorf("%w: host %s does not match %s", ErrInvalidNextLink, u.Host, c.endpoint.Host)
	}

	return link, nil
}

func (c *Client) getPage(ctx context.Context, target string) (p *page, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = c.headers.BuildHeaders(nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(req, resp.StatusCode, body)
	}

	var out page
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &out, nil
}

func (c *Client) statusError(req *http.Request, status int, body []byte) error {
	detail := c.strings.TruncateString(string(body), maxErrorBody)

	var parsed apiError
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Code != "" {
		detail = parsed.Error.Code + ": " + parsed.Error.Message
	}

	c.logger.Error("Request failed",
		"status", status,
		"request_id", req.Header.Get(utils.ClientRequestIDHeader),
		"detail", detail,
	)

	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w: %d: %s", ErrUnexpectedStatusCode, ErrUnauthorized, status, detail)
	}

	return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatusCode, status, detail)
}
