package organizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"filepilot/internal/config"
)

// ErrNotConfigured is returned when no organizer base URL is set.
var ErrNotConfigured = errors.New("organizer base_url is not configured")

// HTTPDoer describes the HTTP client used by the organizer client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is a non-2xx organizer response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("organizer %s returned %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("organizer %s returned %d: %s", e.Endpoint, e.StatusCode, e.Detail)
}

// ErrorKind classifies client errors (4xx) as validation failures.
func (e *StatusError) ErrorKind() string {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return "validation"
	}
	return "external"
}

// Client talks to the organizer service.
type Client struct {
	baseURL string
	client  HTTPDoer
}

// NewClient builds a client from the [organizer] config section.
func NewClient(cfg config.Organizer) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return NewHTTPClient(cfg.BaseURL, &http.Client{Timeout: timeout})
}

// NewHTTPClient constructs a client around an explicit HTTP doer.
func NewHTTPClient(baseURL string, client HTTPDoer) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  client,
	}
}

// Configured reports whether the client has somewhere to send requests.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.client != nil
}

// BatchResult is the organizer's proposed layout for a directory.
type BatchResult struct {
	Status        string          `json:"status"`
	TreeStructure json.RawMessage `json:"treeStructure"`
}

// BatchOrganize asks the organizer for a reorganization plan of path.
func (c *Client) BatchOrganize(ctx context.Context, path string) (*BatchResult, error) {
	var result BatchResult
	if err := c.post(ctx, "batch-organize", map[string]string{"path": path}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Commit moves srcPath to dstPath, both relative to basePath.
func (c *Client) Commit(ctx context.Context, basePath, srcPath, dstPath string) error {
	return c.post(ctx, "commit", map[string]string{
		"base_path": basePath,
		"src_path":  srcPath,
		"dst_path":  dstPath,
	}, nil)
}

// CommitSuggestion moves the file at srcPath into the absolute dstPath.
func (c *Client) CommitSuggestion(ctx context.Context, srcPath, dstPath string) error {
	return c.post(ctx, "commit-suggestion", map[string]string{
		"src_path": srcPath,
		"dst_path": dstPath,
	}, nil)
}

func (c *Client) post(ctx context.Context, endpoint string, body any, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("organizer %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Detail: errorDetail(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func errorDetail(data []byte) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != nil {
		if s, ok := body.Detail.(string); ok {
			return s
		}
		if encoded, err := json.Marshal(body.Detail); err == nil {
			return string(encoded)
		}
	}
	text := strings.TrimSpace(string(data))
	if len(text) > 512 {
		text = text[:512] + "..."
	}
	return text
}
