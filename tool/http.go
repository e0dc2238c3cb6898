package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hupe1980/actormesh/internal/util"
)

// DefaultMaxHTTPBody caps fetched response bodies.
const DefaultMaxHTTPBody = 512 * 1024

// HTTPOption configures the HTTP tool.
type HTTPOption func(*HTTPTool)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTool) { t.client = c }
}

// WithReadOnly restricts the tool to GET requests. A read-only HTTP tool is
// idempotent and therefore eligible for automatic retry.
func WithReadOnly() HTTPOption {
	return func(t *HTTPTool) {
		t.readOnly = true
		t.meta.Idempotent = true
		t.meta.Description = "Fetch a URL with an HTTP GET request and return the response body."
		t.meta.Parameters = []Parameter{
			{Name: "url", Type: "string", Description: "URL to fetch", Required: true},
		}
		t.schema = t.meta.Schema()
	}
}

// WithMaxBody caps the number of response bytes returned.
func WithMaxBody(n int64) HTTPOption {
	return func(t *HTTPTool) {
		if n > 0 {
			t.maxBody = n
		}
	}
}

// HTTPTool performs HTTP requests. By default any method is allowed and the
// tool is treated as non-idempotent; WithReadOnly narrows it to GET.
type HTTPTool struct {
	meta     Metadata
	schema   map[string]any
	client   *http.Client
	readOnly bool
	maxBody  int64
}

// NewHTTPTool creates an HTTP tool.
func NewHTTPTool(opts ...HTTPOption) *HTTPTool {
	meta := Metadata{
		Name:        "http_request",
		Description: "Perform an HTTP request and return the response body.",
		Parameters: []Parameter{
			{Name: "url", Type: "string", Description: "Request URL", Required: true},
			{Name: "method", Type: "string", Description: "HTTP method, defaults to GET"},
			{Name: "body", Type: "string", Description: "Request body for POST/PUT"},
		},
	}
	t := &HTTPTool{
		meta:    meta,
		schema:  meta.Schema(),
		client:  http.DefaultClient,
		maxBody: DefaultMaxHTTPBody,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Metadata implements Tool.
func (t *HTTPTool) Metadata() Metadata { return t.meta }

// Validate implements Tool.
func (t *HTTPTool) Validate(args map[string]any) error {
	return util.ValidateParameters(args, t.schema)
}

// Execute implements Tool. Non-2xx statuses are failed results carrying the
// status and body.
func (t *HTTPTool) Execute(ctx context.Context, args map[string]any) (Result, error) {
	url, _ := args["url"].(string)
	method := http.MethodGet
	if v, ok := args["method"].(string); ok && v != "" {
		method = strings.ToUpper(v)
	}
	if t.readOnly && method != http.MethodGet {
		return FailureResult(fmt.Sprintf("method %s not allowed, tool is read-only", method)), nil
	}

	var body io.Reader
	if v, ok := args["body"].(string); ok && v != "" {
		body = strings.NewReader(v)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return FailureResult(err.Error()), nil
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return FailureResult(err.Error()), nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody))
	if err != nil {
		return FailureResult(err.Error()), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return FailureResult(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))), nil
	}
	return SuccessResult(string(data)), nil
}

var _ Tool = (*HTTPTool)(nil)
