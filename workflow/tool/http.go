package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPTool performs credentialed HTTP lookups against a data service.
//
// It generalizes the common pattern of an agent fetching customer or
// account data from a REST endpoint. GET and POST are supported; the
// response status, headers, and body are returned to the caller.
//
// Input parameters:
//   - url: target URL (required)
//   - method: "GET" or "POST" (default "GET")
//   - headers: optional map of request headers
//   - body: optional request body for POST
//
// Output:
//   - status_code: HTTP status code
//   - headers: response headers
//   - body: response body as string
type HTTPTool struct {
	client     *http.Client
	credential string
}

// NewHTTPTool creates an HTTP lookup tool.
//
// credential, when non-empty, is sent as a bearer token on every request.
// Timeouts are controlled through the call context.
func NewHTTPTool(credential string) *HTTPTool {
	return &HTTPTool{
		client:     &http.Client{},
		credential: credential,
	}
}

// Name returns the tool identifier.
func (h *HTTPTool) Name() string {
	return "http_lookup"
}

// Description implements Described.
func (h *HTTPTool) Description() string {
	return "Fetch data from an HTTP endpoint. Use for account, billing, or promotion lookups."
}

// Schema implements Described.
func (h *HTTPTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "Target URL",
			},
			"method": map[string]interface{}{
				"type":        "string",
				"description": "HTTP method: GET or POST (default GET)",
			},
			"headers": map[string]interface{}{
				"type":        "object",
				"description": "Optional request headers",
			},
			"body": map[string]interface{}{
				"type":        "string",
				"description": "Optional request body for POST",
			},
		},
		"required": []string{"url"},
	}
}

// Call executes the HTTP request described by input.
func (h *HTTPTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	urlStr, ok := input["url"].(string)
	if !ok || urlStr == "" {
		return nil, fmt.Errorf("url parameter required (string)")
	}

	method := http.MethodGet
	if m, ok := input["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("unsupported HTTP method: %s (supported: GET, POST)", method)
	}

	var body io.Reader
	if bodyStr, ok := input["body"].(string); ok && bodyStr != "" {
		body = bytes.NewBufferString(bodyStr)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if headers, ok := input["headers"].(map[string]interface{}); ok {
		for key, value := range headers {
			if valueStr, ok := value.(string); ok {
				req.Header.Set(key, valueStr)
			}
		}
	}
	if h.credential != "" {
		req.Header.Set("Authorization", "Bearer "+h.credential)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	respHeaders := make(map[string]interface{}, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) == 1 {
			respHeaders[key] = values[0]
		} else {
			respHeaders[key] = values
		}
	}

	return map[string]interface{}{
		"status_code": resp.StatusCode,
		"headers":     respHeaders,
		"body":        string(respBody),
	}, nil
}
