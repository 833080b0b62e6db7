// Package agent is the HTTP client for the collaborator service that fetches,
// analyses, and executes page extractions. The core never runs generated code
// itself; it ships the snapshot HTML and the opaque extraction function to
// this service and records the results.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/use-agent/pagent/models"
)

// Client is a lightweight net/http client for the pagent collaborator API.
type Client struct {
	httpClient        *http.Client
	baseURL           string
	apiKey            string
	compressThreshold int
}

// NewClient creates a collaborator client. Pass nil to use a default
// http.Client; per-call deadlines come from the caller's context.
func NewClient(baseURL, apiKey string, compressThreshold int, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient:        httpClient,
		baseURL:           strings.TrimRight(baseURL, "/"),
		apiKey:            apiKey,
		compressThreshold: compressThreshold,
	}
}

// GenerateRequest carries one generation call.
type GenerateRequest struct {
	URL  string
	HTML string
	Goal string
}

// GenerateResult is the collaborator's generation output.
type GenerateResult struct {
	Code   string
	Schema json.RawMessage
}

// generateWire is the request body for the generation endpoint. Large HTML
// travels gzip+base64 encoded; the service accepts either representation.
type generateWire struct {
	URL            string `json:"url"`
	HTML           string `json:"html,omitempty"`
	HTMLCompressed bool   `json:"html_compressed,omitempty"`
	Goal           string `json:"goal"`
}

// generateResponse is the generation endpoint's response. A missing
// extraction_code counts as failure even on HTTP 200.
type generateResponse struct {
	ExtractionCode string          `json:"extraction_code"`
	OutputSchema   json.RawMessage `json:"output_schema,omitempty"`
	Status         string          `json:"status,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Generate asks the collaborator to write an extraction function for the
// given HTML and goal. Exactly one network call; no retries.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	html, compressed, err := encodeHTML(req.HTML, c.compressThreshold)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeGenerationFailed, "encoding HTML payload", err)
	}

	body, err := c.post(ctx, "/pages/learn-etl", generateWire{
		URL:            req.URL,
		HTML:           html,
		HTMLCompressed: compressed,
		Goal:           req.Goal,
	}, models.ErrCodeGenerationFailed)
	if err != nil {
		return nil, err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, models.NewPipelineError(models.ErrCodeGenerationFailed, "malformed generation response", err)
	}
	if resp.ExtractionCode == "" {
		msg := "generation response missing extraction_code"
		if resp.Error != "" {
			msg = resp.Error
		}
		return nil, models.NewPipelineError(models.ErrCodeGenerationFailed, msg, nil)
	}

	return &GenerateResult{Code: resp.ExtractionCode, Schema: resp.OutputSchema}, nil
}

// ExecuteRequest carries one execution call.
type ExecuteRequest struct {
	URL  string
	HTML string
	Goal string
	Code string
}

// executeWire is the request body for the execution endpoint.
type executeWire struct {
	URL            string `json:"url"`
	HTML           string `json:"html,omitempty"`
	HTMLCompressed bool   `json:"html_compressed,omitempty"`
	Goal           string `json:"goal"`
	ExtractionCode string `json:"extraction_code"`
}

// Execute runs the generated extraction code against the given HTML on the
// collaborator and returns the structured payload verbatim. The payload's
// shape is the definition's business, not ours.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (json.RawMessage, error) {
	html, compressed, err := encodeHTML(req.HTML, c.compressThreshold)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeExecutionFailed, "encoding HTML payload", err)
	}

	body, err := c.post(ctx, "/pages/execute-etl", executeWire{
		URL:            req.URL,
		HTML:           html,
		HTMLCompressed: compressed,
		Goal:           req.Goal,
		ExtractionCode: req.Code,
	}, models.ErrCodeExecutionFailed)
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, models.NewPipelineError(models.ErrCodeExecutionFailed, "execution returned invalid JSON", nil)
	}
	return json.RawMessage(body), nil
}

// post sends one JSON request and returns the raw response body. Failures
// (transport errors, deadlines, non-2xx statuses) are classified into the
// pipeline taxonomy with the collaborator's diagnostic text attached.
func (c *Client) post(ctx context.Context, path string, payload any, failCode string) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, models.NewPipelineError(models.ErrCodeTimeout, "collaborator call aborted", err)
		}
		return nil, models.NewPipelineError(failCode, "collaborator request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, models.NewPipelineError(models.ErrCodeTimeout, "collaborator call aborted", err)
		}
		return nil, models.NewPipelineError(failCode, "reading collaborator response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewPipelineError(failCode,
			fmt.Sprintf("collaborator returned %d: %s", resp.StatusCode, diagnostic(respBody)), nil)
	}
	return respBody, nil
}

// diagnostic extracts the service's error text from an error body. The
// collaborator reports either {"detail": ...} or {"error": ...}.
func diagnostic(body []byte) string {
	var wrapped struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		if wrapped.Detail != "" {
			return wrapped.Detail
		}
		if wrapped.Error != "" {
			return wrapped.Error
		}
	}
	const maxLen = 512
	if len(body) > maxLen {
		body = body[:maxLen]
	}
	return string(body)
}
