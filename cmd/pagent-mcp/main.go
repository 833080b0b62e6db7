// pagent-mcp bridges the pagent HTTP API onto MCP stdio, so agent hosts can
// drive the extraction pipeline as tools.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// apiEnvelope is the common success/error wrapper of the pagent API.
type apiEnvelope struct {
	Success bool `json:"success"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("PAGENT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PAGENT_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "PAGENT_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"pagent",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	createPageTool := mcp.NewTool("create_page",
		mcp.WithDescription("Start tracking a URL. Returns the page id used by the other tools."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL to track"),
		),
	)
	s.AddTool(createPageTool, handleCreatePage(apiURL, apiKey))

	captureTool := mcp.NewTool("capture_snapshot",
		mcp.WithDescription("Capture an immutable HTML snapshot of a tracked page via the scrape-fetch service."),
		mcp.WithString("page_id",
			mcp.Required(),
			mcp.Description("The page to capture"),
		),
	)
	s.AddTool(captureTool, handleCapture(apiURL, apiKey))

	learnTool := mcp.NewTool("learn_extraction",
		mcp.WithDescription("Generate an extraction definition for a snapshot from a free-text goal. Takes tens of seconds; the definition is ready to execute when this returns."),
		mcp.WithString("page_id",
			mcp.Required(),
			mcp.Description("The page the snapshot belongs to"),
		),
		mcp.WithString("snapshot_id",
			mcp.Required(),
			mcp.Description("The snapshot to train on"),
		),
		mcp.WithString("goal",
			mcp.Required(),
			mcp.Description("What to extract, e.g. 'extract product names and prices'"),
		),
	)
	s.AddTool(learnTool, handleLearn(apiURL, apiKey))

	retrainTool := mcp.NewTool("retrain_extraction",
		mcp.WithDescription("Fork a definition with a refinement goal. The original definition is kept unchanged."),
		mcp.WithString("definition_id",
			mcp.Required(),
			mcp.Description("The definition to refine"),
		),
		mcp.WithString("refinement_goal",
			mcp.Required(),
			mcp.Description("Additional instruction, e.g. 'also extract availability'"),
		),
	)
	s.AddTool(retrainTool, handleRetrain(apiURL, apiKey))

	executeTool := mcp.NewTool("execute_extraction",
		mcp.WithDescription("Run a ready definition against a snapshot of the same page and return the extracted data."),
		mcp.WithString("definition_id",
			mcp.Required(),
			mcp.Description("The definition to run"),
		),
		mcp.WithString("snapshot_id",
			mcp.Required(),
			mcp.Description("The snapshot to run against"),
		),
	)
	s.AddTool(executeTool, handleExecute(apiURL, apiKey))

	driftTool := mcp.NewTool("drift_report",
		mcp.WithDescription("List a page's runs whose output no longer matches the definition's declared schema, a retraining signal."),
		mcp.WithString("page_id",
			mcp.Required(),
			mcp.Description("The page to report on"),
		),
	)
	s.AddTool(driftTool, handleDriftReport(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiCall sends one request to the pagent API and returns the raw body, or a
// tool-friendly error when the API reports failure.
func apiCall(ctx context.Context, client *http.Client, apiKey, method, url string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env apiEnvelope
	if err := json.Unmarshal(respBody, &env); err == nil && !env.Success && env.Error != nil {
		return nil, fmt.Errorf("%s: %s", env.Error.Code, env.Error.Message)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return respBody, nil
}

func handleCreatePage(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		body, err := apiCall(ctx, client, apiKey, http.MethodPost, apiURL+"/api/v1/pages",
			map[string]string{"url": url})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func handleCapture(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pageID, err := request.RequireString("page_id")
		if err != nil {
			return mcp.NewToolResultError("page_id is required"), nil
		}

		body, err := apiCall(ctx, client, apiKey, http.MethodPost,
			fmt.Sprintf("%s/api/v1/pages/%s/capture", apiURL, pageID), map[string]string{})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func handleLearn(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pageID, err := request.RequireString("page_id")
		if err != nil {
			return mcp.NewToolResultError("page_id is required"), nil
		}
		snapshotID, err := request.RequireString("snapshot_id")
		if err != nil {
			return mcp.NewToolResultError("snapshot_id is required"), nil
		}
		goal, err := request.RequireString("goal")
		if err != nil {
			return mcp.NewToolResultError("goal is required"), nil
		}

		body, err := apiCall(ctx, client, apiKey, http.MethodPost,
			fmt.Sprintf("%s/api/v1/pages/%s/definitions", apiURL, pageID),
			map[string]string{"snapshot_id": snapshotID, "goal": goal})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func handleRetrain(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		definitionID, err := request.RequireString("definition_id")
		if err != nil {
			return mcp.NewToolResultError("definition_id is required"), nil
		}
		refinement, err := request.RequireString("refinement_goal")
		if err != nil {
			return mcp.NewToolResultError("refinement_goal is required"), nil
		}

		body, err := apiCall(ctx, client, apiKey, http.MethodPost,
			fmt.Sprintf("%s/api/v1/definitions/%s/retrain", apiURL, definitionID),
			map[string]string{"refinement_goal": refinement})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func handleExecute(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		definitionID, err := request.RequireString("definition_id")
		if err != nil {
			return mcp.NewToolResultError("definition_id is required"), nil
		}
		snapshotID, err := request.RequireString("snapshot_id")
		if err != nil {
			return mcp.NewToolResultError("snapshot_id is required"), nil
		}

		body, err := apiCall(ctx, client, apiKey, http.MethodPost,
			fmt.Sprintf("%s/api/v1/definitions/%s/runs", apiURL, definitionID),
			map[string]string{"snapshot_id": snapshotID})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func handleDriftReport(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pageID, err := request.RequireString("page_id")
		if err != nil {
			return mcp.NewToolResultError("page_id is required"), nil
		}

		body, err := apiCall(ctx, client, apiKey, http.MethodGet,
			fmt.Sprintf("%s/api/v1/pages/%s/drift-report", apiURL, pageID), nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}
