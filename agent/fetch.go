package agent

import (
	"context"
	"encoding/json"

	"github.com/use-agent/pagent/models"
)

// fetchWire is the request body for the scrape-fetch endpoint. The gzip
// format keeps large renders cheap on the wire.
type fetchWire struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

// fetchResponse is the scrape-fetch endpoint's response.
type fetchResponse struct {
	HTML           string `json:"html,omitempty"`
	HTMLGzipBase64 string `json:"html_gzip_base64,omitempty"`
	Meta           struct {
		URL           string `json:"url"`
		Method        string `json:"method"`
		Timestamp     string `json:"timestamp"`
		ContentLength int64  `json:"content_length"`
		Status        string `json:"status"`
		StatusCode    int    `json:"status_code,omitempty"`
	} `json:"meta"`
}

// Fetch asks the scrape-fetch collaborator to render the URL and returns the
// HTML plus fetch metadata. Fetching is entirely the collaborator's concern;
// the core only records the outcome as a snapshot.
func (c *Client) Fetch(ctx context.Context, url string) (string, models.SnapshotMeta, error) {
	var meta models.SnapshotMeta

	body, err := c.post(ctx, "/pages/get-html", fetchWire{URL: url, Format: "gzip"}, models.ErrCodeExecutionFailed)
	if err != nil {
		return "", meta, err
	}

	var resp fetchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", meta, models.NewPipelineError(models.ErrCodeExecutionFailed, "malformed fetch response", err)
	}

	html := resp.HTML
	if html == "" && resp.HTMLGzipBase64 != "" {
		html, err = decodeHTML(resp.HTMLGzipBase64)
		if err != nil {
			return "", meta, models.NewPipelineError(models.ErrCodeExecutionFailed, "decoding fetched HTML", err)
		}
	}
	if html == "" {
		return "", meta, models.NewPipelineError(models.ErrCodeExecutionFailed, "fetch returned empty HTML", nil)
	}

	meta = models.SnapshotMeta{
		ContentType: "text/html; charset=utf-8",
		ByteLength:  resp.Meta.ContentLength,
		FetchedAt:   resp.Meta.Timestamp,
		Method:      resp.Meta.Method,
		Status:      resp.Meta.StatusCode,
	}
	if meta.ByteLength == 0 {
		meta.ByteLength = int64(len(html))
	}
	if meta.Status == 0 && resp.Meta.Status == "success" {
		meta.Status = 200
	}
	return html, meta, nil
}
