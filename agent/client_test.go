package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/use-agent/pagent/models"
)

func TestGenerate(t *testing.T) {
	var got generateWire
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pages/learn-etl", r.URL.Path)
		require.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(map[string]any{
			"extraction_code": "def extract(html): ...",
			"output_schema":   map[string]string{"title": "string"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key", 0, nil)
	result, err := c.Generate(context.Background(), GenerateRequest{
		URL:  "https://example.com",
		HTML: "<p>hi</p>",
		Goal: "extract titles",
	})
	require.NoError(t, err)
	require.Equal(t, "def extract(html): ...", result.Code)
	require.JSONEq(t, `{"title": "string"}`, string(result.Schema))

	require.Equal(t, "https://example.com", got.URL)
	require.Equal(t, "<p>hi</p>", got.HTML)
	require.False(t, got.HTMLCompressed)
	require.Equal(t, "extract titles", got.Goal)
}

func TestGenerate_MissingCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "could not derive selectors"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0, nil)
	_, err := c.Generate(context.Background(), GenerateRequest{URL: "https://example.com", HTML: "<p/>", Goal: "g"})
	require.True(t, models.IsCode(err, models.ErrCodeGenerationFailed))
	require.Contains(t, err.Error(), "could not derive selectors")
}

func TestGenerate_ServerErrorCarriesDiagnostic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"detail": "upstream model unavailable"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0, nil)
	_, err := c.Generate(context.Background(), GenerateRequest{URL: "https://example.com", HTML: "<p/>", Goal: "g"})
	require.True(t, models.IsCode(err, models.ErrCodeGenerationFailed))
	require.Contains(t, err.Error(), "502")
	require.Contains(t, err.Error(), "upstream model unavailable")
}

func TestGenerate_CompressesLargeHTML(t *testing.T) {
	var got generateWire
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]string{"extraction_code": "code"})
	}))
	defer srv.Close()

	html := strings.Repeat("<div>row</div>", 100)
	c := NewClient(srv.URL, "", 64, nil)
	_, err := c.Generate(context.Background(), GenerateRequest{URL: "https://example.com", HTML: html, Goal: "g"})
	require.NoError(t, err)

	require.True(t, got.HTMLCompressed)
	require.NotEqual(t, html, got.HTML)

	decoded, err := decodeHTML(got.HTML)
	require.NoError(t, err)
	require.Equal(t, html, decoded)
}

func TestExecute_ReturnsPayloadVerbatim(t *testing.T) {
	payload := `{"title": "Widget", "prices": [19.99, 24.99]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pages/execute-etl", r.URL.Path)
		var wire executeWire
		require.NoError(t, json.NewDecoder(r.Body).Decode(&wire))
		require.Equal(t, "def extract(html): ...", wire.ExtractionCode)
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0, nil)
	out, err := c.Execute(context.Background(), ExecuteRequest{
		URL:  "https://example.com",
		HTML: "<p>hi</p>",
		Goal: "g",
		Code: "def extract(html): ...",
	})
	require.NoError(t, err)
	require.Equal(t, payload, string(out))
}

func TestExecute_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0, nil)
	_, err := c.Execute(context.Background(), ExecuteRequest{URL: "https://example.com", HTML: "<p/>", Goal: "g", Code: "c"})
	require.True(t, models.IsCode(err, models.ErrCodeExecutionFailed))
}

func TestExecute_DeadlineClassifiedAsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := NewClient(srv.URL, "", 0, nil)
	_, err := c.Execute(ctx, ExecuteRequest{URL: "https://example.com", HTML: "<p/>", Goal: "g", Code: "c"})
	require.True(t, models.IsCode(err, models.ErrCodeTimeout))
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pages/get-html", r.URL.Path)
		var wire fetchWire
		require.NoError(t, json.NewDecoder(r.Body).Decode(&wire))
		require.Equal(t, "gzip", wire.Format)

		encoded, _, err := encodeHTML("<html><body>rendered</body></html>", 1)
		require.NoError(t, err)
		json.NewEncoder(w).Encode(map[string]any{
			"html_gzip_base64": encoded,
			"meta": map[string]any{
				"url":       wire.URL,
				"method":    "browser",
				"timestamp": "2026-08-29T12:00:00Z",
				"status":    "success",
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0, nil)
	html, meta, err := c.Fetch(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "<html><body>rendered</body></html>", html)
	require.Equal(t, "browser", meta.Method)
	require.Equal(t, 200, meta.Status)
	require.Equal(t, int64(len(html)), meta.ByteLength)
	require.Equal(t, "2026-08-29T12:00:00Z", meta.FetchedAt)
}

func TestFetch_EmptyHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"meta": map[string]any{"status": "error"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0, nil)
	_, _, err := c.Fetch(context.Background(), "https://example.com")
	require.True(t, models.IsCode(err, models.ErrCodeExecutionFailed))
}

func TestEncodeHTML_BelowThresholdUntouched(t *testing.T) {
	out, compressed, err := encodeHTML("<p>small</p>", 1024)
	require.NoError(t, err)
	require.False(t, compressed)
	require.Equal(t, "<p>small</p>", out)
}

func TestEncodeDecodeHTML_Roundtrip(t *testing.T) {
	original := strings.Repeat("<tr><td>data</td></tr>", 200)
	encoded, compressed, err := encodeHTML(original, 16)
	require.NoError(t, err)
	require.True(t, compressed)
	require.Less(t, len(encoded), len(original))

	decoded, err := decodeHTML(encoded)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}
