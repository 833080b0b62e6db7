package agent

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
)

// encodeHTML prepares HTML for the wire. Documents above the threshold are
// gzipped and base64-encoded (compressed=true); smaller ones travel as-is.
// A threshold <= 0 disables compression.
func encodeHTML(html string, threshold int) (string, bool, error) {
	if threshold <= 0 || len(html) < threshold {
		return html, false, nil
	}

	var buf bytes.Buffer
	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	zw := gzip.NewWriter(enc)
	if _, err := zw.Write([]byte(html)); err != nil {
		return "", false, fmt.Errorf("gzip HTML: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", false, fmt.Errorf("gzip HTML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", false, fmt.Errorf("encode HTML: %w", err)
	}
	return buf.String(), true, nil
}

// decodeHTML reverses encodeHTML for payloads the collaborator sends back
// compressed.
func decodeHTML(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode HTML: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("gunzip HTML: %w", err)
	}
	defer zr.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(zr); err != nil {
		return "", fmt.Errorf("gunzip HTML: %w", err)
	}
	return buf.String(), nil
}
