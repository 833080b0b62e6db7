package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the minimum TextContent length (in characters) for
// readability output to be trusted. Below it we assume the algorithm failed
// to locate the main content.
const minContentLength = 50

// Summary describes a snapshot's content at capture time.
type Summary struct {
	Title         string
	Excerpt       string
	TextLength    int
	TokenEstimate int
}

// Describe runs the Mozilla Readability algorithm on rawHTML to derive the
// snapshot summary stored alongside the capture. Readability failures fall
// back to whole-document statistics; a snapshot is recorded either way.
func (c *Cleaner) Describe(rawHTML, sourceURL string) Summary {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("cleaner: invalid source URL, summarising raw document",
			"url", sourceURL, "error", err,
		)
		return rawSummary(rawHTML)
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Warn("cleaner: readability failed, summarising raw document",
			"url", sourceURL, "error", err,
		)
		return rawSummary(rawHTML)
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minContentLength {
		return rawSummary(rawHTML)
	}

	return Summary{
		Title:         article.Title,
		Excerpt:       article.Excerpt,
		TextLength:    len(text),
		TokenEstimate: EstimateTokens(text),
	}
}

func rawSummary(rawHTML string) Summary {
	return Summary{
		TextLength:    len(rawHTML),
		TokenEstimate: EstimateTokens(rawHTML),
	}
}
