// Package cleaner prepares snapshot HTML for the collaborator services.
//
// Generation calls ship the snapshot inside an LLM prompt, so oversized
// documents are stripped of non-content elements first. Stripping only
// removes elements, so CSS selectors in the generated code stay valid against
// the raw snapshot. The package also derives human-facing summaries and
// markdown previews of captured snapshots.
package cleaner

import (
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// noiseSelector matches elements that carry no extractable data. Compiled
// once; cascadia.Selector satisfies goquery.Matcher.
var noiseSelector = cascadia.MustCompile("script, style, noscript, iframe, svg, link, meta[name], template")

// Cleaner holds the reusable, goroutine-safe conversion machinery.
type Cleaner struct {
	conv *converter.Converter
}

// NewCleaner builds a Cleaner with a markdown converter configured for
// compact output: the base plugin strips residual noise, commonmark renders
// standard markdown, and the table plugin keeps tabular data readable with
// minimal cell padding.
func NewCleaner() *Cleaner {
	return &Cleaner{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// StripNoise removes script/style/etc. elements and returns the remaining
// HTML. Elements are only deleted, never moved, so selector paths into the
// surviving content are unchanged. On parse failure the input is returned
// untouched; preparation must never block the pipeline.
func (c *Cleaner) StripNoise(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	doc.FindMatcher(noiseSelector).Remove()

	out, err := doc.Html()
	if err != nil {
		return rawHTML
	}
	return out
}

// Markdown renders HTML as markdown. The domain resolves relative links so
// the preview is self-contained.
func (c *Cleaner) Markdown(rawHTML, domain string) (string, error) {
	return c.conv.ConvertString(rawHTML, converter.WithDomain(domain))
}

// EstimateTokens is a fast token count estimate: utf8 rune count / 3, a
// middle ground between ~4 chars/token English and ~1.5 chars/token CJK.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	if est := n / 3; est > 0 {
		return est
	}
	return 1
}
