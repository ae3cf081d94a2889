package crawler

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// Normalizer converts raw HTML into the normalized markdown that gets
// fingerprinted and fed to extraction.
type Normalizer struct {
	policy    *bluemonday.Policy
	converter *converter.Converter
}

// NewNormalizer creates a Normalizer with a UGC sanitation policy and a
// commonmark converter that keeps tables, since reward terms are usually
// published as rate tables.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		policy: bluemonday.UGCPolicy(),
		converter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Normalize sanitizes the HTML, converts it to markdown, and collapses
// whitespace so cosmetic markup churn does not register as a content change.
func (n *Normalizer) Normalize(html, sourceURL string) (string, error) {
	clean := n.policy.Sanitize(html)

	md, err := n.converter.ConvertString(clean, converter.WithDomain(sourceURL))
	if err != nil {
		return "", err
	}

	// Trim trailing spaces per line, then collapse runs of blank lines.
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	md = strings.Join(lines, "\n")
	md = blankLines.ReplaceAllString(md, "\n\n")

	return strings.TrimSpace(md), nil
}
