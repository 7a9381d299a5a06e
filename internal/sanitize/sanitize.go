// Package sanitize turns model output into plain text fit for chat messages.
package sanitize

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	blockTags = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?li>|</?h[1-6]>`)
	blankRuns = regexp.MustCompile(`\n\s*\n+`)

	policy   = bluemonday.StrictPolicy()
	markdown = goldmark.New()
)

// PlainText strips markdown and HTML from text, keeping paragraph breaks.
func PlainText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return strings.TrimSpace(text)
	}

	out := blockTags.ReplaceAllString(buf.String(), "\n")
	out = policy.Sanitize(out)
	out = blankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(html.UnescapeString(out))
}
