package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelector lists elements whose text never carries readings.
const noiseSelector = "script, style, noscript, template"

var blankLines = regexp.MustCompile(`\n+`)

// Normalize parses an HTML document and returns the text of its body, one
// trimmed non-empty line per line of source text.
func Normalize(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("extract: parse html: %w", err)
	}
	doc.Find(noiseSelector).Remove()
	return strings.Join(Lines(doc.Find("body").Text()), "\n"), nil
}

// Lines splits text on newlines and drops blank lines.
func Lines(text string) []string {
	parts := blankLines.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
