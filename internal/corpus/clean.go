package corpus

import (
	"regexp"
	"strings"
)

var (
	urlPattern      = regexp.MustCompile(`http\S+`)
	pageFooter      = regexp.MustCompile(`(?i)Page \d+\s+of\s+\d+`)
	bracketedNumber = regexp.MustCompile(`[\[(]\s*\d+\s*[\])]`)
)

// Clean strips artifacts common in text extracted from PDFs: URLs,
// "Page N of M" footers and bracketed reference numbers. Whitespace runs
// collapse to single spaces.
func Clean(text string) string {
	text = urlPattern.ReplaceAllString(text, "")
	text = pageFooter.ReplaceAllString(text, "")
	text = bracketedNumber.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}
