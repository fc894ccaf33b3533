package pressroom

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// contentSanitizer scrubs admin-submitted rich-text HTML down to the markup
// the editor actually produces. Everything else, scripts above all, is
// stripped rather than escaped.
type contentSanitizer struct {
	policy *bluemonday.Policy
}

func newContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "hr",
		"strong", "b", "em", "i", "u", "s",
		"h1", "h2", "h3", "h4",
		"blockquote", "ul", "ol", "li",
		"span", "code", "pre",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AllowAttrs("rel").OnElements("a")
	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowElements("a", "img")

	// The editor only emits text-align; no other inline styles survive.
	p.AllowAttrs("style").
		Matching(regexp.MustCompile(`^text-align:\s*(left|right|center|justify);?$`)).
		OnElements("p", "h1", "h2", "h3", "h4", "span")

	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireParseableURLs(true)

	return &contentSanitizer{policy: p}
}

// SanitizeHTML returns html with disallowed markup removed.
func (s *contentSanitizer) SanitizeHTML(html string) string {
	return s.policy.Sanitize(html)
}

// sanitizeText strips any markup from a plain-text field, collapses
// surrounding whitespace and enforces a length cap in runes.
func (s *contentSanitizer) sanitizeText(v string, max int) string {
	v = strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(v))
	if r := []rune(v); len(r) > max {
		v = string(r[:max])
	}
	return v
}
