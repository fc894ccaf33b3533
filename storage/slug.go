package storage

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	slugMaxLen   = 80
	slugFallback = "article"

	// slugMaxAttempts bounds the conflict-retry loop when concurrent creates
	// race for the same root slug.
	slugMaxAttempts = 5
)

// Slugify converts free text to a URL-safe slug: lowercase, diacritics
// stripped, every run of non [a-z0-9] collapsed to a single hyphen, trimmed
// and truncated to 80 characters. Empty results fall back to "article".
func Slugify(raw string) string {
	decomposed := norm.NFD.String(strings.TrimSpace(raw))
	var b strings.Builder
	pendingHyphen := false
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue // combining mark from decomposition
		}
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingHyphen = false
		} else {
			pendingHyphen = true
		}
	}
	slug := b.String()
	if len(slug) > slugMaxLen {
		slug = strings.TrimRight(slug[:slugMaxLen], "-")
	}
	if slug == "" {
		return slugFallback
	}
	return slug
}

// slugCandidate returns the root for attempt 1 and "root-N" for N >= 2.
func slugCandidate(root string, n int) string {
	if n <= 1 {
		return root
	}
	return fmt.Sprintf("%s-%d", root, n)
}

// slugRoot picks the allocation candidate: the explicit slug when given,
// otherwise the title.
func slugRoot(in ArticleInput) string {
	if strings.TrimSpace(in.Slug) != "" {
		return Slugify(in.Slug)
	}
	return Slugify(in.Title)
}

// firstFreeSuffix returns the first candidate derived from root that is not
// present in taken, trying the bare root first, then -2, -3, ...
func firstFreeSuffix(root string, taken map[string]struct{}) string {
	if _, ok := taken[root]; !ok {
		return root
	}
	for n := 2; ; n++ {
		candidate := slugCandidate(root, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
