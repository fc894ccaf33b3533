package storage

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Café de Paris!!", "cafe-de-paris"},
		{"", "article"},
		{"___", "article"},
		{"Hello, World", "hello-world"},
		{"  Already-clean-slug ", "already-clean-slug"},
		{"Ça c'est PASSÉ à Đà Nẵng", "ca-c-est-passe-a-a-nang"},
		{"100% true", "100-true"},
		{"--leading and trailing--", "leading-and-trailing"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugifyTruncates(t *testing.T) {
	long := strings.Repeat("abcde-", 30)
	got := Slugify(long)
	if len(got) > 80 {
		t.Errorf("Slugify result length = %d, want <= 80", len(got))
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("Slugify result %q ends with a hyphen", got)
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	for _, in := range []string{"Café de Paris!!", "Hello, World", "a b c"} {
		once := Slugify(in)
		if twice := Slugify(once); twice != once {
			t.Errorf("Slugify not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestFirstFreeSuffix(t *testing.T) {
	taken := map[string]struct{}{
		"my-post":   {},
		"my-post-2": {},
		"my-post-3": {},
	}
	if got := firstFreeSuffix("my-post", taken); got != "my-post-4" {
		t.Errorf("firstFreeSuffix = %q, want %q", got, "my-post-4")
	}
	if got := firstFreeSuffix("fresh", taken); got != "fresh" {
		t.Errorf("firstFreeSuffix = %q, want %q", got, "fresh")
	}
}
