package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
)

// MemoryStore is the non-durable fallback backend. All state lives behind a
// single mutex so read-modify-write sequences (slug allocation + insert,
// update, delete) keep the uniqueness invariant under concurrent requests.
type MemoryStore struct {
	mu sync.Mutex

	articles map[int64]Article
	nextID   int64

	landing LandingContent

	activity       []ActivityEntry
	nextActivityID int64
}

// NewMemoryStore returns an empty in-memory store with the landing record
// preset to the hard-coded defaults.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		articles:       make(map[int64]Article),
		nextID:         1,
		landing:        DefaultLandingContent(),
		nextActivityID: 1,
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() {}

// ---------------------------------------------------------------------------
// Articles
// ---------------------------------------------------------------------------

// takenSlugs collects every slug derived from root, excluding one id.
// Callers must hold the mutex.
func (s *MemoryStore) takenSlugs(root string, excludeID int64) map[string]struct{} {
	taken := make(map[string]struct{})
	prefix := root + "-"
	for id, a := range s.articles {
		if id == excludeID {
			continue
		}
		if a.Slug == root || strings.HasPrefix(a.Slug, prefix) {
			taken[a.Slug] = struct{}{}
		}
	}
	return taken
}

func (s *MemoryStore) CreateArticle(_ context.Context, in ArticleInput) (Article, error) {
	in = in.normalized()
	if in.Title == "" {
		return Article{}, fmt.Errorf("create article: title is required: %w", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	a := Article{
		ID:             s.nextID,
		Title:          in.Title,
		Slug:           firstFreeSuffix(slugRoot(in), s.takenSlugs(slugRoot(in), 0)),
		Excerpt:        in.Excerpt,
		Content:        in.Content,
		CoverImageURL:  in.CoverImageURL,
		OGImageURL:     in.OGImageURL,
		SEOTitle:       in.SEOTitle,
		SEODescription: in.SEODescription,
		Categories:     in.Categories,
		Tags:           in.Tags,
		Published:      in.Published,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.nextID++
	s.articles[a.ID] = a
	return a, nil
}

func (s *MemoryStore) UpdateArticle(_ context.Context, id int64, in ArticleInput) (Article, error) {
	if id <= 0 {
		return Article{}, fmt.Errorf("update article: non-positive id: %w", ErrValidation)
	}
	in = in.normalized()
	if in.Title == "" {
		return Article{}, fmt.Errorf("update article: title is required: %w", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.articles[id]
	if !ok {
		return Article{}, fmt.Errorf("update article %d: %w", id, ErrNotFound)
	}

	root := slugRoot(in)
	a := Article{
		ID:             id,
		Title:          in.Title,
		Slug:           firstFreeSuffix(root, s.takenSlugs(root, id)),
		Excerpt:        in.Excerpt,
		Content:        in.Content,
		CoverImageURL:  in.CoverImageURL,
		OGImageURL:     in.OGImageURL,
		SEOTitle:       in.SEOTitle,
		SEODescription: in.SEODescription,
		Categories:     in.Categories,
		Tags:           in.Tags,
		Published:      in.Published,
		CreatedAt:      current.CreatedAt,
		UpdatedAt:      time.Now().UTC(),
	}
	s.articles[id] = a
	return a, nil
}

func (s *MemoryStore) DeleteArticle(_ context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, fmt.Errorf("delete article: non-positive id: %w", ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.articles[id]; !ok {
		return false, nil
	}
	delete(s.articles, id)
	return true, nil
}

func (s *MemoryStore) ArticleByID(_ context.Context, id int64) (Article, error) {
	if id <= 0 {
		return Article{}, fmt.Errorf("get article: non-positive id: %w", ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return Article{}, fmt.Errorf("get article %d: %w", id, ErrNotFound)
	}
	return a, nil
}

func (s *MemoryStore) ArticleBySlug(_ context.Context, slug string) (Article, error) {
	if strings.TrimSpace(slug) == "" {
		return Article{}, fmt.Errorf("get article by slug: empty slug: %w", ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.articles {
		if a.Slug == slug && a.Published {
			return a, nil
		}
	}
	return Article{}, fmt.Errorf("get article by slug %q: %w", slug, ErrNotFound)
}

func (s *MemoryStore) ListArticles(_ context.Context, f ListFilter) (ArticlePage, error) {
	f.normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []Article
	for _, a := range s.articles {
		if matchesFilter(a, f) {
			matched = append(matched, a)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := f.pageOffset(total)
	end := start + f.PageSize
	if end > total {
		end = total
	}

	items := make([]Article, end-start)
	copy(items, matched[start:end])
	return ArticlePage{Items: items, Pagination: paginationFor(f, total)}, nil
}

func matchesFilter(a Article, f ListFilter) bool {
	if f.PublishedOnly && !a.Published {
		return false
	}
	if f.Category != "" && !containsLabel(a.Categories, f.Category) {
		return false
	}
	if f.Tag != "" && !containsLabel(a.Tags, f.Tag) {
		return false
	}
	if q := strings.TrimSpace(f.Query); q != "" && !matchesQuery(a, q) {
		return false
	}
	return true
}

func containsLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

// queryWords lowercases s and splits it on every non-alphanumeric rune, the
// way the simple text-search configuration tokenizes on the durable backend.
func queryWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matchesQuery reports whether every word of the query appears as a whole
// word, case-insensitively, in the article's title, excerpt or content
// combined. Whole-word matching mirrors the lexeme semantics of the Postgres
// full-text match: "bank" does not match "banking" on either backend.
func matchesQuery(a Article, q string) bool {
	words := make(map[string]struct{})
	for _, w := range queryWords(a.Title + " " + a.Excerpt + " " + a.Content) {
		words[w] = struct{}{}
	}
	for _, token := range queryWords(q) {
		if _, ok := words[token]; !ok {
			return false
		}
	}
	return true
}

func (s *MemoryStore) SlugAvailable(_ context.Context, slug string, excludeID int64) (bool, error) {
	if slug == "" || Slugify(slug) != slug {
		return false, fmt.Errorf("check slug: malformed slug %q: %w", slug, ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.articles {
		if id != excludeID && a.Slug == slug {
			return false, nil
		}
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// Taxonomies
// ---------------------------------------------------------------------------

func (s *MemoryStore) Taxonomies(context.Context) (Taxonomies, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catSet := make(map[string]struct{})
	tagSet := make(map[string]struct{})
	for _, a := range s.articles {
		for _, c := range a.Categories {
			catSet[c] = struct{}{}
		}
		for _, t := range a.Tags {
			tagSet[t] = struct{}{}
		}
	}

	t := Taxonomies{
		Categories: make([]string, 0, len(catSet)),
		Tags:       make([]string, 0, len(tagSet)),
	}
	for c := range catSet {
		t.Categories = append(t.Categories, c)
	}
	for tg := range tagSet {
		t.Tags = append(t.Tags, tg)
	}
	sort.Strings(t.Categories)
	sort.Strings(t.Tags)
	return t, nil
}

// ---------------------------------------------------------------------------
// Landing content
// ---------------------------------------------------------------------------

func (s *MemoryStore) LandingContent(context.Context) (LandingContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.landing.mergeDefaults(), nil
}

func (s *MemoryStore) UpdateLandingContent(_ context.Context, c LandingContent) (LandingContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.landing = c.mergeDefaults()
	return s.landing, nil
}

// ---------------------------------------------------------------------------
// Activity log
// ---------------------------------------------------------------------------

func (s *MemoryStore) AppendActivity(_ context.Context, e ActivityEntry) error {
	if strings.TrimSpace(e.Action) == "" {
		return fmt.Errorf("append activity: action is required: %w", ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextActivityID
	s.nextActivityID++
	e.CreatedAt = time.Now().UTC()
	s.activity = append(s.activity, e)
	return nil
}

func (s *MemoryStore) ListActivity(_ context.Context, limit int) ([]ActivityEntry, error) {
	limit = clampActivityLimit(limit)
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.activity)
	if limit > n {
		limit = n
	}
	entries := make([]ActivityEntry, limit)
	for i := 0; i < limit; i++ {
		entries[i] = s.activity[n-1-i]
	}
	return entries, nil
}
