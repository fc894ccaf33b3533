package storage_test

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avolier/pressroom/storage"
)

func newStore(t *testing.T) storage.Store {
	t.Helper()
	return storage.NewMemoryStore()
}

func articleInput(title string) storage.ArticleInput {
	return storage.ArticleInput{
		Title:     title,
		Excerpt:   "excerpt for " + title,
		Content:   "<p>content for " + title + "</p>",
		Published: true,
	}
}

func TestCreateArticle_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	in := articleInput("My First Post")
	in.Categories = []string{"Visa", "Housing"}
	in.Tags = []string{"bangkok"}
	in.SEOTitle = "Custom SEO title"

	created, err := s.CreateArticle(ctx, in)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, "my-first-post", created.Slug)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := s.ArticleByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreateArticle_EmptyTitle(t *testing.T) {
	s := newStore(t)
	_, err := s.CreateArticle(context.Background(), storage.ArticleInput{Title: "   "})
	require.ErrorIs(t, err, storage.ErrValidation)
}

func TestCreateArticle_SlugSuffixes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first, err := s.CreateArticle(ctx, articleInput("My Post"))
	require.NoError(t, err)
	second, err := s.CreateArticle(ctx, articleInput("My Post"))
	require.NoError(t, err)
	third, err := s.CreateArticle(ctx, articleInput("My Post"))
	require.NoError(t, err)

	assert.Equal(t, "my-post", first.Slug)
	assert.Equal(t, "my-post-2", second.Slug)
	assert.Equal(t, "my-post-3", third.Slug)
}

func TestCreateArticle_ExplicitSlugWins(t *testing.T) {
	s := newStore(t)
	in := articleInput("A Title Nobody Sees")
	in.Slug = "Chosen Slug!"
	created, err := s.CreateArticle(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "chosen-slug", created.Slug)
}

func TestCreateArticle_LabelNormalization(t *testing.T) {
	s := newStore(t)
	in := articleInput("Labels")
	in.Categories = []string{" Visa ", "Visa", "", "Housing"}
	var tags []string
	for i := 0; i < 20; i++ {
		tags = append(tags, fmt.Sprintf("tag-%02d", i))
	}
	in.Tags = tags

	created, err := s.CreateArticle(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"Visa", "Housing"}, created.Categories)
	assert.Len(t, created.Tags, storage.MaxLabels)
	assert.Equal(t, "tag-00", created.Tags[0])
}

func TestUpdateArticle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	created, err := s.CreateArticle(ctx, articleInput("Original"))
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	in := articleInput("Renamed")
	in.Published = false
	updated, err := s.UpdateArticle(ctx, created.ID, in)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "renamed", updated.Slug)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.False(t, updated.Published)
}

func TestUpdateArticle_KeepsOwnSlug(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	created, err := s.CreateArticle(ctx, articleInput("Stable Slug"))
	require.NoError(t, err)

	// Re-saving with the same title must not bump the slug to -2.
	updated, err := s.UpdateArticle(ctx, created.ID, articleInput("Stable Slug"))
	require.NoError(t, err)
	assert.Equal(t, "stable-slug", updated.Slug)
}

func TestUpdateArticle_NotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.UpdateArticle(context.Background(), 9999, articleInput("Ghost"))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteArticle_Idempotent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	created, err := s.CreateArticle(ctx, articleInput("Doomed"))
	require.NoError(t, err)

	removed, err := s.DeleteArticle(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.DeleteArticle(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	// Slug becomes available again after deletion.
	recreated, err := s.CreateArticle(ctx, articleInput("Doomed"))
	require.NoError(t, err)
	assert.Equal(t, "doomed", recreated.Slug)
}

func TestArticleBySlug_Visibility(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	in := articleInput("Hidden Draft")
	in.Published = false
	created, err := s.CreateArticle(ctx, in)
	require.NoError(t, err)

	// Admin lookup by id sees the draft.
	_, err = s.ArticleByID(ctx, created.ID)
	require.NoError(t, err)

	// Public lookup by slug does not, even with the exact slug.
	_, err = s.ArticleBySlug(ctx, created.Slug)
	require.ErrorIs(t, err, storage.ErrNotFound)

	page, err := s.ListArticles(ctx, storage.ListFilter{PublishedOnly: true})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestListArticles_PaginationMath(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := s.CreateArticle(ctx, articleInput(fmt.Sprintf("Post %02d", i)))
		require.NoError(t, err)
	}

	page1, err := s.ListArticles(ctx, storage.ListFilter{Page: 1, PageSize: 9})
	require.NoError(t, err)
	assert.Len(t, page1.Items, 9)
	assert.Equal(t, 25, page1.Pagination.Total)
	assert.Equal(t, 3, page1.Pagination.TotalPages)

	page3, err := s.ListArticles(ctx, storage.ListFilter{Page: 3, PageSize: 9})
	require.NoError(t, err)
	assert.Len(t, page3.Items, 7)

	page9, err := s.ListArticles(ctx, storage.ListFilter{Page: 9, PageSize: 9})
	require.NoError(t, err)
	assert.Empty(t, page9.Items)
	assert.Equal(t, 3, page9.Pagination.TotalPages)
}

func TestListArticles_HugePageNumber(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.CreateArticle(ctx, articleInput(fmt.Sprintf("Post %d", i)))
		require.NoError(t, err)
	}

	// A page number large enough to overflow (page-1)*pageSize must yield an
	// empty page, never a panic.
	page, err := s.ListArticles(ctx, storage.ListFilter{Page: 1024819115206086202, PageSize: 9})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 3, page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.TotalPages)

	page, err = s.ListArticles(ctx, storage.ListFilter{Page: math.MaxInt, PageSize: 50})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestListArticles_Defaults(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	page, err := s.ListArticles(ctx, storage.ListFilter{Page: -3, PageSize: 900})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 50, page.Pagination.PageSize)
	assert.Equal(t, 1, page.Pagination.TotalPages)

	page, err = s.ListArticles(ctx, storage.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 9, page.Pagination.PageSize)
}

func TestListArticles_Order(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	a, err := s.CreateArticle(ctx, articleInput("Older"))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	b, err := s.CreateArticle(ctx, articleInput("Newer"))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	// Touching the older article moves it back to the front.
	_, err = s.UpdateArticle(ctx, a.ID, articleInput("Older"))
	require.NoError(t, err)

	page, err := s.ListArticles(ctx, storage.ListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, a.ID, page.Items[0].ID)
	assert.Equal(t, b.ID, page.Items[1].ID)
}

func TestListArticles_Filters(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	visa := articleInput("Visa renewal guide")
	visa.Categories = []string{"Visa"}
	visa.Tags = []string{"paperwork"}
	_, err := s.CreateArticle(ctx, visa)
	require.NoError(t, err)

	housing := articleInput("Finding a flat")
	housing.Categories = []string{"Housing"}
	housing.Tags = []string{"bangkok"}
	_, err = s.CreateArticle(ctx, housing)
	require.NoError(t, err)

	page, err := s.ListArticles(ctx, storage.ListFilter{Category: "Visa"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Visa renewal guide", page.Items[0].Title)

	page, err = s.ListArticles(ctx, storage.ListFilter{Tag: "bangkok"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Finding a flat", page.Items[0].Title)

	// Exact, case-sensitive containment: no partial label matches.
	page, err = s.ListArticles(ctx, storage.ListFilter{Category: "visa"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestListArticles_FullTextQuery(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	in := articleInput("Opening a bank account")
	in.Content = "<p>You will need your passport and a residence certificate.</p>"
	_, err := s.CreateArticle(ctx, in)
	require.NoError(t, err)

	_, err = s.CreateArticle(ctx, articleInput("Street food favourites"))
	require.NoError(t, err)

	// Tokens match case-insensitively across title, excerpt and content.
	page, err := s.ListArticles(ctx, storage.ListFilter{Query: "PASSPORT bank"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Opening a bank account", page.Items[0].Title)

	page, err = s.ListArticles(ctx, storage.ListFilter{Query: "passport noodles"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	// Tokens match whole words only, not substrings of longer words.
	banking := articleInput("Banking for newcomers")
	banking.Content = "<p>Open an account within your first month.</p>"
	_, err = s.CreateArticle(ctx, banking)
	require.NoError(t, err)

	page, err = s.ListArticles(ctx, storage.ListFilter{Query: "bank"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Opening a bank account", page.Items[0].Title)

	page, err = s.ListArticles(ctx, storage.ListFilter{Query: "banking"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Banking for newcomers", page.Items[0].Title)
}

func TestSlugAvailable(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	created, err := s.CreateArticle(ctx, articleInput("Taken Slug"))
	require.NoError(t, err)

	free, err := s.SlugAvailable(ctx, "taken-slug", 0)
	require.NoError(t, err)
	assert.False(t, free)

	// Excluding the owning article reports the slug as free.
	free, err = s.SlugAvailable(ctx, "taken-slug", created.ID)
	require.NoError(t, err)
	assert.True(t, free)

	free, err = s.SlugAvailable(ctx, "virgin-slug", 0)
	require.NoError(t, err)
	assert.True(t, free)

	_, err = s.SlugAvailable(ctx, "Not A Slug", 0)
	require.ErrorIs(t, err, storage.ErrValidation)
	_, err = s.SlugAvailable(ctx, "", 0)
	require.ErrorIs(t, err, storage.ErrValidation)
}

func TestTaxonomies(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	a := articleInput("One")
	a.Categories = []string{"Visa"}
	_, err := s.CreateArticle(ctx, a)
	require.NoError(t, err)

	b := articleInput("Two")
	b.Categories = []string{"Visa", "Housing"}
	b.Tags = []string{"zebra", "alpha"}
	_, err = s.CreateArticle(ctx, b)
	require.NoError(t, err)

	tax, err := s.Taxonomies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Housing", "Visa"}, tax.Categories)
	assert.Equal(t, []string{"alpha", "zebra"}, tax.Tags)
}

func TestLandingContent_Defaults(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	got, err := s.LandingContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.DefaultLandingContent(), got)
}

func TestUpdateLandingContent_ReplaceWithDefaults(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.UpdateLandingContent(ctx, storage.LandingContent{HeroTitle: "Custom hero"})
	require.NoError(t, err)

	// A second partial update does not keep the previous custom hero: every
	// unset field falls back to the hard-coded default, not the stored value.
	saved, err := s.UpdateLandingContent(ctx, storage.LandingContent{SiteName: "X"})
	require.NoError(t, err)

	want := storage.DefaultLandingContent()
	want.SiteName = "X"
	assert.Equal(t, want, saved)

	got, err := s.LandingContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestActivityLog(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		err := s.AppendActivity(ctx, storage.ActivityEntry{
			Action:     storage.ActionArticleUpdate,
			EntityType: "article",
			EntityID:   int64(i + 1),
			Summary:    fmt.Sprintf("edit %d", i),
			Actor:      "admin",
		})
		require.NoError(t, err)
	}

	// Default limit is 20, newest first.
	entries, err := s.ListActivity(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 20)
	assert.Equal(t, "edit 29", entries[0].Summary)
	assert.True(t, entries[0].ID > entries[1].ID)

	entries, err = s.ListActivity(ctx, 500)
	require.NoError(t, err)
	assert.Len(t, entries, 30)

	err = s.AppendActivity(ctx, storage.ActivityEntry{Action: " "})
	require.ErrorIs(t, err, storage.ErrValidation)
}

func TestCreateArticle_ConcurrentSameTitle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	slugs := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := s.CreateArticle(ctx, articleInput("My Post"))
			if err != nil {
				t.Errorf("concurrent create: %v", err)
				return
			}
			slugs <- a.Slug
		}()
	}
	wg.Wait()
	close(slugs)

	seen := make(map[string]bool)
	for slug := range slugs {
		if seen[slug] {
			t.Fatalf("duplicate slug allocated: %q", slug)
		}
		seen[slug] = true
	}
	assert.Len(t, seen, workers)
	assert.True(t, seen["my-post"])
	assert.True(t, seen["my-post-2"])
}

func TestOpen_RefusesMemoryInProduction(t *testing.T) {
	_, err := storage.Open(context.Background(), storage.Config{Production: true}, zap.NewNop())
	require.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestOpen_FallsBackOutsideProduction(t *testing.T) {
	s, err := storage.Open(context.Background(), storage.Config{}, zap.NewNop())
	require.NoError(t, err)
	_, ok := s.(*storage.MemoryStore)
	assert.True(t, ok)
}
