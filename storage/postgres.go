package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// psql builds queries with $N placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore is the durable backend. Every operation is a single atomic
// statement against the pool; slug uniqueness is ultimately enforced by the
// UNIQUE constraint, with the allocator retrying on insert races.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewPostgresStore connects to Postgres, verifies the connection and runs the
// idempotent schema setup. Safe to call on every startup.
func NewPostgresStore(ctx context.Context, cfg Config, log *zap.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", ErrUnavailable)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %v: %w", err, ErrUnavailable)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %v: %w", err, ErrUnavailable)
	}

	s := &PostgresStore{pool: pool, log: log}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// schemaStatements create tables and indexes if missing and apply additive
// column migrations. Each statement is a no-op when already applied, so the
// whole set is safe to re-run on every startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS landing_content (
		id INTEGER PRIMARY KEY,
		site_name TEXT NOT NULL,
		page_title TEXT NOT NULL,
		meta_description TEXT NOT NULL,
		hero_title TEXT NOT NULL,
		hero_subtitle TEXT NOT NULL,
		cta_text TEXT NOT NULL,
		cta_href TEXT NOT NULL,
		card1_title TEXT NOT NULL,
		card1_text TEXT NOT NULL,
		card2_title TEXT NOT NULL,
		card2_text TEXT NOT NULL,
		card3_title TEXT NOT NULL,
		card3_text TEXT NOT NULL,
		footer_text TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		excerpt TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		cover_image_url TEXT NOT NULL DEFAULT '',
		categories TEXT[] NOT NULL DEFAULT '{}',
		tags TEXT[] NOT NULL DEFAULT '{}',
		published BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	// Columns added after the first release.
	`ALTER TABLE articles ADD COLUMN IF NOT EXISTS og_image_url TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE articles ADD COLUMN IF NOT EXISTS seo_title TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE articles ADD COLUMN IF NOT EXISTS seo_description TEXT NOT NULL DEFAULT ''`,
	`CREATE INDEX IF NOT EXISTS articles_published_updated_at_idx
		ON articles (published, updated_at DESC)`,
	`CREATE INDEX IF NOT EXISTS articles_categories_idx ON articles USING GIN (categories)`,
	`CREATE INDEX IF NOT EXISTS articles_tags_idx ON articles USING GIN (tags)`,
	`CREATE INDEX IF NOT EXISTS articles_search_idx ON articles
		USING GIN (to_tsvector('simple', title || ' ' || excerpt || ' ' || content))`,
	`CREATE TABLE IF NOT EXISTS admin_activity_logs (
		id BIGSERIAL PRIMARY KEY,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL DEFAULT '',
		entity_id BIGINT NOT NULL DEFAULT 0,
		summary TEXT NOT NULL DEFAULT '',
		actor TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %v: %w", err, ErrUnavailable)
		}
	}
	// Seed the landing row so the single record always exists. DO NOTHING
	// keeps admin edits intact across restarts.
	if _, err := s.landingUpsert(ctx, DefaultLandingContent(), "DO NOTHING"); err != nil {
		return fmt.Errorf("seed landing content: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %v: %w", err, ErrUnavailable)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// TruncateForTesting wipes all content tables. Test helper only.
func (s *PostgresStore) TruncateForTesting(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`TRUNCATE articles, admin_activity_logs RESTART IDENTITY; DELETE FROM landing_content`)
	if err != nil {
		return mapPgError(err, "truncate")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Articles
// ---------------------------------------------------------------------------

// articleRow mirrors the articles table for scany.
type articleRow struct {
	ID             int64     `db:"id"`
	Title          string    `db:"title"`
	Slug           string    `db:"slug"`
	Excerpt        string    `db:"excerpt"`
	Content        string    `db:"content"`
	CoverImageURL  string    `db:"cover_image_url"`
	OGImageURL     string    `db:"og_image_url"`
	SEOTitle       string    `db:"seo_title"`
	SEODescription string    `db:"seo_description"`
	Categories     []string  `db:"categories"`
	Tags           []string  `db:"tags"`
	Published      bool      `db:"published"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

var articleColumns = []string{
	"id", "title", "slug", "excerpt", "content", "cover_image_url",
	"og_image_url", "seo_title", "seo_description", "categories", "tags",
	"published", "created_at", "updated_at",
}

func (r articleRow) toArticle() Article {
	return Article{
		ID:             r.ID,
		Title:          r.Title,
		Slug:           r.Slug,
		Excerpt:        r.Excerpt,
		Content:        r.Content,
		CoverImageURL:  r.CoverImageURL,
		OGImageURL:     r.OGImageURL,
		SEOTitle:       r.SEOTitle,
		SEODescription: r.SEODescription,
		Categories:     r.Categories,
		Tags:           r.Tags,
		Published:      r.Published,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (s *PostgresStore) CreateArticle(ctx context.Context, in ArticleInput) (Article, error) {
	in = in.normalized()
	if in.Title == "" {
		return Article{}, fmt.Errorf("create article: title is required: %w", ErrValidation)
	}
	root := slugRoot(in)
	now := time.Now().UTC()

	for attempt := 1; attempt <= slugMaxAttempts; attempt++ {
		slug, err := s.freeSlug(ctx, root, 0)
		if err != nil {
			return Article{}, err
		}

		sql, args, err := psql.Insert("articles").
			Columns("title", "slug", "excerpt", "content", "cover_image_url",
				"og_image_url", "seo_title", "seo_description", "categories",
				"tags", "published", "created_at", "updated_at").
			Values(in.Title, slug, in.Excerpt, in.Content, in.CoverImageURL,
				in.OGImageURL, in.SEOTitle, in.SEODescription, in.Categories,
				in.Tags, in.Published, now, now).
			Suffix("RETURNING " + strings.Join(articleColumns, ", ")).
			ToSql()
		if err != nil {
			return Article{}, fmt.Errorf("create article: build query: %w", err)
		}

		var row articleRow
		err = pgxscan.Get(ctx, s.pool, &row, sql, args...)
		if err == nil {
			return row.toArticle(), nil
		}
		if isUniqueViolation(err) {
			// Two creates raced for the same root; rescan and try the next
			// suffix.
			continue
		}
		return Article{}, mapPgError(err, "create article")
	}
	return Article{}, fmt.Errorf("create article: slug %q contested: %w", root, ErrConflict)
}

func (s *PostgresStore) UpdateArticle(ctx context.Context, id int64, in ArticleInput) (Article, error) {
	if id <= 0 {
		return Article{}, fmt.Errorf("update article: non-positive id: %w", ErrValidation)
	}
	in = in.normalized()
	if in.Title == "" {
		return Article{}, fmt.Errorf("update article: title is required: %w", ErrValidation)
	}
	if _, err := s.ArticleByID(ctx, id); err != nil {
		return Article{}, err
	}
	root := slugRoot(in)

	for attempt := 1; attempt <= slugMaxAttempts; attempt++ {
		slug, err := s.freeSlug(ctx, root, id)
		if err != nil {
			return Article{}, err
		}

		sql, args, err := psql.Update("articles").
			Set("title", in.Title).
			Set("slug", slug).
			Set("excerpt", in.Excerpt).
			Set("content", in.Content).
			Set("cover_image_url", in.CoverImageURL).
			Set("og_image_url", in.OGImageURL).
			Set("seo_title", in.SEOTitle).
			Set("seo_description", in.SEODescription).
			Set("categories", in.Categories).
			Set("tags", in.Tags).
			Set("published", in.Published).
			Set("updated_at", time.Now().UTC()).
			Where(sq.Eq{"id": id}).
			Suffix("RETURNING " + strings.Join(articleColumns, ", ")).
			ToSql()
		if err != nil {
			return Article{}, fmt.Errorf("update article: build query: %w", err)
		}

		var row articleRow
		err = pgxscan.Get(ctx, s.pool, &row, sql, args...)
		if err == nil {
			return row.toArticle(), nil
		}
		if isUniqueViolation(err) {
			continue
		}
		return Article{}, mapPgError(err, "update article")
	}
	return Article{}, fmt.Errorf("update article: slug %q contested: %w", root, ErrConflict)
}

func (s *PostgresStore) DeleteArticle(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, fmt.Errorf("delete article: non-positive id: %w", ErrValidation)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return false, mapPgError(err, "delete article")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ArticleByID(ctx context.Context, id int64) (Article, error) {
	if id <= 0 {
		return Article{}, fmt.Errorf("get article: non-positive id: %w", ErrValidation)
	}
	sql, args, err := psql.Select(articleColumns...).From("articles").
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return Article{}, fmt.Errorf("get article: build query: %w", err)
	}
	var row articleRow
	if err := pgxscan.Get(ctx, s.pool, &row, sql, args...); err != nil {
		return Article{}, mapPgError(err, "get article")
	}
	return row.toArticle(), nil
}

func (s *PostgresStore) ArticleBySlug(ctx context.Context, slug string) (Article, error) {
	if strings.TrimSpace(slug) == "" {
		return Article{}, fmt.Errorf("get article by slug: empty slug: %w", ErrValidation)
	}
	sql, args, err := psql.Select(articleColumns...).From("articles").
		Where(sq.Eq{"slug": slug, "published": true}).ToSql()
	if err != nil {
		return Article{}, fmt.Errorf("get article by slug: build query: %w", err)
	}
	var row articleRow
	if err := pgxscan.Get(ctx, s.pool, &row, sql, args...); err != nil {
		return Article{}, mapPgError(err, "get article by slug")
	}
	return row.toArticle(), nil
}

// listConditions translates the filter into WHERE clauses shared by the count
// and page queries.
func listConditions(b sq.SelectBuilder, f ListFilter) sq.SelectBuilder {
	if f.PublishedOnly {
		b = b.Where(sq.Eq{"published": true})
	}
	if f.Category != "" {
		b = b.Where(sq.Expr("categories @> ARRAY[?]::text[]", f.Category))
	}
	if f.Tag != "" {
		b = b.Where(sq.Expr("tags @> ARRAY[?]::text[]", f.Tag))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		b = b.Where(sq.Expr(
			"to_tsvector('simple', title || ' ' || excerpt || ' ' || content) @@ plainto_tsquery('simple', ?)", q))
	}
	return b
}

func (s *PostgresStore) ListArticles(ctx context.Context, f ListFilter) (ArticlePage, error) {
	f.normalize()

	countSQL, countArgs, err := listConditions(psql.Select("COUNT(*)").From("articles"), f).ToSql()
	if err != nil {
		return ArticlePage{}, fmt.Errorf("list articles: build count query: %w", err)
	}
	var total int
	if err := pgxscan.Get(ctx, s.pool, &total, countSQL, countArgs...); err != nil {
		return ArticlePage{}, mapPgError(err, "count articles")
	}

	pageSQL, pageArgs, err := listConditions(psql.Select(articleColumns...).From("articles"), f).
		OrderBy("updated_at DESC", "id DESC").
		Limit(uint64(f.PageSize)).
		Offset(uint64(f.pageOffset(total))).
		ToSql()
	if err != nil {
		return ArticlePage{}, fmt.Errorf("list articles: build query: %w", err)
	}

	var rows []articleRow
	if err := pgxscan.Select(ctx, s.pool, &rows, pageSQL, pageArgs...); err != nil {
		return ArticlePage{}, mapPgError(err, "list articles")
	}

	items := make([]Article, len(rows))
	for i, r := range rows {
		items[i] = r.toArticle()
	}
	return ArticlePage{Items: items, Pagination: paginationFor(f, total)}, nil
}

func (s *PostgresStore) SlugAvailable(ctx context.Context, slug string, excludeID int64) (bool, error) {
	if slug == "" || Slugify(slug) != slug {
		return false, fmt.Errorf("check slug: malformed slug %q: %w", slug, ErrValidation)
	}
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM articles WHERE slug = $1 AND id <> $2)`,
		slug, excludeID).Scan(&exists)
	if err != nil {
		return false, mapPgError(err, "check slug")
	}
	return !exists, nil
}

// freeSlug scans the slugs derived from root (the root itself and every
// "root-N") and returns the first free candidate. excludeID skips the article
// being updated so it does not collide with itself. Read-committed isolation
// keeps this free of dirty reads; insert races are caught by the UNIQUE
// constraint and retried by the caller.
func (s *PostgresStore) freeSlug(ctx context.Context, root string, excludeID int64) (string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT slug FROM articles WHERE (slug = $1 OR slug LIKE $1 || '-%') AND id <> $2`,
		root, excludeID)
	if err != nil {
		return "", mapPgError(err, "allocate slug")
	}
	defer rows.Close()

	taken := make(map[string]struct{})
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return "", mapPgError(err, "allocate slug")
		}
		taken[slug] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return "", mapPgError(err, "allocate slug")
	}
	return firstFreeSuffix(root, taken), nil
}

// ---------------------------------------------------------------------------
// Taxonomies
// ---------------------------------------------------------------------------

func (s *PostgresStore) Taxonomies(ctx context.Context) (Taxonomies, error) {
	var t Taxonomies
	if err := pgxscan.Select(ctx, s.pool, &t.Categories,
		`SELECT DISTINCT unnest(categories) FROM articles ORDER BY 1`); err != nil {
		return Taxonomies{}, mapPgError(err, "list categories")
	}
	if err := pgxscan.Select(ctx, s.pool, &t.Tags,
		`SELECT DISTINCT unnest(tags) FROM articles ORDER BY 1`); err != nil {
		return Taxonomies{}, mapPgError(err, "list tags")
	}
	sort.Strings(t.Categories)
	sort.Strings(t.Tags)
	return t, nil
}

// ---------------------------------------------------------------------------
// Landing content
// ---------------------------------------------------------------------------

var landingColumns = []string{
	"site_name", "page_title", "meta_description", "hero_title",
	"hero_subtitle", "cta_text", "cta_href", "card1_title", "card1_text",
	"card2_title", "card2_text", "card3_title", "card3_text", "footer_text",
}

func (s *PostgresStore) LandingContent(ctx context.Context) (LandingContent, error) {
	sql, args, err := psql.Select(landingColumns...).From("landing_content").
		Where(sq.Eq{"id": 1}).ToSql()
	if err != nil {
		return LandingContent{}, fmt.Errorf("get landing content: build query: %w", err)
	}
	var c LandingContent
	if err := pgxscan.Get(ctx, s.pool, &c, sql, args...); err != nil {
		if !pgxscan.NotFound(err) {
			return LandingContent{}, mapPgError(err, "get landing content")
		}
		// First read with no stored row yet: create it from the defaults.
		return s.UpdateLandingContent(ctx, DefaultLandingContent())
	}
	return c.mergeDefaults(), nil
}

func (s *PostgresStore) UpdateLandingContent(ctx context.Context, c LandingContent) (LandingContent, error) {
	merged := c.mergeDefaults()
	if _, err := s.landingUpsert(ctx, merged, landingUpdateSet); err != nil {
		return LandingContent{}, err
	}
	return merged, nil
}

// landingUpdateSet is the ON CONFLICT action for a full replace of row id=1.
var landingUpdateSet = "DO UPDATE SET " + func() string {
	parts := make([]string, len(landingColumns))
	for i, col := range landingColumns {
		parts[i] = col + " = EXCLUDED." + col
	}
	return strings.Join(parts, ", ") + ", updated_at = NOW()"
}()

func (s *PostgresStore) landingUpsert(ctx context.Context, c LandingContent, conflictAction string) (LandingContent, error) {
	cols := append([]string{"id"}, landingColumns...)
	sql, args, err := psql.Insert("landing_content").
		Columns(cols...).
		Values(1, c.SiteName, c.PageTitle, c.MetaDescription, c.HeroTitle,
			c.HeroSubtitle, c.CTAText, c.CTAHref, c.Card1Title, c.Card1Text,
			c.Card2Title, c.Card2Text, c.Card3Title, c.Card3Text, c.FooterText).
		Suffix("ON CONFLICT (id) " + conflictAction).
		ToSql()
	if err != nil {
		return LandingContent{}, fmt.Errorf("save landing content: build query: %w", err)
	}
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return LandingContent{}, mapPgError(err, "save landing content")
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Activity log
// ---------------------------------------------------------------------------

func (s *PostgresStore) AppendActivity(ctx context.Context, e ActivityEntry) error {
	if strings.TrimSpace(e.Action) == "" {
		return fmt.Errorf("append activity: action is required: %w", ErrValidation)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO admin_activity_logs (action, entity_type, entity_id, summary, actor)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.Action, e.EntityType, e.EntityID, e.Summary, e.Actor)
	if err != nil {
		return mapPgError(err, "append activity")
	}
	return nil
}

type activityRow struct {
	ID         int64     `db:"id"`
	Action     string    `db:"action"`
	EntityType string    `db:"entity_type"`
	EntityID   int64     `db:"entity_id"`
	Summary    string    `db:"summary"`
	Actor      string    `db:"actor"`
	CreatedAt  time.Time `db:"created_at"`
}

func (s *PostgresStore) ListActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	limit = clampActivityLimit(limit)
	var rows []activityRow
	err := pgxscan.Select(ctx, s.pool, &rows,
		`SELECT id, action, entity_type, entity_id, summary, actor, created_at
		 FROM admin_activity_logs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, mapPgError(err, "list activity")
	}
	entries := make([]ActivityEntry, len(rows))
	for i, r := range rows {
		entries[i] = ActivityEntry{
			ID:         r.ID,
			Action:     r.Action,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Summary:    r.Summary,
			Actor:      r.Actor,
			CreatedAt:  r.CreatedAt,
		}
	}
	return entries, nil
}
