// Package storage owns the content records of the site: articles with
// unique-slug allocation and filtered full-text listing, the single landing
// content record, and the append-only admin activity log.
//
// Two backends implement the same Store contract: a durable PostgreSQL store
// and an in-process fallback. The backend is chosen once at startup by Open
// and is immutable for the process lifetime; callers observe no semantic
// difference between the two except durability across restarts.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Store is the capability contract shared by both backends.
type Store interface {
	// CreateArticle allocates an id and a unique slug, normalizes the label
	// sets, stamps createdAt = updatedAt = now and persists the record.
	CreateArticle(ctx context.Context, in ArticleInput) (Article, error)

	// UpdateArticle replaces all mutable fields of the article, re-running
	// slug allocation (excluding the article itself) and re-stamping
	// updatedAt. CreatedAt and ID are preserved.
	UpdateArticle(ctx context.Context, id int64, in ArticleInput) (Article, error)

	// DeleteArticle removes the record if present and reports whether a
	// record was actually removed. Deleting a nonexistent id is not an error.
	DeleteArticle(ctx context.Context, id int64) (bool, error)

	// ArticleByID returns the record regardless of publish state (admin use).
	ArticleByID(ctx context.Context, id int64) (Article, error)

	// ArticleBySlug returns the record only when it is published; unpublished
	// articles are invisible by slug even to callers who know the exact slug.
	ArticleBySlug(ctx context.Context, slug string) (Article, error)

	// ListArticles returns one page of articles matching the filter, ordered
	// by updatedAt descending (ties broken by id descending).
	ListArticles(ctx context.Context, f ListFilter) (ArticlePage, error)

	// SlugAvailable reports whether the given already-normalized slug is free,
	// excluding one article id. Used for interactive validation.
	SlugAvailable(ctx context.Context, slug string, excludeID int64) (bool, error)

	// Taxonomies returns the sorted distinct categories and tags currently in
	// use, derived live from the article set.
	Taxonomies(ctx context.Context) (Taxonomies, error)

	// LandingContent returns the landing record, backfilling unset fields
	// from the hard-coded defaults. Never reports not-found.
	LandingContent(ctx context.Context) (LandingContent, error)

	// UpdateLandingContent merges the given fields over the hard-coded
	// defaults (not over the previous stored value), persists and returns the
	// resulting full record.
	UpdateLandingContent(ctx context.Context, c LandingContent) (LandingContent, error)

	// AppendActivity records one admin action.
	AppendActivity(ctx context.Context, e ActivityEntry) error

	// ListActivity returns the most recent entries, newest first. The limit
	// is clamped to [1,100] and defaults to 20.
	ListActivity(ctx context.Context, limit int) ([]ActivityEntry, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close()
}

// Config selects and tunes the backend.
type Config struct {
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory fallback —
	// unless Production is set, in which case Open refuses to start.
	DatabaseURL string

	// Production marks a production-designated environment. Running a
	// public-facing instance on non-durable storage is refused outright.
	Production bool

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open resolves the storage backend for the process. With a DSN it opens the
// durable Postgres store and runs its idempotent schema setup; without one it
// degrades to the in-memory fallback, which is a hard error in production.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (Store, error) {
	if cfg.DatabaseURL == "" {
		if cfg.Production {
			return nil, fmt.Errorf("storage: DATABASE_URL is required in production, refusing in-memory fallback: %w", ErrUnavailable)
		}
		log.Warn("DATABASE_URL missing: using in-memory storage, content will not survive restarts")
		return NewMemoryStore(), nil
	}

	store, err := NewPostgresStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("storage: open postgres: %w", err)
	}
	log.Info("postgres storage ready")
	return store, nil
}
