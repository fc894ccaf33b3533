// Package pressroom is the content-management backend for a small editorial
// website. It serves the public landing page and article feed as a JSON API
// over a static frontend, and exposes an authenticated admin surface for
// editing landing copy, creating and publishing articles, and managing
// uploaded media.
//
// All content lives in the storage subpackage, behind a single Store contract
// with a durable PostgreSQL backend and an in-memory fallback.
package pressroom

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/avolier/pressroom/storage"
)

// App wires together the store, cache, handlers and middleware.
type App struct {
	cfg   *Config
	log   *zap.Logger
	store storage.Store
	cache *contentCache
	echo  *echo.Echo

	loginLimiter *loginLimiter
	sanitizer    *contentSanitizer
}

// New creates the application around an already-opened store.
func New(cfg *Config, store storage.Store, log *zap.Logger) *App {
	a := &App{
		cfg:          cfg,
		log:          log,
		store:        store,
		cache:        newContentCache(store, 5*time.Minute),
		echo:         echo.New(),
		loginLimiter: newLoginLimiter(5, time.Minute),
		sanitizer:    newContentSanitizer(),
	}

	a.echo.HideBanner = true
	a.echo.HidePort = true
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

func (a *App) setupRoutes() {
	e := a.echo

	// Public surface: static frontend plus the read-only JSON API.
	e.Static("/", a.cfg.StaticDir)
	e.GET("/healthz", a.handleHealthz)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/api/landing", a.handleLanding)
	e.GET("/api/articles", a.handlePublicArticles)
	e.GET("/api/articles/:slug", a.handleArticleBySlug)
	e.GET("/api/taxonomies", a.handleTaxonomies)

	// Admin surface: cookie-session gated JSON API.
	e.POST("/api/admin/login", a.handleAdminLogin)
	e.POST("/api/admin/logout", a.handleAdminLogout)

	admin := e.Group("/api/admin", a.requireAdmin)
	admin.GET("/landing", a.handleAdminLanding)
	admin.PUT("/landing", a.handleAdminSaveLanding)
	admin.GET("/articles", a.handleAdminArticles)
	admin.GET("/articles/:id", a.handleAdminArticleByID)
	admin.POST("/articles", a.handleAdminCreateArticle)
	admin.PUT("/articles/:id", a.handleAdminUpdateArticle)
	admin.DELETE("/articles/:id", a.handleAdminDeleteArticle)
	admin.GET("/slug-check", a.handleSlugCheck)
	admin.GET("/activity", a.handleActivity)
	admin.GET("/media", a.handleMediaList)
	admin.POST("/media", a.handleMediaUpload)
	admin.DELETE("/media/:filename", a.handleMediaDelete)
}

// Start runs the HTTP server until Shutdown is called.
func (a *App) Start() error {
	a.log.Info("listening", zap.String("addr", a.cfg.Addr), zap.String("env", a.cfg.Env))
	if err := a.echo.Start(a.cfg.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (a *App) Shutdown(ctx context.Context) error {
	a.loginLimiter.Stop()
	return a.echo.Shutdown(ctx)
}

// recordActivity appends one admin action to the activity log. Failures are
// logged and never propagated: the primary mutation already succeeded.
func (a *App) recordActivity(ctx context.Context, action, entityType string, entityID int64, summary string) {
	err := a.store.AppendActivity(ctx, storage.ActivityEntry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Summary:    summary,
		Actor:      "admin",
	})
	if err != nil {
		a.log.Error("append activity", zap.String("action", action), zap.Error(err))
	}
}
