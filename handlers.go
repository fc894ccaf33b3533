package pressroom

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/avolier/pressroom/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

// apiError translates storage sentinel errors into JSON error responses.
// Anything unrecognized bubbles up to the central error handler as a 500.
func apiError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrValidation):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrConflict):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable"})
	default:
		return err
	}
}

func (a *App) handleHealthz(c echo.Context) error {
	if err := a.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleLanding(c echo.Context) error {
	content, err := a.cache.Landing(c.Request().Context())
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, content)
}

func (a *App) handleTaxonomies(c echo.Context) error {
	tax, err := a.cache.Taxonomies(c.Request().Context())
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, tax)
}

func listFilterFromQuery(c echo.Context, publishedOnly bool) storage.ListFilter {
	return storage.ListFilter{
		Page:          intQueryParam(c, "page"),
		PageSize:      intQueryParam(c, "pageSize"),
		Query:         c.QueryParam("q"),
		Category:      c.QueryParam("category"),
		Tag:           c.QueryParam("tag"),
		PublishedOnly: publishedOnly,
	}
}

func intQueryParam(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return n
}

func (a *App) handlePublicArticles(c echo.Context) error {
	page, err := a.store.ListArticles(c.Request().Context(), listFilterFromQuery(c, true))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handleArticleBySlug(c echo.Context) error {
	article, err := a.store.ArticleBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, article)
}

func (a *App) handleFeed(c echo.Context) error {
	page, err := a.store.ListArticles(c.Request().Context(), storage.ListFilter{
		PageSize:      maxFeedItems,
		PublishedOnly: true,
	})
	if err != nil {
		return apiError(c, err)
	}
	return a.renderRSS(c, page.Items)
}

func (a *App) handleSitemap(c echo.Context) error {
	page, err := a.store.ListArticles(c.Request().Context(), storage.ListFilter{
		PageSize:      maxFeedItems,
		PublishedOnly: true,
	})
	if err != nil {
		return apiError(c, err)
	}
	return a.renderSitemap(c, page.Items)
}
