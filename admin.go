package pressroom

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/avolier/pressroom/storage"
)

const articleContentMax = 30000

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "too many login attempts, try again later"})
	}

	var body struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	if subtle.ConstantTimeCompare([]byte(body.Password), []byte(a.cfg.AdminPassword)) != 1 {
		a.loginLimiter.Record(ip)
		a.log.Warn("failed admin login", zap.String("ip", ip))
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid password"})
	}

	if err := setAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (a *App) handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (a *App) handleAdminLanding(c echo.Context) error {
	content, err := a.store.LandingContent(c.Request().Context())
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, content)
}

func (a *App) handleAdminSaveLanding(c echo.Context) error {
	var payload storage.LandingContent
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	a.scrubLanding(&payload)

	ctx := c.Request().Context()
	saved, err := a.store.UpdateLandingContent(ctx, payload)
	if err != nil {
		return apiError(c, err)
	}

	a.cache.Invalidate()
	a.recordActivity(ctx, storage.ActionLandingUpdate, "landing", 1, "updated landing content")
	return c.JSON(http.StatusOK, saved)
}

// scrubLanding strips markup from every landing field and applies the
// per-field length caps. Empty fields are left empty; the store backfills
// them from the defaults.
func (a *App) scrubLanding(p *storage.LandingContent) {
	s := a.sanitizer
	p.SiteName = s.sanitizeText(p.SiteName, 100)
	p.PageTitle = s.sanitizeText(p.PageTitle, 180)
	p.MetaDescription = s.sanitizeText(p.MetaDescription, 300)
	p.HeroTitle = s.sanitizeText(p.HeroTitle, 180)
	p.HeroSubtitle = s.sanitizeText(p.HeroSubtitle, 500)
	p.CTAText = s.sanitizeText(p.CTAText, 60)
	p.CTAHref = s.sanitizeText(p.CTAHref, 200)
	p.Card1Title = s.sanitizeText(p.Card1Title, 120)
	p.Card1Text = s.sanitizeText(p.Card1Text, 500)
	p.Card2Title = s.sanitizeText(p.Card2Title, 120)
	p.Card2Text = s.sanitizeText(p.Card2Text, 500)
	p.Card3Title = s.sanitizeText(p.Card3Title, 120)
	p.Card3Text = s.sanitizeText(p.Card3Text, 500)
	p.FooterText = s.sanitizeText(p.FooterText, 120)
}

// articlePayload is the wire shape of article create/update requests. The
// editor sometimes sends label sets as comma-separated strings and the
// published flag as "on" or "1", so both use forgiving decoders.
type articlePayload struct {
	Title          string     `json:"title"`
	Slug           string     `json:"slug"`
	Excerpt        string     `json:"excerpt"`
	Content        string     `json:"content"`
	CoverImageURL  string     `json:"coverImageUrl"`
	OGImageURL     string     `json:"ogImageUrl"`
	SEOTitle       string     `json:"seoTitle"`
	SEODescription string     `json:"seoDescription"`
	Categories     stringList `json:"categories"`
	Tags           stringList `json:"tags"`
	Published      boolFlag   `json:"published"`
}

// toInput scrubs the payload into a storage input. Content goes through the
// rich-text policy; every other field is treated as plain text.
func (a *App) toInput(p articlePayload) storage.ArticleInput {
	s := a.sanitizer
	content := s.SanitizeHTML(p.Content)
	if r := []rune(content); len(r) > articleContentMax {
		content = string(r[:articleContentMax])
	}
	return storage.ArticleInput{
		Title:          s.sanitizeText(p.Title, 180),
		Slug:           s.sanitizeText(p.Slug, 180),
		Excerpt:        s.sanitizeText(p.Excerpt, 400),
		Content:        content,
		CoverImageURL:  s.sanitizeText(p.CoverImageURL, 300),
		OGImageURL:     s.sanitizeText(p.OGImageURL, 300),
		SEOTitle:       s.sanitizeText(p.SEOTitle, 180),
		SEODescription: s.sanitizeText(p.SEODescription, 300),
		Categories:     p.Categories,
		Tags:           p.Tags,
		Published:      bool(p.Published),
	}
}

func (a *App) handleAdminArticles(c echo.Context) error {
	page, err := a.store.ListArticles(c.Request().Context(), listFilterFromQuery(c, false))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func articleIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invalid article id", storage.ErrValidation)
	}
	return id, nil
}

func (a *App) handleAdminArticleByID(c echo.Context) error {
	id, err := articleIDParam(c)
	if err != nil {
		return apiError(c, err)
	}
	article, err := a.store.ArticleByID(c.Request().Context(), id)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, article)
}

func (a *App) handleAdminCreateArticle(c echo.Context) error {
	var payload articlePayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	ctx := c.Request().Context()
	article, err := a.store.CreateArticle(ctx, a.toInput(payload))
	if err != nil {
		return apiError(c, err)
	}

	a.cache.Invalidate()
	a.recordActivity(ctx, storage.ActionArticleCreate, "article", article.ID,
		fmt.Sprintf("created %q", article.Title))
	return c.JSON(http.StatusCreated, article)
}

func (a *App) handleAdminUpdateArticle(c echo.Context) error {
	id, err := articleIDParam(c)
	if err != nil {
		return apiError(c, err)
	}
	var payload articlePayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	ctx := c.Request().Context()
	article, err := a.store.UpdateArticle(ctx, id, a.toInput(payload))
	if err != nil {
		return apiError(c, err)
	}

	a.cache.Invalidate()
	a.recordActivity(ctx, storage.ActionArticleUpdate, "article", article.ID,
		fmt.Sprintf("updated %q", article.Title))
	return c.JSON(http.StatusOK, article)
}

func (a *App) handleAdminDeleteArticle(c echo.Context) error {
	id, err := articleIDParam(c)
	if err != nil {
		return apiError(c, err)
	}

	ctx := c.Request().Context()
	deleted, err := a.store.DeleteArticle(ctx, id)
	if err != nil {
		return apiError(c, err)
	}
	if deleted {
		a.cache.Invalidate()
		a.recordActivity(ctx, storage.ActionArticleDelete, "article", id,
			fmt.Sprintf("deleted article %d", id))
	}
	return c.JSON(http.StatusOK, map[string]bool{"deleted": deleted})
}

func (a *App) handleSlugCheck(c echo.Context) error {
	slug := c.QueryParam("slug")
	var excludeID int64
	if raw := c.QueryParam("excludeId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return apiError(c, fmt.Errorf("%w: invalid excludeId", storage.ErrValidation))
		}
		excludeID = id
	}

	available, err := a.store.SlugAvailable(c.Request().Context(), slug, excludeID)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"slug": slug, "available": available})
}

func (a *App) handleActivity(c echo.Context) error {
	entries, err := a.store.ListActivity(c.Request().Context(), intQueryParam(c, "limit"))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}
