package storage

import (
	"strings"
	"time"
)

// Article is the core content record. Slug is globally unique among all
// articles, published or not. Categories and Tags are deduplicated,
// order-preserving label sets of at most MaxLabels entries each.
type Article struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Slug           string    `json:"slug"`
	Excerpt        string    `json:"excerpt"`
	Content        string    `json:"content"`
	CoverImageURL  string    `json:"coverImageUrl"`
	OGImageURL     string    `json:"ogImageUrl"`
	SEOTitle       string    `json:"seoTitle"`
	SEODescription string    `json:"seoDescription"`
	Categories     []string  `json:"categories"`
	Tags           []string  `json:"tags"`
	Published      bool      `json:"published"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ArticleInput carries the mutable fields for create and update. Content is
// assumed pre-sanitized by the caller. Slug, if empty, is derived from Title.
type ArticleInput struct {
	Title          string   `json:"title"`
	Slug           string   `json:"slug"`
	Excerpt        string   `json:"excerpt"`
	Content        string   `json:"content"`
	CoverImageURL  string   `json:"coverImageUrl"`
	OGImageURL     string   `json:"ogImageUrl"`
	SEOTitle       string   `json:"seoTitle"`
	SEODescription string   `json:"seoDescription"`
	Categories     []string `json:"categories"`
	Tags           []string `json:"tags"`
	Published      bool     `json:"published"`
}

// MaxLabels caps the number of categories and tags per article.
const MaxLabels = 12

// normalizeLabels trims, drops empties, deduplicates preserving first-seen
// order, and caps the result at MaxLabels.
func normalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
		if len(out) == MaxLabels {
			break
		}
	}
	return out
}

// normalized returns a copy of the input with label sets normalized and
// surrounding whitespace stripped from the title.
func (in ArticleInput) normalized() ArticleInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Categories = normalizeLabels(in.Categories)
	in.Tags = normalizeLabels(in.Tags)
	return in
}

// ListFilter selects and paginates articles.
type ListFilter struct {
	Page          int    // 1-based; defaults to 1
	PageSize      int    // clamped to [1,50]; defaults to 9
	Query         string // full-text match over title, excerpt and content
	Category      string // exact containment in Categories
	Tag           string // exact containment in Tags
	PublishedOnly bool
}

const (
	defaultPageSize = 9
	maxPageSize     = 50
)

// normalize applies defaults and clamps pagination values.
func (f *ListFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
}

// pageOffset returns the index of the first item on the requested page,
// clamped to [0, total]. Any page past the last one has a true offset of at
// least total, so returning total directly keeps such pages empty without
// risking int overflow in the multiplication. Call after normalize.
func (f ListFilter) pageOffset(total int) int {
	if f.Page > total/f.PageSize+1 {
		return total
	}
	return (f.Page - 1) * f.PageSize
}

// Pagination describes one page of a filtered listing. Total counts matches
// before pagination; TotalPages is never below 1.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func paginationFor(f ListFilter, total int) Pagination {
	pages := (total + f.PageSize - 1) / f.PageSize
	if pages < 1 {
		pages = 1
	}
	return Pagination{Page: f.Page, PageSize: f.PageSize, Total: total, TotalPages: pages}
}

// ArticlePage is the result of ListArticles.
type ArticlePage struct {
	Items      []Article  `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Taxonomies holds the distinct category and tag labels currently in use,
// sorted lexicographically. Always derived live from the article set.
type Taxonomies struct {
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
}

// LandingContent is the single mutable landing-page record. Every field has a
// hard-coded default; unset fields are backfilled on read and on update.
type LandingContent struct {
	SiteName        string `json:"siteName" db:"site_name"`
	PageTitle       string `json:"pageTitle" db:"page_title"`
	MetaDescription string `json:"metaDescription" db:"meta_description"`
	HeroTitle       string `json:"heroTitle" db:"hero_title"`
	HeroSubtitle    string `json:"heroSubtitle" db:"hero_subtitle"`
	CTAText         string `json:"ctaText" db:"cta_text"`
	CTAHref         string `json:"ctaHref" db:"cta_href"`
	Card1Title      string `json:"card1Title" db:"card1_title"`
	Card1Text       string `json:"card1Text" db:"card1_text"`
	Card2Title      string `json:"card2Title" db:"card2_title"`
	Card2Text       string `json:"card2Text" db:"card2_text"`
	Card3Title      string `json:"card3Title" db:"card3_title"`
	Card3Text       string `json:"card3Text" db:"card3_text"`
	FooterText      string `json:"footerText" db:"footer_text"`
}

// DefaultLandingContent returns the hard-coded landing defaults.
func DefaultLandingContent() LandingContent {
	return LandingContent{
		SiteName:        "Pressroom",
		PageTitle:       "Pressroom | Notes from abroad",
		MetaDescription: "Stories, practical guides and news for expats",
		HeroTitle:       "Notes from abroad",
		HeroSubtitle:    "Stories, practical guides and news for expats",
		CTAText:         "Browse the articles",
		CTAHref:         "#articles",
		Card1Title:      "Settling in",
		Card1Text:       "Arrival checklist, visa, insurance, banking and finding a flat.",
		Card2Title:      "Daily life",
		Card2Text:       "Transport, healthcare, groceries, neighbourhoods and local habits.",
		Card3Title:      "Weekends away",
		Card3Text:       "Realistic itineraries from the big cities to the best escapes.",
		FooterText:      "Pressroom",
	}
}

// mergeDefaults fills every empty field of c from the hard-coded defaults.
// Each update is a replace-with-defaults-fallback, never a patch over the
// previously stored value.
func (c LandingContent) mergeDefaults() LandingContent {
	d := DefaultLandingContent()
	fill := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	c.SiteName = fill(c.SiteName, d.SiteName)
	c.PageTitle = fill(c.PageTitle, d.PageTitle)
	c.MetaDescription = fill(c.MetaDescription, d.MetaDescription)
	c.HeroTitle = fill(c.HeroTitle, d.HeroTitle)
	c.HeroSubtitle = fill(c.HeroSubtitle, d.HeroSubtitle)
	c.CTAText = fill(c.CTAText, d.CTAText)
	c.CTAHref = fill(c.CTAHref, d.CTAHref)
	c.Card1Title = fill(c.Card1Title, d.Card1Title)
	c.Card1Text = fill(c.Card1Text, d.Card1Text)
	c.Card2Title = fill(c.Card2Title, d.Card2Title)
	c.Card2Text = fill(c.Card2Text, d.Card2Text)
	c.Card3Title = fill(c.Card3Title, d.Card3Title)
	c.Card3Text = fill(c.Card3Text, d.Card3Text)
	c.FooterText = fill(c.FooterText, d.FooterText)
	return c
}

// ActivityEntry is one append-only record of an admin mutation.
type ActivityEntry struct {
	ID         int64     `json:"id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   int64     `json:"entityId"`
	Summary    string    `json:"summary"`
	Actor      string    `json:"actor"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Activity action names, one per admin mutation kind.
const (
	ActionArticleCreate = "article.create"
	ActionArticleUpdate = "article.update"
	ActionArticleDelete = "article.delete"
	ActionLandingUpdate = "landing.update"
	ActionMediaUpload   = "media.upload"
	ActionMediaDelete   = "media.delete"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

// clampActivityLimit clamps limit to [1,100], defaulting to 20.
func clampActivityLimit(limit int) int {
	if limit <= 0 {
		return defaultActivityLimit
	}
	if limit > maxActivityLimit {
		return maxActivityLimit
	}
	return limit
}
