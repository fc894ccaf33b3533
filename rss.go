package pressroom

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avolier/pressroom/storage"
)

// maxFeedItems bounds the feed and sitemap to the newest articles.
const maxFeedItems = 50

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

func (a *App) renderRSS(c echo.Context, articles []storage.Article) error {
	landing, err := a.cache.Landing(c.Request().Context())
	if err != nil {
		return apiError(c, err)
	}

	base := a.cfg.BaseURL
	items := make([]rssItem, 0, len(articles))
	for _, art := range articles {
		articleURL := BuildURL(base, "article", art.Slug)
		items = append(items, rssItem{
			Title:       art.Title,
			Link:        articleURL,
			Description: art.Excerpt,
			PubDate:     art.CreatedAt.Format(time.RFC1123Z),
			GUID:        articleURL,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       landing.SiteName,
			Link:        base,
			Description: landing.MetaDescription,
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(feed)
}
