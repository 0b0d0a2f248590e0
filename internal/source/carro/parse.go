package carro

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"car_resale/internal/domain"
	"car_resale/internal/source/web"
)

const (
	cardSelector      = `div.ant-col-8 div[class*="LazyRenderCard__StyleCardWrapper"]`
	statusSelector    = `div[class*="StyledStatusHeader"]`
	metaCardSelector  = `div[class*="StyledMetaCard"]`
	metaTitleSelector = `span[class*="StyleCardTitle"]`
)

var soldLabels = map[string]struct{}{
	"Sold":         {},
	"Pending Sale": {},
	"Reserved":     {},
	"On Hold":      {},
}

// Slug is the last path segment of a detail url, which the listing API is keyed by.
func Slug(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	p := strings.TrimSuffix(u.Path, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// ListingID is the slug of a used-car detail url, or "" for any other link.
func ListingID(rawURL string) string {
	if !strings.Contains(rawURL, "/cars/") {
		return ""
	}
	return Slug(rawURL)
}

// parseFeed returns the used-car cards currently rendered, in feed order.
// New-car cards link elsewhere and are dropped.
func parseFeed(doc *goquery.Document, origin string) []domain.IndexItem {
	var items []domain.IndexItem
	seen := make(map[string]struct{})

	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Find("a").First().Attr("href")
		if !ok {
			return
		}
		link := web.Absolute(origin, href)
		if !strings.Contains(link, "/cars/") {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		items = append(items, domain.IndexItem{URL: link})
	})
	return items
}

func statusText(doc *goquery.Document) string {
	return web.CleanText(doc.Find(statusSelector).First().Text())
}

func isSold(status string) bool {
	_, ok := soldLabels[status]
	return ok
}

// hasDetail reports whether the overview cards have rendered.
func hasDetail(doc *goquery.Document) bool {
	return doc.Find(metaCardSelector).Length() > 0
}

func parseDetail(doc *goquery.Document, rawURL string) *domain.Listing {
	attrs := map[string]string{
		"name":  textOr(doc.Find("h1.detailTitle").First(), domain.NotAvailable),
		"price": textOr(doc.Find("span.carPrice").First(), domain.NotAvailable),
	}

	doc.Find(metaCardSelector).Each(func(_ int, card *goquery.Selection) {
		label := web.CleanText(card.Find(metaTitleSelector).First().Text())
		value := card.Find("div.font-family-bold").First()
		if label != "" && value.Length() > 0 {
			attrs[label] = web.CleanText(value.Text())
		}
	})
	doc.Find("div.meta-row").Each(func(_ int, row *goquery.Selection) {
		label := web.CleanText(row.Find(".meta-name").First().Text())
		value := row.Find(".meta-value").First()
		if label != "" && value.Length() > 0 {
			attrs[label] = web.CleanText(value.Text())
		}
	})

	status := domain.StatusAvailable
	if isSold(statusText(doc)) {
		status = domain.StatusSold
	}
	return &domain.Listing{
		ID:         ListingID(rawURL),
		URL:        rawURL,
		Status:     status,
		Attributes: attrs,
	}
}

func textOr(s *goquery.Selection, fallback string) string {
	if s.Length() == 0 {
		return fallback
	}
	if t := web.CleanText(s.Text()); t != "" {
		return t
	}
	return fallback
}
