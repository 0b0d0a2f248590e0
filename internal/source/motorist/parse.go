package motorist

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"car_resale/internal/domain"
	"car_resale/internal/source/web"
)

// Labels are the detail fields kept as listing attributes.
var Labels = []string{
	"Registration Date", "Ownership", "Mileage", "Veh. Scheme", "COE", "OMV", "ARF",
	"Min. PARF", "Paper Value", "Road Tax Payable", "COE Expiry Date",
	"PARF Expiry Date", "Road Tax Expiry Date", "Manufacturing Year",
	"Primary Colour", "Transmission", "Fuel Type", "Engine Capacity", "Power",
}

var (
	soldRe    = regexp.MustCompile(`(?i)^vehicle\s+sold$`)
	postedRe  = regexp.MustCompile(`(?i)\bPosted\s+(\d{1,2})\s+([A-Za-z]{3,})\s+(\d{2,4})\b`)
	priceRe   = regexp.MustCompile(`^\$\s?\d[\d,]*$`)
	excludeRe = regexp.MustCompile(`(?i)(instl|mth|month|depre|/yr|per\s*(month|year))`)
)

const spotlightBadge = ".used-cars-label.spotlight, .used-cars-label.premium"

func parseIndex(doc *goquery.Document, baseURL string) []domain.IndexItem {
	var items []domain.IndexItem
	pos := make(map[string]int)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := web.Canonical(web.Absolute(baseURL, href))
		id := ListingID(abs)
		if id == "" {
			return
		}
		promoted := a.Find(spotlightBadge).Length() > 0

		if i, ok := pos[id]; ok {
			items[i].Promoted = items[i].Promoted || promoted
			return
		}
		pos[id] = len(items)
		items = append(items, domain.IndexItem{URL: abs, Promoted: promoted})
	})
	return items
}

func parseDetail(doc *goquery.Document, rawURL string) *domain.Listing {
	listing := &domain.Listing{
		URL:        rawURL,
		Status:     domain.StatusAvailable,
		PostedDate: postedDate(doc),
		Attributes: make(map[string]string, len(Labels)+2),
	}
	if soldBanner(doc) {
		listing.Status = domain.StatusSold
	}

	title := web.CleanText(doc.Find("h1, h2").First().Text())
	listing.Attributes["title"] = strings.TrimSpace(strings.TrimLeft(title, "# "))
	listing.Attributes["price"] = displayPrice(doc)

	for _, label := range Labels {
		listing.Attributes[label] = coerceNA(valueByLabel(doc, label))
	}
	return listing
}

func soldBanner(doc *goquery.Document) bool {
	found := false
	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if soldRe.MatchString(web.OwnText(s)) {
			found = true
		}
		return !found
	})
	return found
}

// postedDate parses "Posted 06 May 25"; two-digit years are in the 2000s.
func postedDate(doc *goquery.Document) domain.Date {
	m := postedRe.FindStringSubmatch(web.CleanText(doc.Find("body").Text()))
	if m == nil {
		return domain.Date{}
	}
	day, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}
	month := strings.ToLower(m[2])[:3]
	t, err := time.Parse("Jan", strings.ToUpper(month[:1])+month[1:])
	if err != nil {
		return domain.Date{}
	}
	return domain.NewDate(year, t.Month(), day)
}

func displayPrice(doc *goquery.Document) string {
	price := ""
	doc.Find("h1, h2, h3, strong, span, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		txt := web.OwnText(s)
		if !priceRe.MatchString(txt) {
			return true
		}
		if excludeRe.MatchString(web.CleanText(s.Parent().Text())) {
			return true
		}
		price = strings.ReplaceAll(txt, " ", "")
		return false
	})
	return price
}

// valueByLabel finds the element whose own text is label and returns the text
// of its next sibling, or of its parent's next sibling.
func valueByLabel(doc *goquery.Document, label string) string {
	value := ""
	doc.Find("dt, th, td, strong, b, span, div, p, label").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(web.OwnText(s), label) {
			return true
		}
		if v := web.CleanText(s.Next().Text()); v != "" {
			value = v
			return false
		}
		if v := web.CleanText(s.Parent().Next().Text()); v != "" {
			value = v
			return false
		}
		return true
	})
	return value
}

func coerceNA(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "", "N.A.", "NA", "N/A", "-":
		return domain.NotAvailable
	}
	return strings.TrimSpace(v)
}
