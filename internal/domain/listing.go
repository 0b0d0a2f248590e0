package domain

import (
	"strings"
)

type Site string

const (
	SiteSGCarMart Site = "sgcarmart"
	SiteCarro     Site = "carro"
	SiteMotorist  Site = "motorist"
)

// Sites lists every supported marketplace in the order runs visit them.
var Sites = []Site{SiteSGCarMart, SiteCarro, SiteMotorist}

var websites = map[Site]string{
	SiteSGCarMart: "sgcarmart.com",
	SiteCarro:     "carro.co",
	SiteMotorist:  "motorist.sg",
}

// Website is the label the merged dataset uses for the originating site.
func (s Site) Website() string {
	return websites[s]
}

// SiteFromWebsite resolves a merged-dataset website label, ignoring case and
// a leading "www.".
func SiteFromWebsite(website string) (Site, bool) {
	w := strings.ToLower(strings.TrimSpace(website))
	w = strings.TrimPrefix(w, "www.")
	for site, label := range websites {
		if w == label || w == string(site) {
			return site, true
		}
	}
	return "", false
}

type Status string

const (
	StatusAvailable Status = "Available"
	StatusSold      Status = "Sold"
)

type Listing struct {
	ID         string            `json:"listing_id"`
	URL        string            `json:"url"`
	PostedDate Date              `json:"posted_date"`
	Status     Status            `json:"status"`
	Spotlight  bool              `json:"is_spotlight"`
	ScrapeDate Date              `json:"scrape_date"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Key is the store identity: the listing id, or the url when no id could be derived.
func (l *Listing) Key() string {
	if l.ID != "" {
		return l.ID
	}
	return strings.TrimSpace(l.URL)
}

func (l *Listing) Sold() bool {
	return l.Status == StatusSold
}

func (l *Listing) Clone() Listing {
	c := *l
	if l.Attributes != nil {
		c.Attributes = make(map[string]string, len(l.Attributes))
		for k, v := range l.Attributes {
			c.Attributes[k] = v
		}
	}
	return c
}

// IndexItem is one card on an index page, in the order the index lists it.
type IndexItem struct {
	URL      string
	Promoted bool
	// PostedDate is set only when the index itself exposes a date.
	PostedDate Date
}
