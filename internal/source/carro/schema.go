package carro

import (
	"car_resale/internal/dataset"
	"car_resale/internal/domain"
)

// Schema is the layout of the persisted Carro store.
func Schema() dataset.Schema {
	return dataset.Schema{
		Site:         domain.SiteCarro,
		IDColumn:     "listing_id",
		URLColumn:    "url",
		PostedColumn: "posted_on",
		StatusColumn: "sold",
		ScrapeColumn: "scrape_date",
		Status:       dataset.BoolStatus(),
		ListingID:    ListingID,
		Columns:      []string{"name", "price", "price_updated_on"},
	}
}
