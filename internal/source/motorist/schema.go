package motorist

import (
	"car_resale/internal/dataset"
	"car_resale/internal/domain"
)

// Schema is the layout of the persisted Motorist store.
func Schema() dataset.Schema {
	columns := append([]string{"title", "price"}, Labels...)
	return dataset.Schema{
		Site:            domain.SiteMotorist,
		IDColumn:        "listing_id",
		URLColumn:       "url",
		PostedColumn:    "Posted Date",
		StatusColumn:    "Status",
		ScrapeColumn:    "scrape_date",
		SpotlightColumn: "is_spotlight",
		Status:          dataset.LabelStatus("Available", "Sold"),
		ListingID:       ListingID,
		Columns:         columns,
	}
}
