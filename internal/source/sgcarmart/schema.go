package sgcarmart

import (
	"car_resale/internal/dataset"
	"car_resale/internal/domain"
)

// Schema is the layout of the persisted SGCarMart store.
func Schema() dataset.Schema {
	columns := make([]string, 0, len(Fields)+3)
	for _, f := range Fields {
		if f == "status" || f == "posted_on" {
			continue
		}
		columns = append(columns, f)
	}
	columns = append(columns, "type_of_vehicle", "price", "coe_left")

	return dataset.Schema{
		Site:         domain.SiteSGCarMart,
		IDColumn:     "listing_id",
		URLColumn:    "url",
		PostedColumn: "posted_on",
		StatusColumn: "status",
		ScrapeColumn: "date_scraped",
		Status:       dataset.LabelStatus("Available for sale", "Sold", "SOLD", "Expired"),
		ListingID:    ListingID,
		Columns:      columns,
	}
}
