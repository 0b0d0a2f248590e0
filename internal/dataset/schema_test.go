package dataset

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car_resale/internal/domain"
	"car_resale/internal/table"
)

func testSchema() Schema {
	return Schema{
		Site:            domain.SiteMotorist,
		IDColumn:        "listing_id",
		URLColumn:       "url",
		PostedColumn:    "Posted Date",
		StatusColumn:    "Status",
		ScrapeColumn:    "scrape_date",
		SpotlightColumn: "is_spotlight",
		Status:          LabelStatus("Available", "Sold", "Expired"),
		ListingID: func(url string) string {
			return url[strings.LastIndex(url, "/")+1:]
		},
		Columns: []string{"title", "price"},
	}
}

func TestSchema_Decode(t *testing.T) {
	tbl := table.Table{
		Header: []string{"url", "listing_id", "price", "Mileage", "title", "Posted Date", "Status", "is_spotlight", "scrape_date"},
		Rows: [][]string{
			{"https://www.motorist.sg/used-car/1001", "", "$1", "10 km", "Car A", "2025-06-01", "Available", "False", "2025-06-02"},
			{"https://www.motorist.sg/used-car/1002", "1002", "$2", "20 km", "Car B", "N.A.", "expired", "True", ""},
			{"", "", "$3", "", "No url", "", "", "", ""},
		},
	}

	store := testSchema().Decode(tbl)

	assert.Equal(t, []string{"1001", "1002"}, store.Keys())

	a, ok := store.Get("1001")
	require.True(t, ok)
	assert.Equal(t, "2025-06-01", a.PostedDate.String())
	assert.Equal(t, "2025-06-02", a.ScrapeDate.String())
	assert.False(t, a.Sold())
	assert.Equal(t, map[string]string{"price": "$1", "Mileage": "10 km", "title": "Car A"}, a.Attributes)

	b, _ := store.Get("1002")
	assert.True(t, b.Sold())
	assert.True(t, b.Spotlight)
	assert.False(t, b.PostedDate.Known())
}

func TestSchema_Encode(t *testing.T) {
	store := domain.NewStore()
	store.Put(domain.Listing{
		ID:         "1",
		URL:        "https://x/1",
		PostedDate: domain.NewDate(2025, time.May, 1),
		Status:     domain.StatusSold,
		Attributes: map[string]string{"price": "$1", "zeta": "z", "alpha": "a", "title": "T1"},
	})
	store.Put(domain.Listing{
		ID:         "2",
		URL:        "https://x/2",
		PostedDate: domain.NewDate(2025, time.May, 2),
		Status:     domain.StatusAvailable,
		Spotlight:  true,
		ScrapeDate: domain.NewDate(2025, time.May, 3),
		Attributes: map[string]string{"price": "$2"},
	})

	tbl := testSchema().Encode(store)

	assert.Equal(t, []string{"url", "listing_id", "title", "price", "alpha", "zeta", "Posted Date", "Status", "is_spotlight", "scrape_date"}, tbl.Header)
	assert.Equal(t, [][]string{
		{"https://x/2", "2", "", "$2", "", "", "2025-05-02", "Available", "True", "2025-05-03"},
		{"https://x/1", "1", "T1", "$1", "a", "z", "2025-05-01", "Sold", "False", ""},
	}, tbl.Rows)
}

func TestSchema_RoundTrip(t *testing.T) {
	schema := testSchema()
	store := domain.NewStore()
	store.Put(domain.Listing{
		ID:         "7",
		URL:        "https://x/7",
		Status:     domain.StatusAvailable,
		Attributes: map[string]string{"title": "T7"},
	})

	again := schema.Decode(schema.Encode(store))

	got, ok := again.Get("7")
	require.True(t, ok)
	assert.Equal(t, "T7", got.Attributes["title"])
	assert.False(t, got.PostedDate.Known())
}

func TestBoolStatus(t *testing.T) {
	codec := BoolStatus()

	assert.Equal(t, "True", codec.Encode(domain.StatusSold))
	assert.Equal(t, "False", codec.Encode(domain.StatusAvailable))
	assert.Equal(t, domain.StatusSold, codec.Decode("1.0"))
	assert.Equal(t, domain.StatusAvailable, codec.Decode(""))
}

func TestParseBool(t *testing.T) {
	for _, raw := range []string{"True", "true", "1", "yes", "2"} {
		assert.True(t, ParseBool(raw), raw)
	}
	for _, raw := range []string{"False", "0", "", "no", "0.0"} {
		assert.False(t, ParseBool(raw), raw)
	}
}
