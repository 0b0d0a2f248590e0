package carro

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"car_resale/internal/domain"
	"car_resale/internal/source/web"
)

type listingResponse struct {
	Data struct {
		ListedAt             string `json:"listed_at"`
		AskingPriceUpdatedAt string `json:"asking_price_updated_at"`
	} `json:"data"`
}

// ListingDates holds the dates the listing API reports for one car.
type ListingDates struct {
	Posted       domain.Date
	PriceUpdated domain.Date
}

// fetchDates asks the listing API when slug was listed and last repriced.
func fetchDates(ctx context.Context, client *web.Client, apiURL, slug string) (ListingDates, error) {
	if slug == "" {
		return ListingDates{}, fmt.Errorf("empty listing slug")
	}
	endpoint := strings.TrimSuffix(apiURL, "/") + "/listings/" + url.PathEscape(slug)
	params := url.Values{}
	params.Set("lang", "en")

	body, err := client.Get(ctx, endpoint, params)
	if err != nil {
		return ListingDates{}, fmt.Errorf("fetch listing %s: %w", slug, err)
	}

	var resp listingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ListingDates{}, fmt.Errorf("decode listing %s: %w", slug, err)
	}
	return ListingDates{
		Posted:       domain.ParseDate(datePart(resp.Data.ListedAt)),
		PriceUpdated: domain.ParseDate(datePart(resp.Data.AskingPriceUpdatedAt)),
	}, nil
}

func datePart(ts string) string {
	ts = strings.TrimSpace(ts)
	if i := strings.IndexAny(ts, " T"); i > 0 {
		return ts[:i]
	}
	return ts
}
