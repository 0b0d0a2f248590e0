package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSiteFromWebsite(t *testing.T) {
	tests := []struct {
		website string
		want    Site
		ok      bool
	}{
		{website: "sgcarmart.com", want: SiteSGCarMart, ok: true},
		{website: " WWW.Carro.co ", want: SiteCarro, ok: true},
		{website: "motorist", want: SiteMotorist, ok: true},
		{website: "autotrader.sg", ok: false},
		{website: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.website, func(t *testing.T) {
			got, ok := SiteFromWebsite(tt.website)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergedDataset_PendingBySite(t *testing.T) {
	m := &MergedDataset{Rows: []MergedRow{
		{Website: "motorist.sg", URL: "https://www.motorist.sg/used-car/1"},
		{Website: "motorist.sg", URL: "https://www.motorist.sg/used-car/1/"},
		{Website: "motorist.sg", URL: "https://www.motorist.sg/used-car/2", Sold: true},
		{Website: "carro.co", URL: "https://carro.co/sg/en/cars/a"},
		{Website: "carro.co", URL: ""},
		{Website: "unknown.sg", URL: "https://unknown.sg/1"},
	}}

	pending, unrouted := m.PendingBySite()

	assert.Equal(t, 1, unrouted)
	assert.Equal(t, []string{"https://www.motorist.sg/used-car/1"}, pending[SiteMotorist])
	assert.Equal(t, []string{"https://carro.co/sg/en/cars/a"}, pending[SiteCarro])
	assert.Empty(t, pending[SiteSGCarMart])
}

func TestMergedDataset_MarkSoldByURL(t *testing.T) {
	m := &MergedDataset{Rows: []MergedRow{
		{Website: "motorist.sg", URL: "https://www.motorist.sg/used-car/1"},
		{Website: "motorist.sg", URL: "https://www.motorist.sg/used-car/1/"},
		{Website: "motorist.sg", URL: "https://www.motorist.sg/used-car/2"},
	}}

	assert.Equal(t, 2, m.MarkSoldByURL("https://www.motorist.sg/used-car/1"))
	assert.Equal(t, 0, m.MarkSoldByURL("https://www.motorist.sg/used-car/1"))
	assert.True(t, m.Rows[0].Sold)
	assert.True(t, m.Rows[1].Sold)
	assert.False(t, m.Rows[2].Sold)
}
