package sgcarmart

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"car_resale/internal/domain"
	"car_resale/internal/source/web"
)

const brandPage = `<html><body>
<script>self.__next_f.push([1,"{\"options\":[{\"value\":\"\",\"text\":\"All Makes\"},{\"value\":\"Toyota\",\"text\":\"Toyota\"},{\"value\":\"Honda\",\"text\":\"Honda\"},{\"value\":\"\",\"text\":\"Any Status\"},{\"value\":\"a\",\"text\":\"Available\"}]}"])</script>
</body></html>`

const indexPage = `<html><body>
<script>self.__next_f.push([1,"{\"listing_data\":{\"data\":[{\"date\":\"02-Jun-2025\",\"link\":\"/used-cars/info/toyota-corolla-altis-1234567\",\"title\":\"Corolla [Altis]\"},{\"date\":\"1-Jun-2025\",\"link\":\"/used-cars/info/toyota-vios-1234500\"}],\"total\":2}}"])</script>
</body></html>`

const emptyIndexPage = `<html><body><script>self.__next_f.push([1,"{\"nothing\":true}"])</script></body></html>`

const detailPage = `<html><body>
<script>window.__PAGE_STATE__ = {"infoUrlData":{"id":1234567},"ucInfoDetailData":{"data":{"car_model":"Toyota Corolla Altis 1.6A","depreciation":"$9,870 /yr","mileage":"45,000 km","owners":1,"status":"Available","posted_on":"02-Jun-2025","type_of_vehicle":{"text":"Mid-Sized Sedan"}}},"ucInfoPageData":{"data":{"price":"$45,800","coe_left":"5yrs 2mths"}}};</script>
</body></html>`

const soldDetailPage = `<html><body>
<script>window.__PAGE_STATE__ = {"infoUrlData":{},"ucInfoDetailData":{"data":{"car_model":"Toyota Vios","status":"SOLD"}}}</script>
</body></html>`

type SGCarMartSourceTestSuite struct {
	suite.Suite
	server *httptest.Server
	source *Source
}

func (s *SGCarMartSourceTestSuite) SetupTest() {
	mux := http.NewServeMux()
	mux.HandleFunc("/used-cars/listing", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		s.Equal("a", q.Get("avl"))
		switch {
		case q.Get("q") == "":
			_, _ = w.Write([]byte(brandPage))
		case q.Get("q") == "Toyota" && q.Get("page") == "1":
			s.Equal("50", q.Get("limit"))
			_, _ = w.Write([]byte(indexPage))
		default:
			_, _ = w.Write([]byte(emptyIndexPage))
		}
	})
	mux.HandleFunc("/used-cars/info/toyota-corolla-altis-1234567", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(detailPage))
	})
	mux.HandleFunc("/used-cars/info/toyota-vios-1234500", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(soldDetailPage))
	})
	mux.HandleFunc("/used-cars/info/blank-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>Please wait</p></body></html>`))
	})
	s.server = httptest.NewServer(mux)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := web.New(web.Config{MaxAttempts: 1}, logger)
	s.source = New(Config{BaseURL: s.server.URL + "/", PageSize: 50}, client, logger)
}

func (s *SGCarMartSourceTestSuite) TearDownTest() {
	s.server.Close()
}

func TestSGCarMartSourceTestSuite(t *testing.T) {
	suite.Run(t, new(SGCarMartSourceTestSuite))
}

func (s *SGCarMartSourceTestSuite) TestBrands() {
	brands, err := s.source.Brands(context.Background())
	s.Require().NoError(err)
	s.Equal([]string{"Toyota", "Honda"}, brands)
}

func (s *SGCarMartSourceTestSuite) TestFetchBrandIndex() {
	items, err := s.source.FetchBrandIndex(context.Background(), "Toyota", 1)
	s.Require().NoError(err)

	s.Require().Len(items, 2)
	s.Equal(s.server.URL+"/used-cars/info/toyota-corolla-altis-1234567", items[0].URL)
	s.Equal("2025-06-02", items[0].PostedDate.String())
	s.Equal("2025-06-01", items[1].PostedDate.String())
}

func (s *SGCarMartSourceTestSuite) TestFetchBrandIndex_PastLastPage() {
	items, err := s.source.FetchBrandIndex(context.Background(), "Toyota", 2)
	s.NoError(err)
	s.Empty(items)
}

func (s *SGCarMartSourceTestSuite) TestFetchDetail() {
	url := s.server.URL + "/used-cars/info/toyota-corolla-altis-1234567"
	listing, err := s.source.FetchDetail(context.Background(), url)
	s.Require().NoError(err)

	s.Equal("1234567", listing.ID)
	s.Equal(url, listing.URL)
	s.Equal(domain.StatusAvailable, listing.Status)
	s.Equal("2025-06-02", listing.PostedDate.String())
	s.Equal("Toyota Corolla Altis 1.6A", listing.Attributes["car_model"])
	s.Equal("$9,870 /yr", listing.Attributes["depreciation"])
	s.Equal("1", listing.Attributes["owners"])
	s.Equal("Mid-Sized Sedan", listing.Attributes["type_of_vehicle"])
	s.Equal("$45,800", listing.Attributes["price"])
	s.Equal("5yrs 2mths", listing.Attributes["coe_left"])
	s.Equal("", listing.Attributes["omv"])
	s.NotContains(listing.Attributes, "status")
	s.NotContains(listing.Attributes, "posted_on")
}

func (s *SGCarMartSourceTestSuite) TestFetchDetail_NoPayload() {
	_, err := s.source.FetchDetail(context.Background(), s.server.URL+"/used-cars/info/blank-1")
	s.ErrorIs(err, ErrNoListingData)
}

func (s *SGCarMartSourceTestSuite) TestProbe() {
	ctx := context.Background()

	sold, err := s.source.Probe(ctx, s.server.URL+"/used-cars/info/toyota-vios-1234500")
	s.NoError(err)
	s.True(sold)

	sold, err = s.source.Probe(ctx, s.server.URL+"/used-cars/info/toyota-corolla-altis-1234567")
	s.NoError(err)
	s.False(sold)

	sold, err = s.source.Probe(ctx, s.server.URL+"/used-cars/info/blank-1")
	s.NoError(err)
	s.False(sold)

	sold, err = s.source.Probe(ctx, s.server.URL+"/used-cars/info/removed-9")
	s.NoError(err)
	s.True(sold)
}

func TestListingID(t *testing.T) {
	assert.Equal(t, "1234567", ListingID("https://www.sgcarmart.com/used-cars/info/toyota-corolla-altis-1234567/"))
	assert.Equal(t, "98765", ListingID("https://www.sgcarmart.com/used_cars/info.php?ID=98765&DL=1"))
	assert.Equal(t, "", ListingID("https://www.sgcarmart.com/used-cars/listing"))
}

func TestStatusFromLabel(t *testing.T) {
	assert.Equal(t, domain.StatusSold, StatusFromLabel(" Sold "))
	assert.Equal(t, domain.StatusSold, StatusFromLabel("EXPIRED"))
	assert.Equal(t, domain.StatusAvailable, StatusFromLabel("Available for sale"))
	assert.Equal(t, domain.StatusAvailable, StatusFromLabel(""))
}

func TestBalanced(t *testing.T) {
	assert.Equal(t, `[1,[2],"]"]`, balanced(`x = [1,[2],"]"] tail]`, '[', ']'))
	assert.Equal(t, `{"a":"}\"}"}`, balanced(`{"a":"}\"}"} {`, '{', '}'))
	assert.Equal(t, "", balanced(`[1,2`, '[', ']'))
	assert.Equal(t, "", balanced(`no brackets`, '[', ']'))
}

func TestUnescapeScript(t *testing.T) {
	assert.Equal(t, `{"a":"b/c"}`, unescapeScript(`{\"a\":\"b\/c\"}`))
	assert.Equal(t, "line\nnext\ttab", unescapeScript(`line\nnext\ttab`))
	assert.Equal(t, "café", unescapeScript(`café`))
	assert.Equal(t, `\x`, unescapeScript(`\x`))
	assert.Equal(t, "plain", unescapeScript("plain"))
}

func TestParseIndex_MalformedData(t *testing.T) {
	doc, err := web.ParseDocument([]byte(`<script>{"listing_data":{"data":[{"date":</script>`))
	require.NoError(t, err)

	_, err = parseIndex(doc)
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	schema := Schema()

	assert.Equal(t, domain.SiteSGCarMart, schema.Site)
	assert.NotContains(t, schema.Columns, "status")
	assert.NotContains(t, schema.Columns, "posted_on")
	assert.Contains(t, schema.Columns, "coe_left")
	assert.Equal(t, domain.StatusSold, schema.Status.Decode("Expired"))
	assert.Equal(t, "Available for sale", schema.Status.Encode(domain.StatusAvailable))
}
