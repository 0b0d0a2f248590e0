package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"car_resale/internal/config"
	"car_resale/internal/domain"
	"car_resale/internal/service/mocks"
)

type SGCarMartCrawlerTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	extractor *mocks.MockBrandExtractor
	crawler   *SGCarMartCrawler
}

func (s *SGCarMartCrawlerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.extractor = mocks.NewMockBrandExtractor(s.ctrl)
	s.extractor.EXPECT().ListingID(gomock.Any()).DoAndReturn(lastSegment).AnyTimes()

	s.crawler = NewSGCarMartCrawler(s.extractor, config.SGCarMartConfig{
		SkipBrands:      []string{"Mitsubish"},
		Guardrails:      config.Guardrails{MaxPages: 50, MaxRepeatedPages: 2},
		FrontierLagDays: 1,
	}, nil, testLogger())
	s.crawler.now = fixedNow
}

func (s *SGCarMartCrawlerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestSGCarMartCrawlerTestSuite(t *testing.T) {
	suite.Run(t, new(SGCarMartCrawlerTestSuite))
}

func sgcmURL(id string) string {
	return "https://www.sgcarmart.com/used-cars/info/" + id
}

func sgcmCard(id string, posted domain.Date) domain.IndexItem {
	return domain.IndexItem{URL: sgcmURL(id), PostedDate: posted}
}

func sgcmListing(id string) domain.Listing {
	return domain.Listing{URL: sgcmURL(id), Status: domain.StatusAvailable, Attributes: map[string]string{"car_model": "model " + id}}
}

func brandPages(byBrand map[string][][]domain.IndexItem) func(context.Context, string, int) ([]domain.IndexItem, error) {
	return func(_ context.Context, brand string, page int) ([]domain.IndexItem, error) {
		p := byBrand[brand]
		if page < 1 || page > len(p) {
			return nil, nil
		}
		return p[page-1], nil
	}
}

func (s *SGCarMartCrawlerTestSuite) TestCrawl_FirstRunWalksEveryBrand() {
	ctx := context.Background()
	jan := func(d int) domain.Date { return day(2024, time.January, d) }

	s.extractor.EXPECT().Brands(ctx).Return([]string{"Toyota", "Mitsubish", "Honda"}, nil)
	s.extractor.EXPECT().FetchBrandIndex(ctx, gomock.Not("Mitsubish"), gomock.Any()).DoAndReturn(brandPages(map[string][][]domain.IndexItem{
		"Toyota": {{sgcmCard("11", jan(14)), sgcmCard("12", jan(1))}},
		"Honda":  {{sgcmCard("21", jan(13))}},
	})).Times(4)
	s.extractor.EXPECT().FetchDetail(ctx, gomock.Any()).DoAndReturn(details(
		sgcmListing("11"), sgcmListing("12"), sgcmListing("21"),
	)).Times(3)

	store, stats, err := s.crawler.Crawl(ctx, domain.NewStore())

	s.NoError(err)
	s.Equal(ModeAll, stats.Mode)
	s.Equal(3, stats.Added)
	s.Equal([]string{"11", "12", "21"}, store.Keys())

	l, _ := store.Get("12")
	s.True(l.PostedDate.Equal(jan(1)), "posted date comes from the index")
}

func (s *SGCarMartCrawlerTestSuite) TestCrawl_StopsBrandAtCutoffWithoutFetchingDetail() {
	ctx := context.Background()
	jan := func(d int) domain.Date { return day(2024, time.January, d) }

	old := sgcmListing("1")
	old.ID = "1"
	old.PostedDate = jan(8)
	old.ScrapeDate = jan(10)
	prev := storeOf(old)

	s.extractor.EXPECT().Brands(ctx).Return([]string{"Toyota", "Honda"}, nil)
	s.extractor.EXPECT().FetchBrandIndex(ctx, "Toyota", 1).Return([]domain.IndexItem{
		sgcmCard("30", jan(14)), sgcmCard("31", jan(9)), sgcmCard("32", jan(8)), sgcmCard("33", jan(14)),
	}, nil)
	s.extractor.EXPECT().FetchBrandIndex(ctx, "Honda", 1).Return([]domain.IndexItem{
		sgcmCard("40", jan(12)), sgcmCard("1", jan(8)),
	}, nil)
	s.extractor.EXPECT().FetchDetail(ctx, sgcmURL("30")).DoAndReturn(details(sgcmListing("30")))
	s.extractor.EXPECT().FetchDetail(ctx, sgcmURL("31")).DoAndReturn(details(sgcmListing("31")))
	s.extractor.EXPECT().FetchDetail(ctx, sgcmURL("40")).DoAndReturn(details(sgcmListing("40")))

	store, stats, err := s.crawler.Crawl(ctx, prev)

	s.NoError(err)
	s.Equal(ModeIncremental, stats.Mode)
	s.True(stats.Frontier.Equal(jan(9)))
	s.Equal(domain.HaltFrontier, stats.HaltReason)
	s.Equal(map[string]domain.HaltReason{
		"Toyota": domain.HaltFrontier,
		"Honda":  domain.HaltFrontier,
	}, stats.WalkHalts)
	s.Equal([]string{"1", "30", "31", "40"}, store.Keys())
}

func (s *SGCarMartCrawlerTestSuite) TestCrawl_RecordsHaltReasonPerBrand() {
	ctx := context.Background()
	jan := func(d int) domain.Date { return day(2024, time.January, d) }

	old := sgcmListing("1")
	old.ID = "1"
	old.PostedDate = jan(8)
	old.ScrapeDate = jan(10)

	s.extractor.EXPECT().Brands(ctx).Return([]string{"Toyota", "Honda"}, nil)
	s.extractor.EXPECT().FetchBrandIndex(ctx, "Toyota", 1).Return([]domain.IndexItem{
		sgcmCard("30", jan(14)), sgcmCard("32", jan(8)),
	}, nil)
	s.extractor.EXPECT().FetchBrandIndex(ctx, "Honda", 1).Return([]domain.IndexItem{
		sgcmCard("40", jan(12)),
	}, nil)
	s.extractor.EXPECT().FetchBrandIndex(ctx, "Honda", 2).Return(nil, nil)
	s.extractor.EXPECT().FetchDetail(ctx, sgcmURL("30")).DoAndReturn(details(sgcmListing("30")))
	s.extractor.EXPECT().FetchDetail(ctx, sgcmURL("40")).DoAndReturn(details(sgcmListing("40")))

	_, stats, err := s.crawler.Crawl(ctx, storeOf(old))

	s.NoError(err)
	s.Equal(domain.HaltMixed, stats.HaltReason)
	s.Equal(map[string]domain.HaltReason{
		"Toyota": domain.HaltFrontier,
		"Honda":  domain.HaltEndOfIndex,
	}, stats.WalkHalts)
	s.Equal(2, stats.Added)
}

func TestCombineHalts(t *testing.T) {
	tests := []struct {
		name  string
		halts map[string]domain.HaltReason
		want  domain.HaltReason
	}{
		{name: "no walks", halts: nil, want: ""},
		{name: "single walk", halts: map[string]domain.HaltReason{"BMW": domain.HaltPageCap}, want: domain.HaltPageCap},
		{
			name:  "same reason",
			halts: map[string]domain.HaltReason{"BMW": domain.HaltFrontier, "Audi": domain.HaltFrontier},
			want:  domain.HaltFrontier,
		},
		{
			name:  "different reasons",
			halts: map[string]domain.HaltReason{"BMW": domain.HaltFrontier, "Audi": domain.HaltNoNewPages},
			want:  domain.HaltMixed,
		},
		{
			name:  "cancellation wins",
			halts: map[string]domain.HaltReason{"BMW": domain.HaltFrontier, "Audi": domain.HaltCanceled},
			want:  domain.HaltCanceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, combineHalts(tt.halts))
		})
	}
}

func (s *SGCarMartCrawlerTestSuite) TestCrawl_ListingUnderTwoBrandsFetchedOnce() {
	ctx := context.Background()
	jan := func(d int) domain.Date { return day(2024, time.January, d) }

	s.extractor.EXPECT().Brands(ctx).Return([]string{"Lexus", "Toyota"}, nil)
	s.extractor.EXPECT().FetchBrandIndex(ctx, gomock.Any(), gomock.Any()).DoAndReturn(brandPages(map[string][][]domain.IndexItem{
		"Lexus":  {{sgcmCard("7", jan(12))}},
		"Toyota": {{sgcmCard("7", jan(12)), sgcmCard("8", jan(11))}},
	})).Times(4)
	s.extractor.EXPECT().FetchDetail(ctx, sgcmURL("7")).DoAndReturn(details(sgcmListing("7"))).Times(1)
	s.extractor.EXPECT().FetchDetail(ctx, sgcmURL("8")).DoAndReturn(details(sgcmListing("8"))).Times(1)

	store, stats, err := s.crawler.Crawl(ctx, domain.NewStore())

	s.NoError(err)
	s.Equal(2, stats.Added)
	s.Equal(2, store.Len())
}

func (s *SGCarMartCrawlerTestSuite) TestCrawl_BrandListFailureKeepsPreviousStore() {
	ctx := context.Background()
	prev := storeOf(domain.Listing{ID: "1", URL: sgcmURL("1"), PostedDate: day(2024, time.January, 3)})

	s.extractor.EXPECT().Brands(ctx).Return(nil, errors.New("blocked"))

	store, stats, err := s.crawler.Crawl(ctx, prev)

	s.NoError(err)
	s.Equal(domain.HaltEndOfIndex, stats.HaltReason)
	s.Equal(prev.Keys(), store.Keys())
}

func (s *SGCarMartCrawlerTestSuite) TestCutoff_FallsBackToPostedDate() {
	prev := storeOf(domain.Listing{ID: "1", URL: sgcmURL("1"), PostedDate: day(2024, time.January, 3)})

	s.True(s.crawler.cutoff(prev).Latest.Equal(day(2024, time.January, 3)))
	s.True(s.crawler.cutoff(domain.NewStore()).FirstRun())
}
