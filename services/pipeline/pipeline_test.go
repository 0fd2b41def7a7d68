package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/dealmungchi/offerwatcher/internal/offer"
	"github.com/dealmungchi/offerwatcher/logger"
	apperrors "github.com/dealmungchi/offerwatcher/pkg/errors"
	"github.com/dealmungchi/offerwatcher/services/pipeline/mocks"
)

type PipelineTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	fetcher   *mocks.MockPageFetcher
	extractor *mocks.MockOfferExtractor
	store     *mocks.MockOfferStore
	notifier  *mocks.MockNotifier

	pipeline *Pipeline
	now      time.Time
	sub      offer.Subscription
	doc      *goquery.Document
}

func (s *PipelineTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.fetcher = mocks.NewMockPageFetcher(s.ctrl)
	s.extractor = mocks.NewMockOfferExtractor(s.ctrl)
	s.store = mocks.NewMockOfferStore(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)

	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.pipeline = New(s.fetcher, s.extractor, s.store, s.notifier).
		WithClock(func() time.Time { return s.now })

	s.sub = offer.Subscription{ID: 7, URL: "https://www.otomoto.pl/osobowe/audi", NotificationTarget: "log:"}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	s.Require().NoError(err)
	s.doc = doc
}

func (s *PipelineTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func completeOffer(url string) offer.Offer {
	o := offer.NewUnknown()
	o.URL = url
	o.Title = "Audi A4 " + url
	o.Price = "45 000 PLN"
	o.ImageURL = "https://img.example.com" + url + ".jpg"
	o.Mileage = "150 000 km"
	return o
}

func (s *PipelineTestSuite) stamped(o offer.Offer) offer.Offer {
	o.PostedAt = s.now
	return o
}

func (s *PipelineTestSuite) TestRunCycle_NewOffers() {
	ctx := context.Background()

	fresh := completeOffer("/ad/1")
	incomplete := completeOffer("/ad/2")
	incomplete.Price = offer.Unknown
	seen := completeOffer("/ad/3")
	fresh2 := completeOffer("/ad/4")

	gomock.InOrder(
		s.fetcher.EXPECT().Fetch(ctx, s.sub.URL).Return(s.doc, nil),
		s.extractor.EXPECT().Extract(s.doc).Return([]offer.Offer{fresh, incomplete, seen, fresh2}),
		s.store.EXPECT().Exists(ctx, int64(7), "/ad/1").Return(false, nil),
		s.store.EXPECT().InsertIfAbsent(ctx, int64(7), s.stamped(fresh)).Return(true, nil),
		s.store.EXPECT().Exists(ctx, int64(7), "/ad/3").Return(true, nil),
		s.store.EXPECT().Exists(ctx, int64(7), "/ad/4").Return(false, nil),
		s.store.EXPECT().InsertIfAbsent(ctx, int64(7), s.stamped(fresh2)).Return(true, nil),
	)

	result := s.pipeline.RunCycle(ctx, s.sub)

	s.Require().Len(result, 2)
	s.Equal("/ad/1", result[0].URL)
	s.Equal("/ad/4", result[1].URL)
	s.Equal(s.now, result[0].PostedAt)
}

func (s *PipelineTestSuite) TestRunCycle_FetchErrorYieldsNothing() {
	ctx := context.Background()

	s.fetcher.EXPECT().Fetch(ctx, s.sub.URL).Return(nil, apperrors.NewHTTPStatus("fetcher", 500))

	result := s.pipeline.RunCycle(ctx, s.sub)
	s.Empty(result)
}

func (s *PipelineTestSuite) TestRunCycle_PersistenceFailureIsNotNew() {
	ctx := context.Background()

	failing := completeOffer("/ad/1")
	next := completeOffer("/ad/2")

	s.fetcher.EXPECT().Fetch(ctx, s.sub.URL).Return(s.doc, nil)
	s.extractor.EXPECT().Extract(s.doc).Return([]offer.Offer{failing, next})
	s.store.EXPECT().Exists(ctx, int64(7), "/ad/1").Return(false, nil)
	s.store.EXPECT().InsertIfAbsent(ctx, int64(7), s.stamped(failing)).
		Return(false, apperrors.NewPersistence("store", "insert offer", errors.New("connection reset")))
	s.store.EXPECT().Exists(ctx, int64(7), "/ad/2").Return(false, nil)
	s.store.EXPECT().InsertIfAbsent(ctx, int64(7), s.stamped(next)).Return(true, nil)

	result := s.pipeline.RunCycle(ctx, s.sub)

	s.Require().Len(result, 1)
	s.Equal("/ad/2", result[0].URL)
}

func (s *PipelineTestSuite) TestRunCycle_ExistsFailureSkipsItem() {
	ctx := context.Background()

	s.fetcher.EXPECT().Fetch(ctx, s.sub.URL).Return(s.doc, nil)
	s.extractor.EXPECT().Extract(s.doc).Return([]offer.Offer{completeOffer("/ad/1")})
	s.store.EXPECT().Exists(ctx, int64(7), "/ad/1").Return(false, errors.New("timeout"))

	s.Empty(s.pipeline.RunCycle(ctx, s.sub))
}

func (s *PipelineTestSuite) TestRunCycle_LostInsertRaceIsDuplicate() {
	ctx := context.Background()

	o := completeOffer("/ad/1")
	s.fetcher.EXPECT().Fetch(ctx, s.sub.URL).Return(s.doc, nil)
	s.extractor.EXPECT().Extract(s.doc).Return([]offer.Offer{o})
	s.store.EXPECT().Exists(ctx, int64(7), "/ad/1").Return(false, nil)
	s.store.EXPECT().InsertIfAbsent(ctx, int64(7), s.stamped(o)).Return(false, nil)

	s.Empty(s.pipeline.RunCycle(ctx, s.sub))
}

func (s *PipelineTestSuite) TestRunCycle_RejectsEveryIncompleteShape() {
	ctx := context.Background()

	noURL := completeOffer("/ad/1")
	noURL.URL = offer.Unknown
	noTitle := completeOffer("/ad/2")
	noTitle.Title = offer.Unknown
	noImage := completeOffer("/ad/3")
	noImage.ImageURL = offer.Unknown
	noPrice := completeOffer("/ad/4")
	noPrice.Price = offer.Unknown

	s.fetcher.EXPECT().Fetch(ctx, s.sub.URL).Return(s.doc, nil)
	s.extractor.EXPECT().Extract(s.doc).Return([]offer.Offer{noURL, noTitle, noImage, noPrice})

	s.Empty(s.pipeline.RunCycle(ctx, s.sub))
}

func (s *PipelineTestSuite) TestDeliver_FailureDoesNotStopTheRest() {
	ctx := context.Background()

	offers := []offer.Offer{completeOffer("/ad/1"), completeOffer("/ad/2"), completeOffer("/ad/3")}

	gomock.InOrder(
		s.notifier.EXPECT().Notify(ctx, offers[0], s.sub).Return(nil),
		s.notifier.EXPECT().Notify(ctx, offers[1], s.sub).Return(apperrors.NewNotify("webhook", "delivery failed", nil)),
		s.notifier.EXPECT().Notify(ctx, offers[2], s.sub).Return(nil),
	)

	s.Equal(2, s.pipeline.Deliver(ctx, s.sub, offers))
}

func (s *PipelineTestSuite) TestSync_Stats() {
	ctx := context.Background()

	fresh := completeOffer("/ad/1")
	incomplete := completeOffer("/ad/2")
	incomplete.ImageURL = offer.Unknown
	seen := completeOffer("/ad/3")

	s.fetcher.EXPECT().Fetch(ctx, s.sub.URL).Return(s.doc, nil)
	s.extractor.EXPECT().Extract(s.doc).Return([]offer.Offer{fresh, incomplete, seen})
	s.store.EXPECT().Exists(ctx, int64(7), "/ad/1").Return(false, nil)
	s.store.EXPECT().InsertIfAbsent(ctx, int64(7), s.stamped(fresh)).Return(true, nil)
	s.store.EXPECT().Exists(ctx, int64(7), "/ad/3").Return(true, nil)
	s.notifier.EXPECT().Notify(ctx, s.stamped(fresh), s.sub).Return(errors.New("broker down"))

	stats := s.pipeline.Sync(ctx, s.sub)

	s.True(stats.Fetched)
	s.NotEmpty(stats.CycleID)
	s.Equal(int64(7), stats.SubscriptionID)
	s.Equal(3, stats.Candidates)
	s.Equal(1, stats.Rejected)
	s.Equal(1, stats.Duplicates)
	s.Equal(1, stats.New)
	s.Equal(0, stats.Delivered)
	s.Equal(1, stats.NotifyErrors)
}

func (s *PipelineTestSuite) TestSync_FetchFailure() {
	ctx := context.Background()

	s.fetcher.EXPECT().Fetch(ctx, s.sub.URL).Return(nil, errors.New("dial tcp: connection refused"))

	stats := s.pipeline.Sync(ctx, s.sub)
	s.False(stats.Fetched)
	s.Zero(stats.New)
	s.EqualError(stats.FetchErr, "dial tcp: connection refused")
}

func (s *PipelineTestSuite) TestSync_RateLimitedLogsWarning() {
	ctx := context.Background()
	var buf bytes.Buffer
	s.pipeline.log = logger.New(&buf)

	s.fetcher.EXPECT().Fetch(ctx, s.sub.URL).Return(nil, apperrors.NewRateLimit("fetcher", time.Minute))

	stats := s.pipeline.Sync(ctx, s.sub)
	s.False(stats.Fetched)
	s.True(apperrors.Is(stats.FetchErr, apperrors.ErrorTypeRateLimit))
	s.Contains(buf.String(), `"level":"warn"`)
	s.Contains(buf.String(), "Site rate limit active")
	s.NotContains(buf.String(), `"level":"error"`)
}

func (s *PipelineTestSuite) TestSync_FetchErrorLogsType() {
	ctx := context.Background()
	var buf bytes.Buffer
	s.pipeline.log = logger.New(&buf)

	s.fetcher.EXPECT().Fetch(ctx, s.sub.URL).Return(nil, apperrors.NewHTTPStatus("fetcher", 503))

	s.pipeline.Sync(ctx, s.sub)
	s.Contains(buf.String(), `"level":"error"`)
	s.Contains(buf.String(), `"error_type":"http_status"`)
}
