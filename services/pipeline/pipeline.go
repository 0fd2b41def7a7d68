// Package pipeline runs one ingestion cycle for a subscription: fetch the
// search page, extract candidate offers, drop incomplete and already seen
// ones, record the rest and notify about them.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dealmungchi/offerwatcher/internal/crawler"
	"github.com/dealmungchi/offerwatcher/internal/offer"
	"github.com/dealmungchi/offerwatcher/logger"
	apperrors "github.com/dealmungchi/offerwatcher/pkg/errors"
)

// Pipeline wires the cycle stages together
type Pipeline struct {
	fetcher   PageFetcher
	extractor OfferExtractor
	store     OfferStore
	notifier  Notifier
	now       func() time.Time
	log       *logger.Logger
}

// New creates a pipeline
func New(fetcher PageFetcher, extractor OfferExtractor, store OfferStore, notifier Notifier) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		notifier:  notifier,
		now:       time.Now,
		log:       logger.ForPipeline(),
	}
}

// WithClock replaces the clock used to stamp PostedAt
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// RunCycle returns the offers of sub's search page that were not recorded
// before, in page order. Every returned offer has been persisted. A fetch
// failure yields an empty result.
func (p *Pipeline) RunCycle(ctx context.Context, sub offer.Subscription) []offer.Offer {
	stats := &CycleStats{CycleID: uuid.NewString(), SubscriptionID: sub.ID}
	return p.runCycle(ctx, sub, stats, p.cycleLogger(sub, stats))
}

// Deliver notifies each offer in order and returns how many were delivered.
// A failed notification is logged and does not stop the rest; the offer stays
// recorded.
func (p *Pipeline) Deliver(ctx context.Context, sub offer.Subscription, offers []offer.Offer) int {
	stats := &CycleStats{SubscriptionID: sub.ID}
	p.deliver(ctx, sub, offers, stats, p.log.ForSubscription(sub.ID))
	return stats.Delivered
}

// Sync runs a cycle and delivers its new offers
func (p *Pipeline) Sync(ctx context.Context, sub offer.Subscription) *CycleStats {
	start := time.Now()
	stats := &CycleStats{CycleID: uuid.NewString(), SubscriptionID: sub.ID}
	log := p.cycleLogger(sub, stats)

	newOffers := p.runCycle(ctx, sub, stats, log)
	p.deliver(ctx, sub, newOffers, stats, log)
	stats.Duration = time.Since(start)

	log.Info().
		Bool("fetched", stats.Fetched).
		Int("candidates", stats.Candidates).
		Int("rejected", stats.Rejected).
		Int("duplicates", stats.Duplicates).
		Int("new", stats.New).
		Int("store_errors", stats.StoreErrors).
		Int("delivered", stats.Delivered).
		Int("notify_errors", stats.NotifyErrors).
		Dur("duration", stats.Duration).
		Msg("Cycle completed")

	return stats
}

func (p *Pipeline) cycleLogger(sub offer.Subscription, stats *CycleStats) *logger.Logger {
	return p.log.ForSubscription(sub.ID).WithField("cycle_id", stats.CycleID)
}

func (p *Pipeline) runCycle(ctx context.Context, sub offer.Subscription, stats *CycleStats, log *logger.Logger) []offer.Offer {
	doc, err := p.fetcher.Fetch(ctx, sub.URL)
	if err != nil {
		stats.FetchErr = err
		if apperrors.Is(err, apperrors.ErrorTypeRateLimit) {
			log.Warn().Err(err).Str("url", sub.URL).Msg("Site rate limit active, skipping cycle")
			return nil
		}
		log.Error().
			Err(err).
			Str("url", sub.URL).
			Str("error_type", string(apperrors.TypeOf(err))).
			Msg("Failed to fetch search page")
		return nil
	}
	stats.Fetched = true

	candidates := p.extractor.Extract(doc)
	stats.Candidates = len(candidates)
	log.Debug().Int("candidates", len(candidates)).Msg("Extracted offers")

	var newOffers []offer.Offer
	for _, o := range candidates {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("Cycle interrupted")
			break
		}

		if !crawler.IsAcceptable(o) {
			stats.Rejected++
			log.Debug().Str("url", o.URL).Str("title", o.Title).Msg("Rejecting incomplete offer")
			continue
		}

		exists, err := p.store.Exists(ctx, sub.ID, o.URL)
		if err != nil {
			stats.StoreErrors++
			log.Error().Err(err).Str("url", o.URL).Msg("Failed to check offer")
			continue
		}
		if exists {
			stats.Duplicates++
			log.Debug().Str("url", o.URL).Msg("Offer already recorded")
			continue
		}

		o.PostedAt = p.now()
		inserted, err := p.store.InsertIfAbsent(ctx, sub.ID, o)
		if err != nil {
			stats.StoreErrors++
			log.Error().Err(err).Str("url", o.URL).Msg("Failed to record offer")
			continue
		}
		if !inserted {
			stats.Duplicates++
			continue
		}

		stats.New++
		log.Info().Str("url", o.URL).Str("title", o.Title).Msg("New offer recorded")
		newOffers = append(newOffers, o)
	}

	return newOffers
}

func (p *Pipeline) deliver(ctx context.Context, sub offer.Subscription, offers []offer.Offer, stats *CycleStats, log *logger.Logger) {
	for _, o := range offers {
		if err := p.notifier.Notify(ctx, o, sub); err != nil {
			stats.NotifyErrors++
			log.Error().Err(err).Str("url", o.URL).Str("target", sub.NotificationTarget).Msg("Failed to send notification")
			continue
		}
		stats.Delivered++
		log.Debug().Str("url", o.URL).Msg("Notification sent")
	}
}
