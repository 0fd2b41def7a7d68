package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dealmungchi/offerwatcher/internal/offer"
	"github.com/dealmungchi/offerwatcher/logger"
	apperrors "github.com/dealmungchi/offerwatcher/pkg/errors"
	"github.com/dealmungchi/offerwatcher/services/pipeline"
)

// ErrUnhandled is returned by Start when a cycle failed in a way the loop
// cannot recover from. The process is expected to restart.
var ErrUnhandled = errors.New("worker: unhandled failure")

// Syncer runs one ingestion cycle for a subscription
type Syncer interface {
	Sync(ctx context.Context, sub offer.Subscription) *pipeline.CycleStats
}

// SubscriptionSource lists subscriptions and records sync times
type SubscriptionSource interface {
	List(ctx context.Context) ([]offer.Subscription, error)
	TouchLastSync(ctx context.Context, id int64, at time.Time) error
}

// StreamTrimmer bounds notification streams after each tick
type StreamTrimmer interface {
	TrimStreams(ctx context.Context) error
}

// Worker runs a cycle for every subscription, then sleeps for the crawl
// interval, until the context is cancelled.
type Worker struct {
	syncer        Syncer
	subs          SubscriptionSource
	trimmer       StreamTrimmer
	crawlInterval time.Duration
	concurrency   int
	log           *logger.Logger
}

// NewWorker creates a new worker. trimmer may be nil. A concurrency below 2
// processes subscriptions one after another.
func NewWorker(
	syncer Syncer,
	subs SubscriptionSource,
	trimmer StreamTrimmer,
	crawlInterval time.Duration,
	concurrency int,
) *Worker {
	return &Worker{
		syncer:        syncer,
		subs:          subs,
		trimmer:       trimmer,
		crawlInterval: crawlInterval,
		concurrency:   concurrency,
		log:           logger.ForWorker(),
	}
}

// Start runs ticks until ctx is cancelled, returning ctx.Err(), or until a
// tick fails with ErrUnhandled.
func (w *Worker) Start(ctx context.Context) error {
	w.log.Info().Dur("interval", w.crawlInterval).Int("concurrency", w.concurrency).Msg("Worker started")

	for {
		start := time.Now()
		if err := w.Tick(ctx); err != nil {
			return err
		}
		w.log.Debug().Dur("elapsed", time.Since(start)).Msg("Tick completed")

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return ctx.Err()
		case <-time.After(w.crawlInterval):
		}
	}
}

// Tick runs one cycle per subscription in the current snapshot. A failing
// subscription never prevents the others from running.
func (w *Worker) Tick(ctx context.Context) error {
	subs, err := w.subs.List(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Failed to list subscriptions, skipping tick")
		return nil
	}
	if len(subs) == 0 {
		w.log.Debug().Msg("No subscriptions")
	}

	var unhandled error
	if w.concurrency <= 1 {
		for _, sub := range subs {
			if ctx.Err() != nil {
				break
			}
			if err := w.runSubscription(ctx, sub); err != nil && unhandled == nil {
				unhandled = err
			}
		}
	} else {
		unhandled = w.runConcurrently(ctx, subs)
	}

	// Trim all streams after crawling
	if w.trimmer != nil && ctx.Err() == nil {
		if err := w.trimmer.TrimStreams(ctx); err != nil {
			w.log.Warn().Err(err).Msg("Failed to trim notification streams")
		}
	}

	return unhandled
}

func (w *Worker) runConcurrently(ctx context.Context, subs []offer.Subscription) error {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		unhandled error
	)
	sem := make(chan struct{}, w.concurrency)

	for _, sub := range subs {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(sub offer.Subscription) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := w.runSubscription(ctx, sub); err != nil {
				mu.Lock()
				if unhandled == nil {
					unhandled = err
				}
				mu.Unlock()
			}
		}(sub)
	}
	wg.Wait()

	return unhandled
}

// runSubscription converts a panic escaping the cycle into ErrUnhandled
func (w *Worker) runSubscription(ctx context.Context, sub offer.Subscription) (err error) {
	log := w.log.ForSubscription(sub.ID)

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("panic", fmt.Sprint(r)).
				Str("stack", string(debug.Stack())).
				Msg("Cycle panicked")
			err = fmt.Errorf("%w: subscription %d: %v", ErrUnhandled, sub.ID, r)
		}
	}()

	stats := w.syncer.Sync(ctx, sub)
	if stats == nil {
		return nil
	}
	if !stats.Fetched {
		if stats.FetchErr != nil && !apperrors.Retryable(stats.FetchErr) {
			log.Error().
				Err(stats.FetchErr).
				Str("url", sub.URL).
				Msg("Search page cannot be processed, check the subscription URL")
		} else {
			log.Debug().Msg("Search page unavailable, retrying next tick")
		}
		return nil
	}

	if err := w.subs.TouchLastSync(ctx, sub.ID, time.Now()); err != nil {
		log.Warn().Err(err).Msg("Failed to update last sync")
	}
	return nil
}
