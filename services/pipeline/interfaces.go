package pipeline

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealmungchi/offerwatcher/internal/offer"
)

// PageFetcher downloads and parses a listings page
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// OfferExtractor turns a parsed listings page into candidate offers
type OfferExtractor interface {
	Extract(doc *goquery.Document) []offer.Offer
}

// OfferStore is the per-subscription deduplication store
type OfferStore interface {
	Exists(ctx context.Context, subscriptionID int64, url string) (bool, error)
	InsertIfAbsent(ctx context.Context, subscriptionID int64, o offer.Offer) (bool, error)
}

// Notifier delivers a new offer to the subscription's target
type Notifier interface {
	Notify(ctx context.Context, o offer.Offer, sub offer.Subscription) error
}
