// Package store persists subscriptions and the per-subscription record of
// offers already seen.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dealmungchi/offerwatcher/internal/offer"
)

// ErrNotFound is returned when a subscription does not exist
var ErrNotFound = errors.New("store: not found")

// OfferStore is the deduplication store. Both operations are scoped by
// subscription; a given (subscription, url) pair is stored at most once.
type OfferStore interface {
	// Exists reports whether the offer URL was already recorded for the subscription
	Exists(ctx context.Context, subscriptionID int64, url string) (bool, error)

	// InsertIfAbsent records the offer and returns true, or returns false
	// without writing when the pair already exists
	InsertIfAbsent(ctx context.Context, subscriptionID int64, o offer.Offer) (bool, error)
}

// SubscriptionStore is the subscription source
type SubscriptionStore interface {
	List(ctx context.Context) ([]offer.Subscription, error)
	Create(ctx context.Context, url, notificationTarget string) (*offer.Subscription, error)
	Delete(ctx context.Context, id int64) error
	// TouchLastSync records when the subscription was last fetched successfully
	TouchLastSync(ctx context.Context, id int64, at time.Time) error
}
