package internal

import (
	"errors"

	"github.com/dealmungchi/offerwatcher/services/cache"
	"github.com/dealmungchi/offerwatcher/services/notifier"
	"github.com/dealmungchi/offerwatcher/services/store"
)

// Dependencies holds all service dependencies
type Dependencies struct {
	Cache         cache.CacheService
	Offers        store.OfferStore
	Subscriptions store.SubscriptionStore
	Notifier      *notifier.Router

	closers []func() error
}

// OnClose registers fn to run on Close, in reverse registration order
func (d *Dependencies) OnClose(fn func() error) {
	d.closers = append(d.closers, fn)
}

// Close releases every registered resource
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
