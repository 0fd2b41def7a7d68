package crawler

import "github.com/dealmungchi/offerwatcher/internal/offer"

// IsAcceptable reports whether an extracted offer carries every field needed
// to persist and notify it.
func IsAcceptable(o offer.Offer) bool {
	return !offer.IsSentinel(o.URL) &&
		!offer.IsSentinel(o.Title) &&
		!offer.IsSentinel(o.Price) &&
		!offer.IsSentinel(o.ImageURL)
}
