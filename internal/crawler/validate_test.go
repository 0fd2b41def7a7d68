package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dealmungchi/offerwatcher/internal/offer"
)

func TestIsAcceptable(t *testing.T) {
	complete := offer.NewUnknown()
	complete.URL = "/ad/1"
	complete.Title = "Fiat Punto"
	complete.Price = "9 900 PLN"
	complete.ImageURL = "/img/1.jpg"

	assert.True(t, IsAcceptable(complete), "optional fields may stay sentinel")

	testCases := []struct {
		name   string
		mutate func(*offer.Offer)
	}{
		{"missing url", func(o *offer.Offer) { o.URL = offer.Unknown }},
		{"missing title", func(o *offer.Offer) { o.Title = offer.Unknown }},
		{"missing price", func(o *offer.Offer) { o.Price = offer.Unknown }},
		{"missing image", func(o *offer.Offer) { o.ImageURL = offer.Unknown }},
		{"empty price", func(o *offer.Offer) { o.Price = "" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			o := complete
			tc.mutate(&o)
			assert.False(t, IsAcceptable(o))
		})
	}
}
