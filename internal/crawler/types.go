package crawler

import "github.com/PuerkitoBio/goquery"

// Field names used to key custom handlers
const (
	FieldURL      = "url"
	FieldTitle    = "title"
	FieldPrice    = "price"
	FieldImageURL = "image_url"
	FieldMileage  = "mileage"
	FieldFuelType = "fuel_type"
	FieldGearbox  = "gearbox"
	FieldYear     = "year"
	FieldLocation = "location"
)

// FieldHandlerFunc extracts a single field from an offer container. An empty
// result is treated as not found.
type FieldHandlerFunc func(*goquery.Selection) string

// Selectors contains CSS selectors for the elements of a listings page
type Selectors struct {
	// OfferList matches one offer container
	OfferList string
	// Promoted matches the marker element inside a sponsored container
	Promoted string
	// Title matches the title block; the first anchor inside carries the offer URL
	Title    string
	Price    string
	Image    string
	Location string
	// Parameters maps a field name to the container's parameter list entry
	Parameters map[string]string
}

// ExtractorConfig contains configuration for an extractor
type ExtractorConfig struct {
	Selectors Selectors
	// PromotedLabel is the marker text of sponsored listings
	PromotedLabel string
	// MaxOffers caps the number of containers considered per page
	MaxOffers int
	// BaseURL, when set, resolves relative offer and image links
	BaseURL string
	// Handlers override the default extraction for a field
	Handlers map[string]FieldHandlerFunc
}
