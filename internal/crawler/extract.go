package crawler

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealmungchi/offerwatcher/internal/offer"
	"github.com/dealmungchi/offerwatcher/logger"
	apperrors "github.com/dealmungchi/offerwatcher/pkg/errors"
)

const extractorSource = "extractor"

// Extractor turns a listings page into candidate offers
type Extractor struct {
	selectors     Selectors
	promotedLabel string
	maxOffers     int
	baseURL       string
	handlers      map[string]FieldHandlerFunc
	log           *logger.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(config ExtractorConfig) *Extractor {
	if config.MaxOffers <= 0 {
		config.MaxOffers = DefaultMaxOffers
	}
	return &Extractor{
		selectors:     config.Selectors,
		promotedLabel: strings.TrimSpace(config.PromotedLabel),
		maxOffers:     config.MaxOffers,
		baseURL:       config.BaseURL,
		handlers:      config.Handlers,
		log:           logger.ForExtractor(),
	}
}

// Extract returns the organic offers of the first MaxOffers containers in
// document order. Fields that cannot be found are set to offer.Unknown; a
// container that fails structurally is logged and skipped.
func (e *Extractor) Extract(doc *goquery.Document) []offer.Offer {
	containers := doc.Find(e.selectors.OfferList)
	if containers.Length() > e.maxOffers {
		containers = containers.Slice(0, e.maxOffers)
	}

	e.log.Debug().Int("containers", containers.Length()).Msg("Found offer containers")

	offers := make([]offer.Offer, 0, containers.Length())
	containers.Each(func(i int, s *goquery.Selection) {
		o, ok, err := e.processContainer(s)
		if err != nil {
			e.log.Warn().Err(err).Int("index", i).Msg("Skipping malformed offer container")
			return
		}
		if !ok {
			e.log.Debug().Int("index", i).Msg("Skipping promoted offer")
			return
		}
		offers = append(offers, o)
	})

	return offers
}

// processContainer extracts one offer. ok is false for promoted containers.
func (e *Extractor) processContainer(s *goquery.Selection) (o offer.Offer, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			o, ok = offer.Offer{}, false
			err = apperrors.NewExtraction(extractorSource, "container processing panicked", fmt.Errorf("%v", r))
		}
	}()

	if e.isPromoted(s) {
		return offer.Offer{}, false, nil
	}

	o = offer.NewUnknown()

	titleSel := s.Find(e.selectors.Title).First()
	o.Title = e.field(s, FieldTitle, func(*goquery.Selection) string {
		return titleSel.Text()
	})
	o.URL = e.field(s, FieldURL, func(*goquery.Selection) string {
		href, _ := titleSel.Find("a").First().Attr("href")
		return ResolveURL(e.baseURL, href)
	})
	o.Price = e.field(s, FieldPrice, func(s *goquery.Selection) string {
		return s.Find(e.selectors.Price).First().Text()
	})
	o.ImageURL = e.field(s, FieldImageURL, func(s *goquery.Selection) string {
		src, _ := s.Find(e.selectors.Image).First().Attr("src")
		return ResolveURL(e.baseURL, src)
	})
	o.Mileage = e.field(s, FieldMileage, e.parameter(FieldMileage))
	o.FuelType = e.field(s, FieldFuelType, e.parameter(FieldFuelType))
	o.Gearbox = e.field(s, FieldGearbox, e.parameter(FieldGearbox))
	o.Year = e.field(s, FieldYear, e.parameter(FieldYear))
	o.Location = e.field(s, FieldLocation, func(s *goquery.Selection) string {
		return s.Find(e.selectors.Location).First().Text()
	})

	return o, true, nil
}

func (e *Extractor) isPromoted(s *goquery.Selection) bool {
	if e.selectors.Promoted == "" || e.promotedLabel == "" {
		return false
	}
	marker := s.Find(e.selectors.Promoted).First()
	return marker.Length() > 0 && strings.TrimSpace(marker.Text()) == e.promotedLabel
}

// field applies the custom handler for name if one is configured, otherwise
// the default, and substitutes the sentinel for an empty result.
func (e *Extractor) field(s *goquery.Selection, name string, defaultHandler FieldHandlerFunc) string {
	handler := defaultHandler
	if custom, exists := e.handlers[name]; exists && custom != nil {
		handler = custom
	}

	value := strings.TrimSpace(handler(s))
	if value == "" {
		return offer.Unknown
	}
	return value
}

func (e *Extractor) parameter(name string) FieldHandlerFunc {
	return func(s *goquery.Selection) string {
		selector, ok := e.selectors.Parameters[name]
		if !ok || selector == "" {
			return ""
		}
		return s.Find(selector).First().Text()
	}
}
