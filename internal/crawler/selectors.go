package crawler

// Defaults for otomoto.pl search result pages
const (
	DefaultPromotedLabel = "Wyróżnione"
	DefaultMaxOffers     = 20
)

// OtomotoSelectors returns the multi-field selector scheme for otomoto.pl
// search result pages. Class names are generated by the site's CSS-in-JS
// build and change with redesigns.
func OtomotoSelectors() Selectors {
	return Selectors{
		OfferList: "article",
		Promoted:  ".ooa-1wmudpx",
		Title:     "p.e2z61p70.ooa-1ed90th.er34gjf0",
		Price:     "h3.e6r213i1.ooa-1n2paoq.er34gjf0",
		Image:     "img.e9xldqm4.ooa-2zzg2s",
		Location:  "dd.ooa-1jb4k0u.ecru18x15 p.ooa-gmxnzj",
		Parameters: map[string]string{
			FieldMileage:  `dd[data-parameter="mileage"]`,
			FieldFuelType: `dd[data-parameter="fuel_type"]`,
			FieldGearbox:  `dd[data-parameter="gearbox"]`,
			FieldYear:     `dd[data-parameter="year"]`,
		},
	}
}

// DefaultExtractorConfig returns the extractor configuration for otomoto.pl
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		Selectors:     OtomotoSelectors(),
		PromotedLabel: DefaultPromotedLabel,
		MaxOffers:     DefaultMaxOffers,
	}
}
