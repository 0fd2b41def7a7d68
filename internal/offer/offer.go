// Package offer holds the records that flow through the ingestion pipeline.
package offer

import "time"

// Unknown is the sentinel stored for any field the extractor could not find
const Unknown = "Unknown"

// Offer represents one listing observed on the site
type Offer struct {
	URL      string    `json:"url" db:"url"`
	Title    string    `json:"title" db:"title"`
	Price    string    `json:"price" db:"price"`
	ImageURL string    `json:"image_url" db:"image_url"`
	Mileage  string    `json:"mileage" db:"mileage"`
	FuelType string    `json:"fuel_type" db:"fuel_type"`
	Gearbox  string    `json:"gearbox" db:"gearbox"`
	Year     string    `json:"year_of_production" db:"year_of_production"`
	Location string    `json:"location" db:"location"`
	PostedAt time.Time `json:"posted_at" db:"posted_at"`
}

// NewUnknown returns an offer with every field set to the sentinel
func NewUnknown() Offer {
	return Offer{
		URL:      Unknown,
		Title:    Unknown,
		Price:    Unknown,
		ImageURL: Unknown,
		Mileage:  Unknown,
		FuelType: Unknown,
		Gearbox:  Unknown,
		Year:     Unknown,
		Location: Unknown,
	}
}

// IsSentinel reports whether v denotes a field that was not found
func IsSentinel(v string) bool {
	return v == "" || v == Unknown
}

// Subscription is a standing request to monitor one search URL
type Subscription struct {
	ID                 int64     `json:"id" db:"id"`
	URL                string    `json:"url" db:"url"`
	NotificationTarget string    `json:"notification_target" db:"notification_target"`
	LastSync           time.Time `json:"last_sync" db:"last_sync"`
}
