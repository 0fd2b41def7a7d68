// Package notifier delivers newly observed offers to the destination named by
// a subscription's notification target.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dealmungchi/offerwatcher/internal/offer"
)

const (
	postedAtLayout = "2006-01-02 15:04:05"
	messageColor   = 0x00ff00
)

// Notifier delivers one offer for a subscription
type Notifier interface {
	Notify(ctx context.Context, o offer.Offer, sub offer.Subscription) error
}

// Sink delivers a rendered message to a destination within one transport,
// e.g. a stream name, a routing key or a webhook URL.
type Sink interface {
	Send(ctx context.Context, destination string, msg *Message) error
}

// Message is the rendered notification for one offer
type Message struct {
	SubscriptionID int64       `json:"subscription_id"`
	Title          string      `json:"title"`
	URL            string      `json:"url"`
	Description    string      `json:"description"`
	Image          string      `json:"image,omitempty"`
	Color          int         `json:"color"`
	Footer         string      `json:"footer"`
	Offer          offer.Offer `json:"offer"`
}

// NewMessage renders o for the given subscription
func NewMessage(o offer.Offer, sub offer.Subscription) *Message {
	msg := &Message{
		SubscriptionID: sub.ID,
		Title:          o.Title,
		URL:            o.URL,
		Description: fmt.Sprintf("**Price:** %s\nMileage: %s\nFuel: %s\nGearbox: %s\nYear: %s\nLocation: %s",
			o.Price, o.Mileage, o.FuelType, o.Gearbox, o.Year, o.Location),
		Color:  messageColor,
		Footer: "Posted at: " + offer.Unknown,
		Offer:  o,
	}
	if !offer.IsSentinel(o.ImageURL) {
		msg.Image = o.ImageURL
	}
	if !o.PostedAt.IsZero() {
		msg.Footer = "Posted at: " + o.PostedAt.Format(postedAtLayout)
	}
	return msg
}

// Encode serializes the message as JSON
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}
