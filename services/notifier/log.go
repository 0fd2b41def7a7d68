package notifier

import (
	"context"

	"github.com/dealmungchi/offerwatcher/logger"
)

// LogNotifier writes notifications to the log instead of sending them
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.ForNotifier()}
}

// Send logs the message
func (l *LogNotifier) Send(ctx context.Context, destination string, msg *Message) error {
	l.log.Info().
		Int64("subscription_id", msg.SubscriptionID).
		Str("destination", destination).
		Str("title", msg.Title).
		Str("url", msg.URL).
		Str("price", msg.Offer.Price).
		Msg("New offer")
	return nil
}
