package notifier

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/dealmungchi/offerwatcher/logger"
	apperrors "github.com/dealmungchi/offerwatcher/pkg/errors"
)

const webhookSource = "webhook"

// WebhookConfig contains configuration for a WebhookNotifier
type WebhookConfig struct {
	Timeout  time.Duration
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

// WebhookNotifier POSTs notifications as JSON to the target URL
type WebhookNotifier struct {
	client   *http.Client
	attempts uint
	delay    time.Duration
	maxDelay time.Duration
	log      *logger.Logger
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 2 * time.Minute
	}

	return &WebhookNotifier{
		client:   &http.Client{Timeout: cfg.Timeout},
		attempts: cfg.Attempts,
		delay:    cfg.Delay,
		maxDelay: cfg.MaxDelay,
		log:      logger.ForNotifier(),
	}
}

// Send posts msg to the destination URL. Transport errors, 429 and 5xx
// responses are retried; other 4xx responses fail immediately.
func (w *WebhookNotifier) Send(ctx context.Context, destination string, msg *Message) error {
	body, err := msg.Encode()
	if err != nil {
		return apperrors.NewNotify(webhookSource, "marshal message", err)
	}

	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(apperrors.NewNotify(webhookSource, "create request", err))
			}
			req.Header.Set("Content-Type", "application/json")

			start := time.Now()
			resp, err := w.client.Do(req)
			if err != nil {
				w.log.Warn().Err(err).Str("url", destination).Dur("duration", time.Since(start)).Msg("Webhook request failed, will retry")
				return apperrors.NewTransport(webhookSource, "webhook request failed", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				statusErr := apperrors.NewHTTPStatus(webhookSource, resp.StatusCode)
				if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
					return retry.Unrecoverable(statusErr)
				}
				w.log.Warn().Int("status_code", resp.StatusCode).Str("url", destination).Msg("Webhook returned non-2xx status, will retry")
				return statusErr
			}

			w.log.Debug().
				Str("url", destination).
				Int("status_code", resp.StatusCode).
				Dur("duration", time.Since(start)).
				Msg("Webhook delivered")
			return nil
		},
		retry.Attempts(w.attempts),
		retry.Delay(w.delay),
		retry.MaxDelay(w.maxDelay),
		retry.MaxJitter(w.delay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			w.log.Info().Uint("attempt", n).Err(err).Msg("Retrying webhook after error")
		}),
	)
	if err != nil {
		return apperrors.NewNotify(webhookSource, "webhook delivery failed", err)
	}
	return nil
}
