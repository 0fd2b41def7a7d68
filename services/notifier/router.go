package notifier

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/dealmungchi/offerwatcher/internal/offer"
	"github.com/dealmungchi/offerwatcher/logger"
	apperrors "github.com/dealmungchi/offerwatcher/pkg/errors"
)

const routerSource = "notifier"

// Target schemes
const (
	SchemeRedis = "redis"
	SchemeAMQP  = "amqp"
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeLog   = "log"
)

// Router dispatches each notification to the sink registered for the scheme
// of the subscription's target. Targets look like "redis:<stream>",
// "amqp:<routing-key>", "https://host/path" or "log:".
type Router struct {
	mu    sync.RWMutex
	sinks map[string]Sink
	log   *logger.Logger
}

// NewRouter creates a router with no sinks registered
func NewRouter() *Router {
	return &Router{
		sinks: make(map[string]Sink),
		log:   logger.ForNotifier(),
	}
}

// Register binds a sink to a scheme, replacing any previous one
func (r *Router) Register(scheme string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[strings.ToLower(scheme)] = sink
}

// Notify renders o and sends it to the subscription's target
func (r *Router) Notify(ctx context.Context, o offer.Offer, sub offer.Subscription) error {
	scheme, destination, err := ParseTarget(sub.NotificationTarget)
	if err != nil {
		return err
	}

	r.mu.RLock()
	sink, ok := r.sinks[scheme]
	r.mu.RUnlock()
	if !ok {
		return apperrors.NewNotify(routerSource, "no notifier configured for scheme "+scheme, nil)
	}

	if err := sink.Send(ctx, destination, NewMessage(o, sub)); err != nil {
		var pe *apperrors.PipelineError
		if errors.As(err, &pe) {
			return err
		}
		return apperrors.NewNotify(scheme, "send notification", err)
	}
	return nil
}

// TrimStreams trims every sink that keeps bounded streams
func (r *Router) TrimStreams(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, sink := range r.sinks {
		if t, ok := sink.(interface{ TrimStreams(context.Context) error }); ok {
			if err := t.TrimStreams(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink holding a connection
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for scheme, sink := range r.sinks {
		if c, ok := sink.(io.Closer); ok {
			if err := c.Close(); err != nil {
				r.log.Warn().Err(err).Str("scheme", scheme).Msg("Failed to close notifier")
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// ParseTarget splits a notification target into its scheme and destination.
// For http(s) targets the destination is the whole URL.
func ParseTarget(target string) (scheme, destination string, err error) {
	target = strings.TrimSpace(target)
	i := strings.Index(target, ":")
	if i <= 0 {
		return "", "", apperrors.NewNotify(routerSource, "invalid notification target "+strings.TrimSpace(target), nil)
	}

	scheme = strings.ToLower(target[:i])
	switch scheme {
	case SchemeHTTP, SchemeHTTPS:
		return scheme, target, nil
	default:
		return scheme, target[i+1:], nil
	}
}
