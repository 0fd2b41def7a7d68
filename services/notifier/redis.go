package notifier

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/dealmungchi/offerwatcher/pkg/errors"
)

const (
	redisSource = "redis"
	// MessageField is the stream entry field holding the base64 encoded message
	MessageField = "b64_offer"
	// DefaultStreamPrefix namespaces every stream written by the notifier
	DefaultStreamPrefix = "offers"
)

// RedisNotifier publishes notifications to Redis streams
type RedisNotifier struct {
	client          *redis.Client
	streamPrefix    string
	streamMaxLength int
}

// NewRedisNotifier creates a new Redis stream notifier
func NewRedisNotifier(addr string, db int, streamPrefix string, streamMaxLength int) *RedisNotifier {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if streamPrefix == "" {
		streamPrefix = DefaultStreamPrefix
	}

	return &RedisNotifier{
		client:          client,
		streamPrefix:    streamPrefix,
		streamMaxLength: streamMaxLength,
	}
}

// Ping checks the connection to Redis
func (p *RedisNotifier) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// StreamName returns the stream a destination is published to
func (p *RedisNotifier) StreamName(destination string) string {
	return p.streamPrefix + ":" + strings.TrimSpace(destination)
}

// Send publishes msg to the destination stream. The message is JSON encoded,
// then base64 encoded.
func (p *RedisNotifier) Send(ctx context.Context, destination string, msg *Message) error {
	if strings.TrimSpace(destination) == "" {
		return apperrors.NewNotify(redisSource, "empty stream name", nil)
	}

	payload, err := msg.Encode()
	if err != nil {
		return apperrors.NewNotify(redisSource, "failed to encode message", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.StreamName(destination),
		Values: map[string]interface{}{
			MessageField: base64.StdEncoding.EncodeToString(payload),
		},
	}).Err()
	if err != nil {
		return apperrors.NewNotify(redisSource, "failed to publish message", err)
	}
	return nil
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisNotifier) TrimStreams(ctx context.Context) error {
	if p.streamMaxLength <= 0 {
		return nil
	}

	streams, err := p.client.Keys(ctx, p.streamPrefix+":*").Result()
	if err != nil {
		return apperrors.NewNotify(redisSource, "failed to list streams", err)
	}

	for _, stream := range streams {
		if err := p.client.XTrimMaxLen(ctx, stream, int64(p.streamMaxLength)).Err(); err != nil {
			return apperrors.NewNotify(redisSource, "failed to trim stream "+stream, err)
		}
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisNotifier) Close() error {
	return p.client.Close()
}
