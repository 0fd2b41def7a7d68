package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dealmungchi/offerwatcher/logger"
	apperrors "github.com/dealmungchi/offerwatcher/pkg/errors"
)

const amqpSource = "amqp"

// RabbitMQConfig contains the broker connection settings
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// RabbitMQNotifier publishes notifications to a topic exchange. The routing
// key is the destination of the subscription's target.
type RabbitMQNotifier struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *logger.Logger
}

// NewRabbitMQNotifier connects to the broker and declares the exchange
func NewRabbitMQNotifier(cfg RabbitMQConfig) (*RabbitMQNotifier, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	log := logger.ForNotifier()
	log.Info().Str("exchange", cfg.Exchange).Msg("Connected to rabbitmq")

	return &RabbitMQNotifier{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		log:      log,
	}, nil
}

// Send publishes msg as a persistent JSON message
func (r *RabbitMQNotifier) Send(ctx context.Context, destination string, msg *Message) error {
	body, err := msg.Encode()
	if err != nil {
		return apperrors.NewNotify(amqpSource, "marshal message", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		destination,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return apperrors.NewNotify(amqpSource, "publish message", err)
	}

	r.log.Debug().
		Str("routing_key", destination).
		Str("url", msg.URL).
		Msg("Published offer")
	return nil
}

// Close closes the channel and the connection
func (r *RabbitMQNotifier) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
