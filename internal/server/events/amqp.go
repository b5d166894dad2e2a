package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/server/metrics"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes envelopes to a topic exchange, routed by event type.
type AMQPPublisher struct {
	conn     *amqp.Connection
	open     func() (channel, error)
	exchange string
	logger   logging.Logger
}

// NewAMQPPublisher dials the broker and declares a durable topic exchange.
func NewAMQPPublisher(url, exchange string, logger logging.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	p := &AMQPPublisher{conn: conn, exchange: exchange, logger: logger.With("module", "events")}
	p.open = func() (channel, error) { return conn.Channel() }
	return p, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Envelope) error {
	err := p.publish(ctx, e)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.EventsPublishedTotal.WithLabelValues(e.Meta.Type, result).Inc()
	return err
}

func (p *AMQPPublisher) publish(ctx context.Context, e Envelope) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := p.open()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	ts := e.Meta.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	err = ch.PublishWithContext(ctx, p.exchange, e.Meta.Type, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     e.Meta.ID,
		CorrelationId: e.Meta.CorrelationID,
		Type:          e.Meta.Type,
		AppId:         e.Meta.Producer,
		Timestamp:     ts,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Meta.Type, err)
	}

	p.logger.Debug(ctx, "event published", "type", e.Meta.Type, "id", e.Meta.ID)
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
