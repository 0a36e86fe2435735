package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/testdrive-marketplace/internal/config"
)

// Publisher sends request events to a durable RabbitMQ queue. A Publisher
// built from a disabled config drops every event.
type Publisher struct {
	enabled bool
	url     string
	queue   string
	log     *zap.Logger
}

// NewPublisher returns a Publisher for cfg. A nil logger is replaced by a
// no-op logger.
func NewPublisher(cfg config.EventsConfig, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{enabled: cfg.Enabled, url: cfg.URL, queue: cfg.Queue, log: log}
}

// Publish marshals ev and publishes it persistently to the configured queue.
// Every failure is logged and returned so callers can choose to ignore it.
// A connection is opened per call; request events are low volume.
func (p *Publisher) Publish(ctx context.Context, ev RequestEvent) error {
	if p == nil || !p.enabled {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	log := p.log.With(zap.String("event", ev.Type), zap.String("request_id", ev.RequestID))

	body, err := json.Marshal(ev)
	if err != nil {
		log.Error("rabbitmq: marshal event failed", zap.Error(err))
		return err
	}

	conn, err := amqp.DialConfig(p.url, dialConfig())
	if err != nil {
		log.Warn("rabbitmq: dial failed", zap.Error(err))
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return fmt.Errorf("queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		log.Warn("rabbitmq: publish failed", zap.Error(err))
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// dialConfig bounds the TCP dial so an unreachable broker cannot stall the
// request that triggered the event.
func dialConfig() amqp.Config {
	return amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(2 * time.Second),
	}
}
