// Package events publishes domain events to RabbitMQ. Publishing is best
// effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	SubmissionCreated = "submission.created"
	CurationSaved     = "curation.saved"
	PaymentSettled    = "submission.payment_settled"
)

// Publisher holds one connection and serialises use of its channel.
// A Publisher built from an empty URL is a no-op.
type Publisher struct {
	mu     sync.Mutex
	url    string
	conn   *amqp.Connection
	ch     *amqp.Channel
	queues map[string]bool
	log    *slog.Logger
}

func NewPublisher(url string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	if url == "" {
		log.Info("RABBITMQ_URL not set, events disabled")
	}
	return &Publisher{url: url, queues: map[string]bool{}, log: log}
}

func (p *Publisher) Enabled() bool { return p != nil && p.url != "" }

// Publish declares routingKey as a durable queue on first use and sends
// payload as a persistent JSON message on the default exchange.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	if !p.Enabled() {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", routingKey, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureChannel(); err != nil {
		return err
	}
	if !p.queues[routingKey] {
		if _, err := p.ch.QueueDeclare(routingKey, true, false, false, false, nil); err != nil {
			p.reset()
			return fmt.Errorf("declare %s: %w", routingKey, err)
		}
		p.queues[routingKey] = true
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", routingKey, false, false, msg); err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	p.log.Debug("event published", "routing_key", routingKey)
	return nil
}

func (p *Publisher) ensureChannel() error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.reset()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

// reset drops the connection; the next Publish redials.
func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
	p.queues = map[string]bool{}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
