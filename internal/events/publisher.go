package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/stacklok/ledgersync/internal/config"
)

const dialTimeout = 10 * time.Second

// Publisher sends sync events
//
//go:generate mockgen -destination=mocks/mock_publisher.go -package=mocks -source=publisher.go Publisher
type Publisher interface {
	Publish(ctx context.Context, event SyncEvent) error
	Close() error
}

// NewPublisher returns an AMQP publisher when events are enabled, otherwise a no-op
func NewPublisher(cfg *config.EventsConfig) (Publisher, error) {
	if !cfg.IsEnabled() {
		return NoopPublisher{}, nil
	}
	return NewAMQPPublisher(cfg.URL, cfg.GetExchange())
}

// NoopPublisher drops every event
type NoopPublisher struct{}

// Publish implements Publisher
func (NoopPublisher) Publish(_ context.Context, event SyncEvent) error {
	slog.Debug("Event publishing disabled, dropping event", "type", event.Type, "connection_id", event.ConnectionID)
	return nil
}

// Close implements Publisher
func (NoopPublisher) Close() error { return nil }

// amqpChannel is the subset of *amqp.Channel the publisher uses
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// amqpConnection is the subset of *amqp.Connection the publisher uses
type amqpConnection interface {
	Channel() (amqpChannel, error)
	IsClosed() bool
	Close() error
}

type brokerConnection struct {
	*amqp.Connection
}

func (c brokerConnection) Channel() (amqpChannel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// AMQPPublisher publishes JSON events to a durable topic exchange
type AMQPPublisher struct {
	mu       sync.Mutex
	exchange string
	conn     amqpConnection
	channel  amqpChannel
	dial     func() (amqpConnection, error)
}

// NewAMQPPublisher dials rawURL and declares exchange. A connection the
// broker closed is dialled again on the next publish.
func NewAMQPPublisher(rawURL, exchange string) (*AMQPPublisher, error) {
	cleanURL, err := validateAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}

	p := &AMQPPublisher{
		exchange: exchange,
		dial: func() (amqpConnection, error) {
			conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
			if err != nil {
				return nil, err
			}
			return brokerConnection{conn}, nil
		},
	}
	if err := p.openChannel(); err != nil {
		_ = p.closeLocked()
		return nil, err
	}
	return p, nil
}

// openChannel opens a channel and declares the exchange, redialling first
// when there is no live connection
func (p *AMQPPublisher) openChannel() error {
	if p.conn == nil || p.conn.IsClosed() {
		if p.conn != nil {
			slog.Warn("Broker connection closed, redialling", "exchange", p.exchange)
			_ = p.conn.Close()
			p.conn = nil
		}
		conn, err := p.dial()
		if err != nil {
			return fmt.Errorf("failed to connect to broker: %w", err)
		}
		p.conn = conn
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}
	p.channel = ch
	return nil
}

// Publish sends event with its type as routing key. A failed publish reopens
// the channel, redialling a closed connection, and is tried once more.
func (p *AMQPPublisher) Publish(ctx context.Context, event SyncEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		err = p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg)
		if err == nil {
			return nil
		}
		slog.Warn("Publish failed, reopening channel", "exchange", p.exchange, "type", event.Type, "error", err)
		_ = p.channel.Close()
		p.channel = nil
	}

	if err := p.openChannel(); err != nil {
		return err
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// Close closes the channel and the connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *AMQPPublisher) closeLocked() error {
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
		p.channel = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}

func validateAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	u, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("invalid AMQP URL: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", fmt.Errorf("AMQP URL scheme must be amqp or amqps, got %q", u.Scheme)
	}
	return clean, nil
}
