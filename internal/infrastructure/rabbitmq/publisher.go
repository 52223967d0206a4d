// Package rabbitmq publica los eventos del outbox en un exchange topic con
// confirmaciones del broker.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	ErrNacked         = errors.New("mensaje rechazado por el broker")
	ErrConfirmTimeout = errors.New("el broker no confirmó a tiempo")
	ErrClosed         = errors.New("publicador cerrado")
)

// DefaultConfirmTimeout espera máxima por la confirmación de cada mensaje.
const DefaultConfirmTimeout = 5 * time.Second

// Channel operaciones de canal AMQP que usa el publicador (*amqp.Channel las cumple).
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publica un mensaje a la vez y espera su confirmación. La routing key
// es el tipo de evento.
type Publisher struct {
	conn     *amqp.Connection
	ch       Channel
	exchange string
	confirms chan amqp.Confirmation
	timeout  time.Duration

	mu     sync.Mutex
	closed bool
}

// Dial conecta al broker y prepara el exchange.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := NewPublisher(ch, exchange)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declara el exchange (topic, durable) y activa el modo confirmación.
func NewPublisher(ch Channel, exchange string) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("confirm mode: %w", err)
	}
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
		timeout:  DefaultConfirmTimeout,
	}, nil
}

// Publish envía el evento como mensaje persistente y espera el ack.
func (p *Publisher) Publish(ctx context.Context, eventType, messageID string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, eventType, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", messageID, err)
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case c, ok := <-p.confirms:
		if !ok {
			return ErrClosed
		}
		if !c.Ack {
			return fmt.Errorf("publish %s: %w", messageID, ErrNacked)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("publish %s: %w", messageID, ErrConfirmTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cierra canal y conexión.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
