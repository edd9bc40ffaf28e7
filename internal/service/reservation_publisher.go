// Package service publishes domain events to RabbitMQ. Publishing is best
// effort: callers log a failed publish and carry on serving clients.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/event-management-system/internal/queue"
)

// ReservationPublisher sends ReservationConfirmedEvents to the
// reservation.confirmed queue over one long-lived connection, redialing
// after a failure. Every call, including the wait for the connection and
// the dial itself, is bounded by the caller's context.
type ReservationPublisher struct {
	url    string
	logger *slog.Logger

	// sem is a one-slot lock that callers can abandon when ctx ends.
	sem  chan struct{}
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewReservationPublisher(url string, logger *slog.Logger) *ReservationPublisher {
	return &ReservationPublisher{url: url, logger: logger, sem: make(chan struct{}, 1)}
}

// defaultDialTimeout applies when the caller's context has no deadline.
const defaultDialTimeout = 30 * time.Second

func (p *ReservationPublisher) lock(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("rabbitmq: waiting for connection: %w", ctx.Err())
	}
}

func (p *ReservationPublisher) unlock() { <-p.sem }

// PublishReservationConfirmed publishes ev as a persistent JSON message.
func (p *ReservationPublisher) PublishReservationConfirmed(ctx context.Context, ev q.ReservationConfirmedEvent) error {
	pub, err := newPublishing(ev)
	if err != nil {
		return err
	}

	if err := p.lock(ctx); err != nil {
		return err
	}
	defer p.unlock()
	if err := p.ensureChannel(ctx); err != nil {
		return err
	}
	if err := p.ch.PublishWithContext(ctx,
		"",                 // default exchange
		q.ReservationQueue, // routing key = queue name
		false,              // mandatory
		false,              // immediate
		pub,
	); err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}

// ensureChannel dials and declares the queue when there is no usable
// channel. Callers hold the lock.
func (p *ReservationPublisher) ensureChannel(ctx context.Context) error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.reset()

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      contextDialer(ctx),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(q.ReservationQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("rabbitmq: queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.logger.Info("rabbitmq publisher connected", "queue", q.ReservationQueue)
	return nil
}

// contextDialer connects within ctx and sets the connection deadline to
// ctx's deadline so a broker that accepts but never answers the AMQP
// handshake fails in time. amqp clears the deadline once the handshake
// completes.
func contextDialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(defaultDialTimeout)
		}
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

func (p *ReservationPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the connection. It waits for an in-flight publish.
func (p *ReservationPublisher) Close() {
	p.sem <- struct{}{}
	defer p.unlock()
	p.reset()
}

func newPublishing(ev q.ReservationConfirmedEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}
