package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AuditLog appends one line per confirmed reservation to
// <Dir>/reservations.log.
type AuditLog struct {
	Dir string

	mu sync.Mutex
}

// Path is the log file location.
func (a *AuditLog) Path() string { return filepath.Join(a.Dir, "reservations.log") }

// Append writes ev as a single line.
func (a *AuditLog) Append(ev ReservationConfirmedEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", a.Dir, err)
	}
	f, err := os.OpenFile(a.Path(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatAuditLine(ev)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// FormatAuditLine renders ev the way it appears in the audit log,
// including the trailing newline. Seats are printed as row,col pairs.
func FormatAuditLine(ev ReservationConfirmedEvent) string {
	seats := make([]string, len(ev.Seats))
	for i, s := range ev.Seats {
		seats[i] = fmt.Sprintf("(%d,%d)", s[0], s[1])
	}
	return fmt.Sprintf("[%s] Reservation confirmed | reservation_id=%d | event_id=%d | session_id=%d | seats=[%s]\n",
		ev.ConfirmedAt, ev.ReservationID, ev.EventID, ev.SessionID, strings.Join(seats, ","))
}

// Consumer reads the reservation queue into an AuditLog.
type Consumer struct {
	URL    string
	Log    *AuditLog
	Logger *slog.Logger
}

// Run connects, consumes and reconnects with backoff until ctx is
// cancelled, then returns nil. Undecodable messages are rejected without
// requeue so they cannot loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Logger.Warn("reservation consumer: dial failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.Logger.Warn("reservation consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Logger.Warn("reservation consumer: set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(ReservationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, ReservationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.Logger.Info("reservation consumer started", "queue", ReservationQueue, "log", c.Log.Path())

	for d := range msgs {
		if err := c.handle(d.Body); err != nil {
			c.Logger.Warn("reservation consumer: handle message failed", "error", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *Consumer) handle(body []byte) error {
	var ev ReservationConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return c.Log.Append(ev)
}

// sleep waits for d or ctx, reporting false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
