package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SeatLogFile is the file, relative to the log directory, that receives one
// line per consumed seat event.
const SeatLogFile = "seat.log"

// Consumer drains the seat event queue into a line oriented log file.
type Consumer struct {
	URL    string
	Queue  string
	LogDir string
}

// NewConsumer fills in defaults for empty arguments.
func NewConsumer(url, queue, logDir string) *Consumer {
	if url == "" {
		url = DefaultURL
	}
	if queue == "" {
		queue = DefaultSeatEventQueue
	}
	if logDir == "" {
		logDir = "logs"
	}
	return &Consumer{URL: url, Queue: queue, LogDir: logDir}
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes until
// ctx is cancelled.  Broker failures are retried with exponential backoff
// capped at 30s.  A message that cannot be handled is rejected without
// requeue so a poison message cannot stall the queue.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Printf("seat-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("seat-consumer: consume loop ended: %v; reconnecting", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("seat-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.HandleMessage(d.Body); err != nil {
				log.Printf("seat-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one event and appends it to the seat log.
func (c *Consumer) HandleMessage(body []byte) error {
	var ev SeatEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.SeatID == 0 {
		return fmt.Errorf("incomplete event %q", ev.ID)
	}
	if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.LogDir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.LogDir, SeatLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders an event as a single human friendly log line.
func FormatLine(ev SeatEvent) string {
	line := fmt.Sprintf("[%s] %s | event_id=%s | seat_id=%d | actor_id=%d",
		ev.OccurredAt, ev.Type, ev.ID, ev.SeatID, ev.ActorID)
	if ev.CafeName != "" {
		line += fmt.Sprintf(" | cafe=%q", ev.CafeName)
	}
	return line + "\n"
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
