// Package messaging provides the durable queue client: bounded-retry
// connection, idempotent queue declaration, persistent publishing and
// at-least-once manual-ack consumption.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/phrazzld/docpipe/internal/config"
)

// Client wraps a broker connection. It is constructed once at process
// startup and passed to every stage; there is no package-level
// connection state.
type Client struct {
	conn   *amqp.Connection
	logger *slog.Logger

	// pubMu serializes access to the publish channel; AMQP channels
	// are not safe for concurrent use.
	pubMu sync.Mutex
	pubCh *amqp.Channel
}

// Connect dials the broker with bounded retry: up to
// cfg.ConnectRetries attempts with a fixed delay between them.
// Exhausting the attempts returns the last error; callers treat that
// as a fatal startup failure.
func Connect(ctx context.Context, cfg config.QueueConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "queue_client"))

	delay := time.Duration(cfg.ConnectRetryDelaySeconds) * time.Second

	var conn *amqp.Connection
	var err error
	for attempt := 1; attempt <= cfg.ConnectRetries; attempt++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			logger.Info("connected to broker",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", cfg.ConnectRetries))
			break
		}

		logger.Warn("broker connection failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.ConnectRetries),
			slog.Duration("retry_delay", delay),
			slog.String("error", err.Error()))

		if attempt == cfg.ConnectRetries {
			return nil, fmt.Errorf("failed to connect to broker after %d attempts: %w", cfg.ConnectRetries, err)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("broker connection cancelled: %w", ctx.Err())
		}
	}

	pubCh, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}

	return &Client{conn: conn, logger: logger, pubCh: pubCh}, nil
}

// Close shuts down the connection and all channels derived from it.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Declare declares the given queues as durable. Declaration is
// idempotent and safe to run on every startup.
func (c *Client) Declare(queues ...string) error {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	for _, name := range queues {
		if _, err := c.pubCh.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,
		); err != nil {
			return fmt.Errorf("failed to declare queue %q: %w", name, err)
		}
	}
	return nil
}

// Publish sends the body to the named queue with the persistence flag
// set, so the message survives a broker restart.
func (c *Client) Publish(ctx context.Context, queue string, body []byte) error {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	err := c.pubCh.PublishWithContext(
		ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %q: %w", queue, err)
	}

	c.logger.Debug("published message",
		slog.String("queue", queue),
		slog.Int("bytes", len(body)))
	return nil
}

// PublishJSON marshals v and publishes it to the named queue.
func (c *Client) PublishJSON(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message for %q: %w", queue, err)
	}
	return c.Publish(ctx, queue, body)
}

// Publisher is the narrow publishing interface stages depend on.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
	PublishJSON(ctx context.Context, queue string, v any) error
}

var _ Publisher = (*Client)(nil)
