package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/docpipe/internal/platform/logger"
)

// Handler processes one message body and reports the outcome. Delivery
// is at-least-once: the broker can redeliver a message whose handler
// already ran (partially or fully), so handlers must be idempotent or
// side-effect-free on duplicates.
type Handler func(ctx context.Context, body []byte) Outcome

// ConsumeOptions configures a consumer loop.
type ConsumeOptions struct {
	// Prefetch limits unacknowledged deliveries on this consumer.
	// Zero means no limit.
	Prefetch int

	// RequeueOnFailure feeds the Decide table for transient failures.
	RequeueOnFailure bool
}

// Consume runs a single-consumer loop on the named queue until the
// context is cancelled. Each delivery is passed to the handler and the
// resulting outcome is mapped to an acknowledgment via Decide; a
// message is only ever acked after its handler has returned. The loop
// never propagates handler errors: every outcome is logged and the
// loop moves on.
//
// Consume opens its own channel so multiple consumer loops can share
// one Client.
func (c *Client) Consume(ctx context.Context, queue string, handler Handler, opts ConsumeOptions) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open consume channel for %q: %w", queue, err)
	}
	defer func() { _ = ch.Close() }()

	if opts.Prefetch > 0 {
		if err := ch.Qos(opts.Prefetch, 0, false); err != nil {
			return fmt.Errorf("failed to set prefetch for %q: %w", queue, err)
		}
	}

	deliveries, err := ch.ConsumeWithContext(
		ctx,
		queue,
		"",    // consumer tag, broker-generated
		false, // autoAck off: manual acknowledgment only
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer on %q: %w", queue, err)
	}

	log := c.logger.With(slog.String("queue", queue))
	log.Info("consumer started")

	for {
		select {
		case <-ctx.Done():
			log.Info("consumer stopping", slog.String("reason", ctx.Err().Error()))
			return ctx.Err()

		case d, ok := <-deliveries:
			if !ok {
				// Channel closed underneath us (broker restart or
				// connection loss). Surface it so the process can decide
				// to exit; unacked in-flight messages will be redelivered.
				log.Error("delivery channel closed")
				return fmt.Errorf("delivery channel closed for queue %q", queue)
			}

			msgLog := log.With(slog.Uint64("delivery_tag", d.DeliveryTag))
			msgCtx := logger.WithLogger(ctx, msgLog)

			outcome := handler(msgCtx, d.Body)

			switch Decide(outcome, opts.RequeueOnFailure) {
			case ActionAck:
				if err := d.Ack(false); err != nil {
					msgLog.Error("failed to ack message", slog.String("error", err.Error()))
				}
			case ActionAckDrop:
				msgLog.Warn("dropping message",
					slog.String("outcome", outcome.String()))
				if err := d.Ack(false); err != nil {
					msgLog.Error("failed to ack dropped message", slog.String("error", err.Error()))
				}
			case ActionRequeue:
				msgLog.Warn("requeueing message",
					slog.String("outcome", outcome.String()))
				if err := d.Nack(false, true); err != nil {
					msgLog.Error("failed to nack message", slog.String("error", err.Error()))
				}
			}
		}
	}
}
