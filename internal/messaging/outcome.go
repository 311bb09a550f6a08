package messaging

import "fmt"

// Status classifies the result of handling a single message.
type Status int

// Possible handling statuses.
const (
	// StatusProcessed: the handler completed its side effects.
	StatusProcessed Status = iota

	// StatusSkipped: the handler deliberately produced no output
	// (unsupported input, permanent precondition failure, fail-closed
	// extraction). The message is acknowledged and dropped.
	StatusSkipped

	// StatusFailedTransient: the handler hit an error that could
	// succeed on redelivery (broker, store or API outage).
	StatusFailedTransient

	// StatusFailedPermanent: the message can never be processed
	// (malformed payload). Redelivery would fail identically.
	StatusFailedPermanent
)

// Outcome is the explicit per-message result every stage handler
// returns. The consumer loop maps it to an acknowledgment action via
// Decide instead of inferring intent from whether an error escaped.
type Outcome struct {
	Status Status
	Reason string
	Err    error
}

// Processed reports a fully handled message.
func Processed() Outcome {
	return Outcome{Status: StatusProcessed}
}

// Skipped reports a deliberately dropped message with the reason.
func Skipped(reason string) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason}
}

// FailedTransient reports a retryable handling failure.
func FailedTransient(err error) Outcome {
	return Outcome{Status: StatusFailedTransient, Err: err}
}

// FailedPermanent reports an unrecoverable handling failure.
func FailedPermanent(err error) Outcome {
	return Outcome{Status: StatusFailedPermanent, Err: err}
}

// String returns a log-friendly description of the outcome.
func (o Outcome) String() string {
	switch o.Status {
	case StatusProcessed:
		return "processed"
	case StatusSkipped:
		return fmt.Sprintf("skipped (%s)", o.Reason)
	case StatusFailedTransient:
		return fmt.Sprintf("failed transient (%v)", o.Err)
	case StatusFailedPermanent:
		return fmt.Sprintf("failed permanent (%v)", o.Err)
	default:
		return fmt.Sprintf("unknown status %d", int(o.Status))
	}
}

// AckAction is what the consumer loop does with the broker delivery
// once the handler has returned.
type AckAction int

// Possible acknowledgment actions.
const (
	// ActionAck acknowledges a successfully handled message.
	ActionAck AckAction = iota

	// ActionAckDrop acknowledges a message that was not (fully)
	// handled, removing it from the queue. With no dead-letter queue
	// configured the message is gone; that gap is deliberate and
	// logged, never silent.
	ActionAckDrop

	// ActionRequeue negatively acknowledges the message so the broker
	// redelivers it.
	ActionRequeue
)

// Decide maps a handler outcome to an acknowledgment action.
//
//	Processed        -> ack
//	Skipped          -> ack-and-drop
//	FailedPermanent  -> ack-and-drop
//	FailedTransient  -> ack-and-drop, or requeue when requeueOnFailure
//
// requeueOnFailure is deployment configuration: the historical
// behavior drops transient failures, which risks losing work; enabling
// requeue risks hot-looping on a poison message. Neither is free and
// the choice is left to the operator.
func Decide(o Outcome, requeueOnFailure bool) AckAction {
	switch o.Status {
	case StatusProcessed:
		return ActionAck
	case StatusSkipped:
		return ActionAckDrop
	case StatusFailedTransient:
		if requeueOnFailure {
			return ActionRequeue
		}
		return ActionAckDrop
	case StatusFailedPermanent:
		return ActionAckDrop
	default:
		return ActionAckDrop
	}
}
