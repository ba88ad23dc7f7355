package domain

import "fmt"

// OutcomeKind tags the terminal result of processing one delivery request.
type OutcomeKind string

const (
	// OutcomeDelivered means the payload was sent and durably recorded.
	OutcomeDelivered OutcomeKind = "DELIVERED"
	// OutcomeRetryable means the attempt failed transiently and the message
	// should be redelivered with backoff.
	OutcomeRetryable OutcomeKind = "RETRYABLE_FAILURE"
	// OutcomePermanent means retrying can never succeed; the message belongs
	// on the dead-letter path.
	OutcomePermanent OutcomeKind = "PERMANENT_FAILURE"
)

func (k OutcomeKind) String() string { return string(k) }

// Outcome is the orchestrator's contract value. The orchestrator never lets
// downstream errors escape; callers branch on Kind.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

func Delivered() Outcome {
	return Outcome{Kind: OutcomeDelivered}
}

func RetryableFailure(format string, args ...any) Outcome {
	return Outcome{Kind: OutcomeRetryable, Reason: fmt.Sprintf(format, args...)}
}

func PermanentFailure(format string, args ...any) Outcome {
	return Outcome{Kind: OutcomePermanent, Reason: fmt.Sprintf(format, args...)}
}

func (o Outcome) IsDelivered() bool { return o.Kind == OutcomeDelivered }
func (o Outcome) IsRetryable() bool { return o.Kind == OutcomeRetryable }
func (o Outcome) IsPermanent() bool { return o.Kind == OutcomePermanent }
