package sender

import "context"

// Sender is the outbound transport port. Implementations deliver the rendered
// payload to the recipient through a channel-specific transport.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}
