// Package notify delivers best-effort notifications for module completion
// and deal stage flips. Delivery is fire-and-forget: a failed or dropped
// send is logged and swallowed, and must never block or fail the status
// write it reports.
package notify

import "context"

// Message is the payload handed to the delivery collaborator.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"message"`
}

// Notifier defines the interface for delivering a single message.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers one message.
	Send(ctx context.Context, msg Message) error
}
