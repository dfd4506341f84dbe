package notify

import (
	"context"
	"log"
)

// LogNotifier writes messages to the process log instead of delivering
// them anywhere. It is the default when no delivery address is configured
// and the stand-in for the external delivery collaborator in tests.
type LogNotifier struct{}

// Name returns the notifier identifier.
func (LogNotifier) Name() string { return "log" }

// Send logs the message and reports success.
func (LogNotifier) Send(_ context.Context, msg Message) error {
	log.Printf("NOTIFY to=%s subject=%q: %s", msg.To, msg.Subject, msg.Body)
	return nil
}
