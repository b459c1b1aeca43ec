// Package notify defines the outbound notification capability. Real email
// and SMS transports live outside this service; the interface here is what
// the OTP flows dispatch through.
package notify

import (
	"context"

	"github.com/metime/identity/internal/identifier"
	"github.com/metime/identity/pkg/logger"
)

// Message describes one notification to deliver. Channel selection follows
// the identifier field: email messages carry a subject, SMS messages do not.
type Message struct {
	Field       identifier.Field
	Destination string
	Subject     string
	Body        string
}

// Notifier delivers notifications to downstream transports.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LogNotifier is the development implementation: it writes every message to
// the structured log instead of delivering it.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Send writes the message to the log.
func (n *LogNotifier) Send(ctx context.Context, message Message) error {
	logger.InfoWithContext(ctx, "Notification dispatched").
		String("field", string(message.Field)).
		String("destination", identifier.Mask(message.Field, message.Destination)).
		String("subject", message.Subject).
		Log()
	return nil
}
