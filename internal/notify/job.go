package notify

import (
	"context"
	"fmt"

	"github.com/metime/identity/pkg/jobs"
)

// JobName is the queue entry under which notification dispatch runs.
const JobName = "notify.send"

// JobHandler adapts a Notifier into a background job handler.
func JobHandler(notifier Notifier) jobs.Handler {
	return func(ctx context.Context, payload any) error {
		message, ok := payload.(Message)
		if !ok {
			return fmt.Errorf("notify: unexpected payload type %T", payload)
		}
		return notifier.Send(ctx, message)
	}
}
