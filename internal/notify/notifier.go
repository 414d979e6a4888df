package notify

import "context"

// Notifier publishes a message about a new feedback submission to a team
// channel. The abstraction allows swapping the mock for a real Slack or
// webhook integration without touching the handlers.
type Notifier interface {
	Publish(ctx context.Context, message string) error
}
