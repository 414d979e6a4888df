package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier implements Notifier by writing messages to the service log.
// Replace with a real channel integration for production use.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Publish(ctx context.Context, message string) error {
	n.log.Info().Str("channel", "feedback").Msg(message)
	return nil
}
