// Package notify defines the transient-notification sink the auth flow
// reports through. Notifications are fire-and-forget: implementations
// must never block or fail the operation that emitted them.
package notify

import "github.com/rs/zerolog"

// Notifier receives user-facing transient messages (toasts).
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier renders notifications through a zerolog logger. The demo
// binary uses it in place of a toast UI.
type LogNotifier struct {
	log zerolog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Success(msg string) {
	n.log.Info().Str("toast", "success").Msg(msg)
}

func (n *LogNotifier) Error(msg string) {
	n.log.Warn().Str("toast", "error").Msg(msg)
}
