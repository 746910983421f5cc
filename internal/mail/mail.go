// Package mail defines the outbound email contract and its transports.
package mail

import (
	"context"
	"log/slog"
)

// Message is a single HTML email. Callers are responsible for escaping any
// user-supplied text placed in HTML.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer hands a message to a transport. accepted reports whether the
// transport took the message; err carries the detail when it did not.
type Mailer interface {
	Send(ctx context.Context, msg Message) (accepted bool, err error)
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	Logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{Logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.Logger.Info("mail (log transport)", "to", msg.To, "subject", msg.Subject, "bytes", len(msg.HTML))
	return true, nil
}
