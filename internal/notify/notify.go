package notify

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Notifier delivers an operator notice about the backend endpoint.
type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans a notice out to every notifier and reports all failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// Log writes notices to the service log. Used when no webhook is configured.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Send(ctx context.Context, title, text string) error {
	if l.Logger != nil {
		l.Logger.Warn("notice", zap.String("title", title), zap.String("text", text))
	}
	return nil
}
