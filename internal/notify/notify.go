// Package notify delivers booking notifications: by email through an HTTP
// relay, as events on Kafka, or to the log.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/roombooking/internal/application"
)

// Multi fans a notification out to every notifier and joins their errors.
type Multi []application.Notifier

// Notify implements application.Notifier.
func (m Multi) Notify(ctx context.Context, n application.Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes notifications to a logger. It is the fallback when no relay or
// broker is configured.
type Log struct {
	Logger *slog.Logger
}

// Notify implements application.Notifier.
func (l Log) Notify(ctx context.Context, n application.Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification",
		"event", n.Event,
		"booking_id", n.BookingID,
		"to", n.To,
		"subject", n.Subject,
	)
	return nil
}
