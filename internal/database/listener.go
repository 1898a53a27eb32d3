package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// ChannelTrashChanged is the Postgres NOTIFY channel written on every trash
// document save. The payload is the origin id of the writing context, so each
// listener can ignore its own writes — the cross-context analog of the
// browser's cross-tab storage event, which only ever fires in other tabs.
const ChannelTrashChanged = "trash_changed"

const listenerRetryDelay = 5 * time.Second

// Listener holds a dedicated connection in LISTEN mode and invokes the
// handler with each notification payload. It reconnects on error and stops
// when the context is cancelled.
type Listener struct {
	databaseURL string
	channel     string
	handler     func(payload string)
}

func NewListener(databaseURL string, channel string, handler func(payload string)) *Listener {
	return &Listener{databaseURL: databaseURL, channel: channel, handler: handler}
}

// Run blocks until ctx is cancelled. Call it in its own goroutine.
func (l *Listener) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if err := l.listen(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("change listener disconnected; retrying", "channel", l.channel, "error", err)

			select {
			case <-time.After(listenerRetryDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return err
	}

	slog.Info("listening for external changes", "channel", l.channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		l.handler(notification.Payload)
	}
}
