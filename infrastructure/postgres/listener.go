package postgres

import (
	"context"
	"fmt"
	"tutor-realtime/contract"
	"tutor-realtime/domain/event"

	"github.com/jackc/pgx/v5"
)

var _ contract.IListener = (*Listener)(nil)

// Listener is a dedicated connection, never taken from the pool:
// LISTEN registrations live and die with it.
type Listener struct {
	conn *pgx.Conn
}

// Dialer opens a fresh listen connection on every call.
func Dialer(databaseURL string) contract.ListenerDialer {
	return func(ctx context.Context) (contract.IListener, error) {
		conn, err := pgx.Connect(ctx, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect listener: %w", err)
		}
		return &Listener{conn: conn}, nil
	}
}

func (l *Listener) Listen(ctx context.Context, name string) error {
	_, err := l.conn.Exec(ctx, "LISTEN "+pgx.Identifier{name}.Sanitize())
	return err
}

func (l *Listener) WaitForNotification(ctx context.Context) (event.RawNotification, error) {
	n, err := l.conn.WaitForNotification(ctx)
	if err != nil {
		return event.RawNotification{}, err
	}
	return event.RawNotification{Channel: n.Channel, Payload: n.Payload}, nil
}

func (l *Listener) Close(ctx context.Context) error {
	return l.conn.Close(ctx)
}
