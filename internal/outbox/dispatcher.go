package outbox

import (
	"context"
	"log/slog"
)

// Transport delivers one message to the downstream read-model sync.
type Transport interface {
	Publish(ctx context.Context, msg Message) error
}

// Store is the backlog surface the dispatcher drains.
type Store interface {
	ListPending(ctx context.Context, limit int) ([]Message, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, cause string) error
}

// StorePort opens the unit of work a drain runs in.
type StorePort interface {
	WithTx(ctx context.Context, fn func(context.Context, Store) error) error
}

// Dispatcher drains the outbox toward a transport. Delivery is
// at-least-once: a message is settled only after the transport accepts
// it, and a crash between publish and commit replays the batch, so
// consumers must tolerate replays.
type Dispatcher struct {
	store     StorePort
	transport Transport
	log       *slog.Logger
	batchSize int
}

// NewDispatcher constructs Dispatcher.
func NewDispatcher(store StorePort, transport Transport, log *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, transport: transport, log: log, batchSize: 100}
}

// Drain delivers one batch of pending messages and reports how many
// were settled. The whole batch runs in a single transaction so the
// SKIP LOCKED claim from ListPending holds until the settlements
// commit. A failed delivery is recorded and skipped; the rest of the
// batch still goes out.
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	sent := 0
	err := d.store.WithTx(ctx, func(ctx context.Context, store Store) error {
		pending, err := store.ListPending(ctx, d.batchSize)
		if err != nil {
			return err
		}
		for _, msg := range pending {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := d.transport.Publish(ctx, msg); err != nil {
				d.log.Warn("outbox delivery failed", "id", msg.ID, "topic", msg.Topic, "err", err)
				if markErr := store.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
					return markErr
				}
				continue
			}
			if err := store.MarkSent(ctx, msg.ID); err != nil {
				return err
			}
			sent++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sent, nil
}
