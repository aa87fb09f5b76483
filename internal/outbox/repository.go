package outbox

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads and settles pending messages for the dispatcher.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txStore struct {
	tx pgx.Tx
}

// WithTx executes fn within one transaction. The drain must read, send,
// and settle under the same transaction so the SKIP LOCKED row locks
// hold for the whole batch.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	if r == nil {
		return errors.New("outbox repository not initialised")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, &txStore{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// ListPending returns up to limit undelivered messages in insertion
// order. FOR UPDATE SKIP LOCKED keeps concurrent dispatchers on
// disjoint rows for as long as the surrounding transaction lives.
func (s *txStore) ListPending(ctx context.Context, limit int) ([]Message, error) {
	rows, err := s.tx.Query(ctx, `SELECT id, topic, op, public_id, payload, attempts, created_at
FROM outbox_messages WHERE sent_at IS NULL ORDER BY id LIMIT $1 FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Topic, &m.Op, &m.PublicID, &m.Payload, &m.Attempts, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkSent settles a delivered message.
func (s *txStore) MarkSent(ctx context.Context, id int64) error {
	_, err := s.tx.Exec(ctx, `UPDATE outbox_messages SET sent_at=now() WHERE id=$1`, id)
	return err
}

// MarkFailed bumps the attempt counter and records the delivery error.
func (s *txStore) MarkFailed(ctx context.Context, id int64, cause string) error {
	_, err := s.tx.Exec(ctx, `UPDATE outbox_messages SET attempts=attempts+1, last_error=$2 WHERE id=$1`, id, cause)
	return err
}
