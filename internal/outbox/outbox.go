package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Op distinguishes a document snapshot from a tombstone.
type Op string

const (
	OpUpsert Op = "UPSERT"
	OpDelete Op = "DELETE"
)

// Message is one pending downstream notification. Messages are written
// in the same transaction as the business change they describe, so a
// committed document always has its message and a rolled-back one
// never does.
type Message struct {
	ID        int64
	Topic     string
	Op        Op
	PublicID  string
	Payload   []byte
	Attempts  int
	CreatedAt time.Time
}

// EnqueueUpsert stages a full-document snapshot on the caller's
// transaction. Call it before the final commit of the unit of work
// that changed the document.
func EnqueueUpsert(ctx context.Context, tx pgx.Tx, topic, publicID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outbox: marshal %s/%s: %w", topic, publicID, err)
	}
	return insert(ctx, tx, topic, OpUpsert, publicID, body)
}

// EnqueueDelete stages a tombstone for a removed document.
func EnqueueDelete(ctx context.Context, tx pgx.Tx, topic, publicID string) error {
	return insert(ctx, tx, topic, OpDelete, publicID, nil)
}

func insert(ctx context.Context, tx pgx.Tx, topic string, op Op, publicID string, payload []byte) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO outbox_messages (topic, op, public_id, payload, created_at) VALUES ($1,$2,$3,$4,now())`,
		topic, op, publicID, payload)
	if err != nil {
		return fmt.Errorf("outbox: enqueue %s %s/%s: %w", op, topic, publicID, err)
	}
	return nil
}
