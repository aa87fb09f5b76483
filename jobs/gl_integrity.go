package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-retail/atlas-ledger/internal/outbox"
	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

// NewOutboxDispatchHandler returns the handler draining the outbox
// toward the read-model transport.
func NewOutboxDispatchHandler(dispatcher *outbox.Dispatcher, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		sent, err := dispatcher.Drain(ctx)
		if err != nil {
			return err
		}
		if sent > 0 {
			logger.Info("outbox drained", slog.Int("sent", sent))
		}
		return nil
	}
}

// NewGLIntegrityHandler returns the handler re-checking that every
// chain's effective entries still sum to zero. Finding a violation
// means an invariant the write path enforces has been broken out of
// band, so it is logged loudly rather than repaired.
func NewGLIntegrityHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		rows, err := pool.Query(ctx, `SELECT chain_id, SUM(debit)-SUM(credit) AS drift
FROM gl_entries WHERE is_effective GROUP BY chain_id HAVING ABS(SUM(debit)-SUM(credit)) > $1`, shared.Tolerance)
		if err != nil {
			return err
		}
		defer rows.Close()
		violations := 0
		for rows.Next() {
			var chainID string
			var drift float64
			if err := rows.Scan(&chainID, &drift); err != nil {
				return err
			}
			violations++
			logger.Error("unbalanced chain detected", slog.String("chain", chainID), slog.Float64("drift", drift))
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if violations == 0 {
			logger.Info("gl integrity check passed")
		}
		return nil
	}
}

// NewIdempotencyCleanupHandler returns the handler pruning processed
// document keys past their retention window.
func NewIdempotencyCleanupHandler(store *shared.IdempotencyStore, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload IdempotencyCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		retain := time.Duration(payload.RetainHours) * time.Hour
		if retain <= 0 {
			retain = 72 * time.Hour
		}
		if err := store.Cleanup(ctx, retain); err != nil {
			return err
		}
		logger.Info("idempotency keys pruned", slog.Duration("retain", retain))
		return nil
	}
}
