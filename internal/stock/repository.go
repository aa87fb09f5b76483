package stock

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/google/uuid"
)

// Repository persists stock entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional stock operations. The guard read
// and the subsequent append must share one transaction so two
// concurrent postings cannot both observe the same on-hand snapshot
// and both draw it down.
type TxRepository interface {
	OnHandBulk(ctx context.Context, keys []OnHandKey, asOf *time.Time) (map[OnHandKey]float64, error)
	AppendEntries(ctx context.Context, entries []Entry) error
	ListByRef(ctx context.Context, refType string, refID uuid.UUID) ([]Entry, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("stock repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// Bind wraps an existing transaction so a document service can run the
// guard, the append, and its own writes as one unit.
func Bind(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) OnHandBulk(ctx context.Context, keys []OnHandKey, asOf *time.Time) (map[OnHandKey]float64, error) {
	out := make(map[OnHandKey]float64, len(keys))
	for _, key := range keys {
		var qty float64
		var err error
		if asOf != nil {
			err = r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(qty),0) FROM stock_entries WHERE item_id=$1 AND location_type=$2 AND location_id=$3 AND created_at <= $4`,
				key.ItemID, key.LocationType, key.LocationID, *asOf).Scan(&qty)
		} else {
			err = r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(qty),0) FROM stock_entries WHERE item_id=$1 AND location_type=$2 AND location_id=$3`,
				key.ItemID, key.LocationType, key.LocationID).Scan(&qty)
		}
		if err != nil {
			return nil, err
		}
		out[key] = qty
	}
	return out, nil
}

// AppendEntries inserts entries in slice order.
func (r *txRepository) AppendEntries(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if _, err := r.tx.Exec(ctx, `INSERT INTO stock_entries (item_id, location_type, location_id, qty, unit_cost, ref_type, ref_id, stock_doc_id, note)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			e.ItemID, e.LocationType, e.LocationID, e.Qty, e.UnitCost, e.RefType, e.RefID, e.StockDocID, e.Note); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) ListByRef(ctx context.Context, refType string, refID uuid.UUID) ([]Entry, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, item_id, location_type, location_id, qty, unit_cost, ref_type, ref_id, stock_doc_id, note, created_at
FROM stock_entries WHERE ref_type=$1 AND ref_id=$2 ORDER BY id`, refType, refID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ItemID, &e.LocationType, &e.LocationID, &e.Qty, &e.UnitCost, &e.RefType, &e.RefID, &e.StockDocID, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetOnHandBulk is the committed-state bulk read shared by the guard
// precheck UI and external reporting.
func (r *Repository) GetOnHandBulk(ctx context.Context, itemIDs []int64, locationType LocationType, locationID int64, atUTC *time.Time) (map[int64]float64, error) {
	out := make(map[int64]float64, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	query := `SELECT item_id, COALESCE(SUM(qty),0) FROM stock_entries
WHERE item_id = ANY($1) AND location_type=$2 AND location_id=$3`
	args := []any{itemIDs, locationType, locationID}
	if atUTC != nil {
		query += ` AND created_at <= $4`
		args = append(args, *atUTC)
	}
	query += ` GROUP BY item_id`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var itemID int64
		var qty float64
		if err := rows.Scan(&itemID, &qty); err != nil {
			return nil, err
		}
		out[itemID] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range itemIDs {
		if _, ok := out[id]; !ok {
			out[id] = 0
		}
	}
	return out, nil
}
