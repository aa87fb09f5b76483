package reports

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

// Repository reads the entry store for reporting. All queries are
// read-only against committed state.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AccountOpening returns the stored opening balance as debit minus
// credit.
func (r *Repository) AccountOpening(ctx context.Context, accountID int64) (float64, error) {
	var debit, credit float64
	err := r.pool.QueryRow(ctx, `SELECT opening_debit, opening_credit FROM accounts WHERE id=$1`, accountID).Scan(&debit, &credit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.NotFoundf("account", "account %d not found", accountID)
		}
		return 0, err
	}
	return debit - credit, nil
}

// SumBefore totals debit minus credit for entries dated strictly
// before the cutoff.
func (r *Repository) SumBefore(ctx context.Context, accountID int64, before time.Time, includeVoided bool) (float64, error) {
	query := `SELECT COALESCE(SUM(debit-credit),0) FROM gl_entries WHERE account_id=$1 AND effective_date < $2`
	if !includeVoided {
		query += ` AND is_effective`
	}
	var sum float64
	err := r.pool.QueryRow(ctx, query, accountID, before).Scan(&sum)
	return sum, err
}

// ListEntries returns rows in [from, to) ordered by
// (effective_date, id) so reconstruction is stable across re-runs.
func (r *Repository) ListEntries(ctx context.Context, accountID int64, from, to time.Time, includeVoided bool) ([]LedgerRow, error) {
	query := `SELECT id, account_id, effective_date, doc_type, doc_no, memo, debit, credit, is_effective
FROM gl_entries WHERE account_id=$1 AND effective_date >= $2 AND effective_date < $3`
	if !includeVoided {
		query += ` AND is_effective`
	}
	query += ` ORDER BY effective_date, id`
	rows, err := r.pool.Query(ctx, query, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerRow
	for rows.Next() {
		var row LedgerRow
		var effective bool
		if err := rows.Scan(&row.EntryID, &row.AccountID, &row.EffectiveDate, &row.DocType, &row.DocNo, &row.Memo,
			&row.Debit, &row.Credit, &effective); err != nil {
			return nil, err
		}
		row.IsVoided = !effective
		out = append(out, row)
	}
	return out, rows.Err()
}
