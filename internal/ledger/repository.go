package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const entryColumns = `id, ts, effective_date, account_id, debit, credit, doc_type, doc_id, chain_id, is_effective, memo, doc_no`

// Repository persists GL entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ErrDocumentAlreadyPosted indicates a document version already has a
// GL batch linked.
var ErrDocumentAlreadyPosted = errors.New("ledger: document already posted")

// TxRepository exposes transactional posting operations. Entries for
// one batch are always inserted in enumeration order inside one
// transaction with the document save.
type TxRepository interface {
	InsertEntries(ctx context.Context, entries []Entry) error
	LinkDocument(ctx context.Context, docType DocumentType, docID uuid.UUID) error
	ListChainEntries(ctx context.Context, chainID uuid.UUID) ([]Entry, error)
	SetChainEffectiveness(ctx context.Context, chainID uuid.UUID, effective bool) error
	SumStockCost(ctx context.Context, refType string, refID uuid.UUID) (float64, error)
	ChainState(ctx context.Context, chainID uuid.UUID) (ChainState, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
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

// Bind wraps an existing transaction so a document service can share
// one unit of work across stock, ledger, and outbox writes.
func Bind(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) InsertEntries(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if _, err := r.tx.Exec(ctx, `INSERT INTO gl_entries (ts, effective_date, account_id, debit, credit, doc_type, doc_id, chain_id, is_effective, memo, doc_no)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			e.Timestamp, e.EffectiveDate, e.AccountID, e.Debit, e.Credit, e.DocType, e.DocID, e.ChainID, e.IsEffective, e.Memo, e.DocNo); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) LinkDocument(ctx context.Context, docType DocumentType, docID uuid.UUID) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO gl_document_links (doc_type, doc_id) VALUES ($1,$2)`, docType, docID)
	if err != nil {
		if isDuplicateLink(err) {
			return ErrDocumentAlreadyPosted
		}
		return err
	}
	return nil
}

// isDuplicateLink matches the unique constraint guarding one GL batch
// per document version.
func isDuplicateLink(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_gl_document_links"
}

func (r *txRepository) ListChainEntries(ctx context.Context, chainID uuid.UUID) ([]Entry, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+entryColumns+` FROM gl_entries WHERE chain_id=$1 ORDER BY effective_date, id`, chainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.EffectiveDate, &e.AccountID, &e.Debit, &e.Credit,
			&e.DocType, &e.DocID, &e.ChainID, &e.IsEffective, &e.Memo, &e.DocNo); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *txRepository) SetChainEffectiveness(ctx context.Context, chainID uuid.UUID, effective bool) error {
	_, err := r.tx.Exec(ctx, `UPDATE gl_entries SET is_effective=$2 WHERE chain_id=$1`, chainID, effective)
	return err
}

// SumStockCost totals signed qty*unit_cost over the stock entries tied
// to a document reference. Sales carry negative quantities, so the
// cost of goods sold is the negated sum.
func (r *txRepository) SumStockCost(ctx context.Context, refType string, refID uuid.UUID) (float64, error) {
	var sum float64
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(qty*unit_cost),0) FROM stock_entries WHERE ref_type=$1 AND ref_id=$2`, refType, refID).Scan(&sum)
	return sum, err
}

func (r *txRepository) ChainState(ctx context.Context, chainID uuid.UUID) (ChainState, error) {
	var total, effective, versions int64
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_effective), COUNT(DISTINCT doc_id)
FROM gl_entries WHERE chain_id=$1`, chainID).Scan(&total, &effective, &versions)
	if err != nil {
		return "", err
	}
	switch {
	case total == 0:
		return "", pgx.ErrNoRows
	case effective == 0:
		return ChainVoided, nil
	case versions > 1:
		return ChainSuperseded, nil
	default:
		return ChainActive, nil
	}
}
