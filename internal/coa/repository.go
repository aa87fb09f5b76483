package coa

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

const accountColumns = `id, code, name, type, normal_side, is_header, allow_posting, parent_id, outlet_id, is_system, opening_debit, opening_credit, opening_locked, created_at, updated_at`

// Repository persists the account tree.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations the directory
// needs. Code generation and get-or-create provisioning rely on the
// whole sequence running inside one transaction.
type TxRepository interface {
	GetAccount(ctx context.Context, id int64) (Account, error)
	GetAccountByCode(ctx context.Context, code string) (Account, error)
	LockAccount(ctx context.Context, id int64) (Account, error)
	ListChildren(ctx context.Context, parentID int64) ([]Account, error)
	InsertAccount(ctx context.Context, acc Account) (Account, error)
	InsertAccountIfAbsent(ctx context.Context, acc Account) error
	UpdateAccount(ctx context.Context, edit AccountEdit) error
	UpdateOpening(ctx context.Context, id int64, debit, credit float64) error
	LockAllOpenings(ctx context.Context) (int64, error)
	DeleteAccount(ctx context.Context, id int64) error
	HasChildren(ctx context.Context, id int64) (bool, error)
	HasGLEntries(ctx context.Context, id int64) (bool, error)
	HasPartyRefs(ctx context.Context, id int64) (bool, error)
	GetOutletCode(ctx context.Context, outletID int64) (string, error)
}

type txRepository struct {
	tx pgx.Tx
}

// ErrDuplicateCode indicates a code collision on insert.
var ErrDuplicateCode = errors.New("coa: duplicate account code")

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("coa repository not initialised")
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

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.NormalSide, &a.IsHeader, &a.AllowPosting,
		&a.ParentID, &a.OutletID, &a.IsSystem, &a.OpeningDebit, &a.OpeningCredit, &a.OpeningLocked,
		&a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *txRepository) GetAccount(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.NotFoundf("account", "account %d not found", id)
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	a, err := scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.NotFoundf("account", "account %s not found", code)
		}
		return Account{}, err
	}
	return a, nil
}

// LockAccount loads an account FOR UPDATE. Holding the parent lock
// serialises concurrent child-code generation.
func (r *txRepository) LockAccount(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.NotFoundf("account", "account %d not found", id)
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) ListChildren(ctx context.Context, parentID int64) ([]Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE parent_id=$1 ORDER BY code`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *txRepository) InsertAccount(ctx context.Context, acc Account) (Account, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO accounts (code, name, type, normal_side, is_header, allow_posting, parent_id, outlet_id, is_system, opening_debit, opening_credit, opening_locked)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id, created_at, updated_at`,
		acc.Code, acc.Name, acc.Type, acc.NormalSide, acc.IsHeader, acc.AllowPosting,
		acc.ParentID, acc.OutletID, acc.IsSystem, acc.OpeningDebit, acc.OpeningCredit, acc.OpeningLocked)
	if err := row.Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return Account{}, ErrDuplicateCode
		}
		return Account{}, err
	}
	return acc, nil
}

// InsertAccountIfAbsent inserts unless the code already exists. Used by
// the idempotent cash/till provisioning path.
func (r *txRepository) InsertAccountIfAbsent(ctx context.Context, acc Account) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO accounts (code, name, type, normal_side, is_header, allow_posting, parent_id, outlet_id, is_system)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) ON CONFLICT (code) DO NOTHING`,
		acc.Code, acc.Name, acc.Type, acc.NormalSide, acc.IsHeader, acc.AllowPosting,
		acc.ParentID, acc.OutletID, acc.IsSystem)
	return err
}

func (r *txRepository) UpdateAccount(ctx context.Context, edit AccountEdit) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET code=$2, name=$3, is_header=$4, allow_posting=$5, updated_at=NOW() WHERE id=$1`,
		edit.ID, edit.Code, edit.Name, edit.IsHeader, edit.AllowPosting)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return ErrDuplicateCode
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("account", "account %d not found", edit.ID)
	}
	return nil
}

func (r *txRepository) UpdateOpening(ctx context.Context, id int64, debit, credit float64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET opening_debit=$2, opening_credit=$3, updated_at=NOW() WHERE id=$1 AND NOT opening_locked`,
		id, debit, credit)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("account", "account %d not found or opening locked", id)
	}
	return nil
}

func (r *txRepository) LockAllOpenings(ctx context.Context) (int64, error) {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET opening_locked=TRUE, updated_at=NOW() WHERE NOT opening_locked`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *txRepository) DeleteAccount(ctx context.Context, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("account", "account %d not found", id)
	}
	return nil
}

func (r *txRepository) HasChildren(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM accounts WHERE parent_id=$1 LIMIT 1`, id)
}

func (r *txRepository) HasGLEntries(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM gl_entries WHERE account_id=$1 LIMIT 1`, id)
}

func (r *txRepository) HasPartyRefs(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM parties WHERE account_id=$1 LIMIT 1`, id)
}

func (r *txRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := r.tx.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *txRepository) GetOutletCode(ctx context.Context, outletID int64) (string, error) {
	var code string
	err := r.tx.QueryRow(ctx, `SELECT code FROM outlets WHERE id=$1`, outletID).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.NotFoundf("outlet", "outlet %d not found", outletID)
		}
		return "", err
	}
	return code, nil
}

// RoleAccountID resolves a system account role to an account id for the
// given outlet, falling back to the company-wide row. Reads committed
// state outside any caller transaction; results are cached by the
// registry.
func (r *Repository) RoleAccountID(ctx context.Context, role string, outletID *int64) (int64, error) {
	var id int64
	var err error
	if outletID != nil {
		err = r.pool.QueryRow(ctx, `SELECT account_id FROM account_roles WHERE role=$1 AND (outlet_id=$2 OR outlet_id IS NULL)
ORDER BY outlet_id NULLS LAST LIMIT 1`, role, *outletID).Scan(&id)
	} else {
		err = r.pool.QueryRow(ctx, `SELECT account_id FROM account_roles WHERE role=$1 AND outlet_id IS NULL LIMIT 1`, role).Scan(&id)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return id, nil
}
