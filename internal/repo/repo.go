package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"bankline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanAccount(row *sql.Row) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Owner, &a.Kind, &a.Balance)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

// GetAccount resolves an account reference: a canonical kind ("savings"), an
// exact id ("4532"), or an id suffix ("532"). Kind resolution wins; suffix
// matches pick the first account in id order.
func (r Repo) GetAccount(ctx context.Context, ref string) (domain.Account, error) {
	return r.GetAccountTx(ctx, nil, ref)
}

// GetAccountTx is GetAccount inside an optional transaction.
func (r Repo) GetAccountTx(ctx context.Context, tx *sql.Tx, ref string) (domain.Account, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return domain.Account{}, ErrNotFound
	}
	var q queryer = r.DB
	if tx != nil {
		q = tx
	}
	a, err := scanAccount(q.QueryRowContext(ctx, `SELECT id,owner,kind,balance FROM accounts WHERE kind=? LIMIT 1`, ref))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return domain.Account{}, err
	}
	return scanAccount(q.QueryRowContext(ctx,
		`SELECT id,owner,kind,balance FROM accounts WHERE id=? OR id LIKE '%' || ? ORDER BY id LIMIT 1`, ref, ref))
}

// ListAccounts returns all accounts in kind order.
func (r Repo) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,owner,kind,balance FROM accounts ORDER BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Owner, &a.Kind, &a.Balance); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// SetBalanceTx updates one account's balance inside a transaction.
func (r Repo) SetBalanceTx(ctx context.Context, tx *sql.Tx, id string, balance float64) error {
	res, err := tx.ExecContext(ctx, `UPDATE accounts SET balance=? WHERE id=?`, balance, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertAccount stores a new account.
func (r Repo) InsertAccount(ctx context.Context, a domain.Account) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO accounts(id,owner,kind,balance) VALUES (?,?,?,?)`,
		a.ID, a.Owner, a.Kind, a.Balance)
	return err
}
