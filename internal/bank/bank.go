// Package bank implements the banking collaborator behind the dialogue
// handlers: account resolution plus the balance-mutating operations. Rule
// violations (unknown account, non-positive amount, insufficient funds) are
// reported as *RuleError so callers can surface them to the user and retry;
// any other error is infrastructure failure.
package bank

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bankline/internal/domain"
	"bankline/internal/events"
	"bankline/internal/repo"
)

// RuleError is a domain-rule failure with a customer-presentable message.
type RuleError struct {
	Reason string
}

func (e *RuleError) Error() string { return e.Reason }

func ruleErr(reason string) error { return &RuleError{Reason: reason} }

// IsRuleError reports whether err is a recoverable domain-rule failure.
func IsRuleError(err error) bool {
	var re *RuleError
	return errors.As(err, &re)
}

// TransferReceipt reports a completed transfer.
type TransferReceipt struct {
	FromMasked  string  `json:"from"`
	ToMasked    string  `json:"to"`
	FromKind    string  `json:"from_kind"`
	ToKind      string  `json:"to_kind"`
	Amount      float64 `json:"amount"`
	FromBalance float64 `json:"from_balance"`
	ToBalance   float64 `json:"to_balance"`
}

// DepositReceipt reports a completed deposit.
type DepositReceipt struct {
	ToMasked   string  `json:"to"`
	Amount     float64 `json:"amount"`
	NewBalance float64 `json:"new_balance"`
}

// Service is the collaborator contract consumed by the dialogue handlers.
// Account references are either a canonical kind string or a numeric id /
// id-suffix.
type Service interface {
	Transfer(ctx context.Context, fromRef, toRef string, amount float64) (TransferReceipt, error)
	Deposit(ctx context.Context, toRef string, amount float64) (DepositReceipt, error)
	Balance(ctx context.Context, ref string) (float64, error)
	AccountInfo(ctx context.Context, ref string) (domain.Account, error)
}

// Ledger is the SQLite-backed Service implementation.
type Ledger struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time
}

func New(db *sql.DB) Ledger {
	return Ledger{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Now:    time.Now,
	}
}

func (l Ledger) Transfer(ctx context.Context, fromRef, toRef string, amount float64) (TransferReceipt, error) {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return TransferReceipt{}, err
	}
	defer tx.Rollback()

	src, err := l.resolveTx(ctx, tx, fromRef)
	if err != nil {
		return TransferReceipt{}, err
	}
	dst, err := l.resolveTx(ctx, tx, toRef)
	if err != nil {
		return TransferReceipt{}, err
	}
	if src.ID == dst.ID {
		return TransferReceipt{}, ruleErr("source and destination are the same account")
	}
	if amount <= 0 {
		return TransferReceipt{}, ruleErr("amount must be positive")
	}
	if src.Balance < amount {
		return TransferReceipt{}, ruleErr("insufficient funds")
	}
	src.Balance -= amount
	dst.Balance += amount
	if err := l.Repo.SetBalanceTx(ctx, tx, src.ID, src.Balance); err != nil {
		return TransferReceipt{}, err
	}
	if err := l.Repo.SetBalanceTx(ctx, tx, dst.ID, dst.Balance); err != nil {
		return TransferReceipt{}, err
	}
	if err := l.Events.Append(ctx, tx, "bank.transfer", "", src.Owner, events.EventPayload{
		"from": src.Masked(), "to": dst.Masked(), "amount": amount,
	}); err != nil {
		return TransferReceipt{}, err
	}
	if err := tx.Commit(); err != nil {
		return TransferReceipt{}, err
	}
	return TransferReceipt{
		FromMasked:  src.Masked(),
		ToMasked:    dst.Masked(),
		FromKind:    src.Kind,
		ToKind:      dst.Kind,
		Amount:      amount,
		FromBalance: src.Balance,
		ToBalance:   dst.Balance,
	}, nil
}

func (l Ledger) Deposit(ctx context.Context, toRef string, amount float64) (DepositReceipt, error) {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return DepositReceipt{}, err
	}
	defer tx.Rollback()

	acc, err := l.resolveTx(ctx, tx, toRef)
	if err != nil {
		return DepositReceipt{}, err
	}
	if amount <= 0 {
		return DepositReceipt{}, ruleErr("amount must be positive")
	}
	acc.Balance += amount
	if err := l.Repo.SetBalanceTx(ctx, tx, acc.ID, acc.Balance); err != nil {
		return DepositReceipt{}, err
	}
	if err := l.Events.Append(ctx, tx, "bank.deposit", "", acc.Owner, events.EventPayload{
		"to": acc.Masked(), "amount": amount,
	}); err != nil {
		return DepositReceipt{}, err
	}
	if err := tx.Commit(); err != nil {
		return DepositReceipt{}, err
	}
	return DepositReceipt{ToMasked: acc.Masked(), Amount: amount, NewBalance: acc.Balance}, nil
}

func (l Ledger) Balance(ctx context.Context, ref string) (float64, error) {
	acc, err := l.resolve(ctx, ref)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

func (l Ledger) AccountInfo(ctx context.Context, ref string) (domain.Account, error) {
	return l.resolve(ctx, ref)
}

func (l Ledger) resolve(ctx context.Context, ref string) (domain.Account, error) {
	return l.resolveTx(ctx, nil, ref)
}

func (l Ledger) resolveTx(ctx context.Context, tx *sql.Tx, ref string) (domain.Account, error) {
	acc, err := l.Repo.GetAccountTx(ctx, tx, ref)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Account{}, ruleErr("invalid account")
	}
	return acc, err
}
