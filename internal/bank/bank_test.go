package bank

import (
	"context"
	"database/sql"
	"testing"

	"bankline/internal/db"
	"bankline/internal/migrate"
	"bankline/internal/repo"
)

func newTestLedger(t *testing.T) (Ledger, *sql.DB) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(conn), conn
}

func TestTransfer(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	rec, err := l.Transfer(ctx, "savings", "checking", 150.5)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if rec.FromMasked != "savings(****1234)" || rec.ToMasked != "checking(****4532)" {
		t.Fatalf("masked refs = %s -> %s", rec.FromMasked, rec.ToMasked)
	}
	if rec.FromBalance != 1849.5 || rec.ToBalance != 2150.5 {
		t.Fatalf("balances = %v / %v, want 1849.5 / 2150.5", rec.FromBalance, rec.ToBalance)
	}

	// The receipt reflects the committed state.
	got, err := l.Balance(ctx, "savings")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if got != 1849.5 {
		t.Fatalf("savings balance = %v, want 1849.5", got)
	}
}

func TestTransferRuleViolations(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		from, to string
		amount   float64
	}{
		{"unknown source", "offshore", "checking", 10},
		{"unknown destination", "savings", "offshore", 10},
		{"same account by kind and id", "savings", "1234", 10},
		{"zero amount", "savings", "checking", 0},
		{"negative amount", "savings", "checking", -5},
		{"insufficient funds", "savings", "checking", 99999},
	}
	for _, tc := range cases {
		_, err := l.Transfer(ctx, tc.from, tc.to, tc.amount)
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !IsRuleError(err) {
			t.Errorf("%s: %v is not a rule error", tc.name, err)
		}
	}

	// Nothing committed.
	for ref, want := range map[string]float64{"savings": 2000, "checking": 2000} {
		got, err := l.Balance(ctx, ref)
		if err != nil {
			t.Fatalf("balance %s: %v", ref, err)
		}
		if got != want {
			t.Fatalf("%s balance = %v, want %v after failed transfers", ref, got, want)
		}
	}
}

func TestDepositBySuffix(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	// "532" resolves by id suffix to checking 4532.
	rec, err := l.Deposit(ctx, "532", 25)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if rec.ToMasked != "checking(****4532)" {
		t.Fatalf("to = %s, want checking(****4532)", rec.ToMasked)
	}
	if rec.NewBalance != 2025 {
		t.Fatalf("new balance = %v, want 2025", rec.NewBalance)
	}
}

func TestDepositRuleViolations(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.Deposit(ctx, "nowhere", 10); !IsRuleError(err) {
		t.Fatalf("unknown account: %v is not a rule error", err)
	}
	if _, err := l.Deposit(ctx, "savings", 0); !IsRuleError(err) {
		t.Fatalf("zero amount: %v is not a rule error", err)
	}
}

func TestAccountInfo(t *testing.T) {
	l, _ := newTestLedger(t)
	acc, err := l.AccountInfo(context.Background(), "checking")
	if err != nil {
		t.Fatalf("account info: %v", err)
	}
	if acc.ID != "4532" || acc.Kind != "checking" || acc.Balance != 2000 {
		t.Fatalf("account = %+v", acc)
	}
}

func TestMutationsAreLogged(t *testing.T) {
	l, conn := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.Transfer(ctx, "savings", "checking", 10); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, err := l.Deposit(ctx, "savings", 5); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	r := repo.Repo{DB: conn}
	for _, evtType := range []string{"bank.transfer", "bank.deposit"} {
		events, err := r.LatestEvents(ctx, 10, evtType, "")
		if err != nil {
			t.Fatalf("latest events: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("%s events = %d, want 1", evtType, len(events))
		}
	}

	// Failed transfers must not log.
	if _, err := l.Transfer(ctx, "savings", "checking", 99999); !IsRuleError(err) {
		t.Fatalf("expected rule error, got %v", err)
	}
	events, err := r.LatestEvents(ctx, 10, "bank.transfer", "")
	if err != nil {
		t.Fatalf("latest events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("bank.transfer events = %d after failed transfer, want 1", len(events))
	}
}
