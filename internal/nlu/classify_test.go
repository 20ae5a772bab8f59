package nlu

import (
	"reflect"
	"testing"

	"bankline/internal/config"
	"bankline/internal/domain"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return New(config.Default())
}

func TestClassifyBasicIntents(t *testing.T) {
	p := newTestPipeline(t)
	cases := []struct {
		text string
		want string
	}{
		{"hello there", "greet"},
		{"bye for now", "goodbye"},
		{"what is my balance", "check_balance"},
		{"deposit 50 dollars", "deposit_money"},
		{"where is the nearest branch", "get_branch_details"},
		{"what is the interest rate", "get_interest_rate"},
		{"i want to apply for a home loan", "apply_loan"},
		{"show my transactions", "check_history"},
	}
	for _, tc := range cases {
		res := p.Parse(tc.text)
		if res.Intent != tc.want {
			t.Errorf("Parse(%q).Intent = %s (%.2f), want %s", tc.text, res.Intent, res.Confidence, tc.want)
		}
	}
}

func TestClassifyFallbackAtZero(t *testing.T) {
	p := newTestPipeline(t)
	res := p.Parse("xyzzy qwerty")
	if res.Intent != domain.IntentFallback {
		t.Fatalf("intent = %s, want %s", res.Intent, domain.IntentFallback)
	}
	if res.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", res.Confidence)
	}
}

func TestClassifyConfidenceRounding(t *testing.T) {
	p := newTestPipeline(t)
	// 2 of 7 transfer keywords hit: 0.2857... rounds to 0.29.
	res := p.Parse("transfer money please")
	if res.Intent != "transfer_money" {
		t.Fatalf("intent = %s, want transfer_money", res.Intent)
	}
	if res.Confidence != 0.29 {
		t.Fatalf("confidence = %v, want 0.29", res.Confidence)
	}
}

func TestClassifyTransferBoost(t *testing.T) {
	p := newTestPipeline(t)
	// transfer, from, to hit (3/7 = 0.43); the fully extracted slots add 0.3.
	res := p.Parse("transfer $100 from savings to checking")
	if res.Intent != "transfer_money" {
		t.Fatalf("intent = %s, want transfer_money", res.Intent)
	}
	if res.Confidence != 0.73 {
		t.Fatalf("confidence = %v, want 0.73", res.Confidence)
	}
}

func TestClassifyBoostCappedAtOne(t *testing.T) {
	p := newTestPipeline(t)
	res := p.Parse("transfer send move pay 100 money from savings to checking")
	if res.Intent != "transfer_money" {
		t.Fatalf("intent = %s, want transfer_money", res.Intent)
	}
	if res.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", res.Confidence)
	}
}

func TestClassifyNoBoostWithoutFullSlots(t *testing.T) {
	p := newTestPipeline(t)
	// No amount extracted, so the boost must not apply.
	res := p.Parse("transfer from savings to checking")
	if res.Intent != "transfer_money" {
		t.Fatalf("intent = %s, want transfer_money", res.Intent)
	}
	if res.Confidence != 0.43 {
		t.Fatalf("confidence = %v, want 0.43", res.Confidence)
	}
}

// Equal scores keep the earliest catalog entry: "apply" hits one keyword of
// both apply_loan and apply_card, and apply_loan is declared first.
func TestClassifyTieKeepsCatalogOrder(t *testing.T) {
	p := newTestPipeline(t)
	res := p.Parse("apply")
	if res.Intent != "apply_loan" {
		t.Fatalf("intent = %s, want apply_loan", res.Intent)
	}
}

func TestClassifyConfidenceRange(t *testing.T) {
	p := newTestPipeline(t)
	texts := []string{
		"hello", "transfer $5 from savings to checking", "balance", "",
		"open a joint account and apply for a credit card with a home loan",
	}
	for _, text := range texts {
		res := p.Parse(text)
		if res.Confidence < 0 || res.Confidence > 1 {
			t.Errorf("Parse(%q).Confidence = %v, outside [0,1]", text, res.Confidence)
		}
	}
}

func TestParseDeterministic(t *testing.T) {
	p := newTestPipeline(t)
	text := "transfer $100 from savings to checking"
	first := p.Parse(text)
	for i := 0; i < 10; i++ {
		if got := p.Parse(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced %+v, first run produced %+v", i, got, first)
		}
	}
}
