package dialogue

import (
	"context"
	"fmt"
	"strconv"

	"bankline/internal/bank"
	"bankline/internal/domain"
)

// prompt asks for the first missing required slot of the intent, one slot at
// a time, and reports the full missing list in order.
func (m *Manager) prompt(name string, missing []string, res domain.NLUResult) domain.Reply {
	def, _ := m.cfg.Intent(name)
	return domain.Reply{Text: def.Prompts[missing[0]], NLU: res, Needed: missing}
}

func (m *Manager) handleTransfer(ctx context.Context, st *Session, res domain.NLUResult) (domain.Reply, error) {
	def, _ := m.cfg.Intent("transfer_money")
	if missing := st.missing(def.Slots...); len(missing) > 0 {
		return m.prompt(def.Name, missing, res), nil
	}
	rec, err := m.bank.Transfer(ctx, slotString(st.Slots["from_account"]), slotString(st.Slots["to_account"]), slotFloat(st.Slots["amount"]))
	if err != nil {
		if bank.IsRuleError(err) {
			// Slots stay so the user can correct one value and retry.
			return domain.Reply{Text: "Transfer failed: " + err.Error() + ".", NLU: res}, nil
		}
		return domain.Reply{}, err
	}
	st.clear("amount", "from_account", "to_account")
	st.CurrentIntent = ""
	text := fmt.Sprintf("Transferred $%.2f from %s to %s. New balances: %s $%.2f, %s $%.2f.",
		rec.Amount, rec.FromMasked, rec.ToMasked, rec.FromKind, rec.FromBalance, rec.ToKind, rec.ToBalance)
	return domain.Reply{Text: text, NLU: res}, nil
}

func (m *Manager) handleBalance(ctx context.Context, st *Session, res domain.NLUResult) (domain.Reply, error) {
	def, _ := m.cfg.Intent("check_balance")
	if missing := st.missing(def.Slots...); len(missing) > 0 {
		return m.prompt(def.Name, missing, res), nil
	}
	ref := slotString(st.Slots["account"])
	balance, err := m.bank.Balance(ctx, ref)
	if err != nil {
		if bank.IsRuleError(err) {
			return domain.Reply{Text: "I couldn't find that account. Try 'savings' or 'checking 4532'.", NLU: res}, nil
		}
		return domain.Reply{}, err
	}
	st.clear("account")
	st.CurrentIntent = ""
	return domain.Reply{Text: fmt.Sprintf("The current balance for %s is $%.2f.", ref, balance), NLU: res}, nil
}

func (m *Manager) handleAccountInfo(ctx context.Context, st *Session, res domain.NLUResult) (domain.Reply, error) {
	def, _ := m.cfg.Intent("account_info")
	if missing := st.missing(def.Slots...); len(missing) > 0 {
		return m.prompt(def.Name, missing, res), nil
	}
	acc, err := m.bank.AccountInfo(ctx, slotString(st.Slots["account"]))
	if err != nil {
		if bank.IsRuleError(err) {
			return domain.Reply{Text: "I couldn't find that account. Try 'savings' or 'checking 4532'.", NLU: res}, nil
		}
		return domain.Reply{}, err
	}
	st.clear("account")
	st.CurrentIntent = ""
	return domain.Reply{Text: fmt.Sprintf("Account %s (****%s). Balance: $%.2f.", acc.Kind, acc.ID, acc.Balance), NLU: res}, nil
}

func (m *Manager) handleDeposit(ctx context.Context, st *Session, res domain.NLUResult) (domain.Reply, error) {
	def, _ := m.cfg.Intent("deposit_money")
	if missing := st.missing(def.Slots...); len(missing) > 0 {
		return m.prompt(def.Name, missing, res), nil
	}
	rec, err := m.bank.Deposit(ctx, slotString(st.Slots["account"]), slotFloat(st.Slots["amount"]))
	if err != nil {
		if bank.IsRuleError(err) {
			return domain.Reply{Text: "Deposit failed: " + err.Error() + ".", NLU: res}, nil
		}
		return domain.Reply{}, err
	}
	st.clear("amount", "account")
	st.CurrentIntent = ""
	return domain.Reply{Text: fmt.Sprintf("Deposited $%.2f into %s. New balance: $%.2f.", rec.Amount, rec.ToMasked, rec.NewBalance), NLU: res}, nil
}

func (m *Manager) handleBranchDetails(_ context.Context, _ *Session, res domain.NLUResult) (domain.Reply, error) {
	return domain.Reply{Text: "You can find branch details on our website or tell me your city for more info.", NLU: res}, nil
}

func (m *Manager) handleInterestRate(_ context.Context, st *Session, res domain.NLUResult) (domain.Reply, error) {
	// loan_type is checked before account_type when both are present.
	if lt, ok := st.Slots["loan_type"]; ok {
		return domain.Reply{Text: fmt.Sprintf("The current interest rate for %s is 7.5%% per annum.", slotString(lt)), NLU: res}, nil
	}
	if at, ok := st.Slots["account_type"]; ok {
		return domain.Reply{Text: fmt.Sprintf("The current interest rate for %s is 4%% per annum.", slotString(at)), NLU: res}, nil
	}
	return domain.Reply{
		Text:   "Which loan or account type do you want the interest rate for?",
		NLU:    res,
		Needed: []string{"loan_type", "account_type"},
	}, nil
}

func (m *Manager) handleCreateAccount(_ context.Context, st *Session, res domain.NLUResult) (domain.Reply, error) {
	def, _ := m.cfg.Intent("create_account")
	if missing := st.missing(def.Slots...); len(missing) > 0 {
		return m.prompt(def.Name, missing, res), nil
	}
	accountType := slotString(st.Slots["account_type"])
	st.clear("account_type")
	st.CurrentIntent = ""
	return domain.Reply{Text: fmt.Sprintf("To open a %s, please visit your nearest branch with ID proof.", accountType), NLU: res}, nil
}

func (m *Manager) handleLostCard(_ context.Context, st *Session, res domain.NLUResult) (domain.Reply, error) {
	def, _ := m.cfg.Intent("lost_card")
	if missing := st.missing(def.Slots...); len(missing) > 0 {
		return m.prompt(def.Name, missing, res), nil
	}
	cardType := slotString(st.Slots["card_type"])
	st.clear("card_type")
	st.CurrentIntent = ""
	return domain.Reply{Text: fmt.Sprintf("Your %s has been blocked. Please visit the branch for a replacement.", cardType), NLU: res}, nil
}

func (m *Manager) handleApplyLoan(_ context.Context, st *Session, res domain.NLUResult) (domain.Reply, error) {
	def, _ := m.cfg.Intent("apply_loan")
	if missing := st.missing(def.Slots...); len(missing) > 0 {
		return m.prompt(def.Name, missing, res), nil
	}
	loanType := slotString(st.Slots["loan_type"])
	st.clear("loan_type")
	st.CurrentIntent = ""
	return domain.Reply{Text: fmt.Sprintf("To apply for a %s, please provide income proof and visit your nearest branch.", loanType), NLU: res}, nil
}

func (m *Manager) handleHistory(_ context.Context, st *Session, res domain.NLUResult) (domain.Reply, error) {
	// date wins over day when both are present.
	if d, ok := st.Slots["date"]; ok {
		return domain.Reply{Text: fmt.Sprintf("Showing transactions for %s.", slotString(d)), NLU: res}, nil
	}
	if d, ok := st.Slots["day"]; ok {
		return domain.Reply{Text: fmt.Sprintf("Showing transactions for %s.", slotString(d)), NLU: res}, nil
	}
	return domain.Reply{
		Text:   "For which date or period do you want your transaction history?",
		NLU:    res,
		Needed: []string{"date", "day"},
	}, nil
}

func (m *Manager) handleApplyCard(_ context.Context, st *Session, res domain.NLUResult) (domain.Reply, error) {
	def, _ := m.cfg.Intent("apply_card")
	if missing := st.missing(def.Slots...); len(missing) > 0 {
		return m.prompt(def.Name, missing, res), nil
	}
	cardType := slotString(st.Slots["card_type"])
	st.clear("card_type")
	st.CurrentIntent = ""
	return domain.Reply{Text: fmt.Sprintf("To apply for a %s, please visit your nearest branch.", cardType), NLU: res}, nil
}

func (m *Manager) handleCloseAccount(_ context.Context, st *Session, res domain.NLUResult) (domain.Reply, error) {
	def, _ := m.cfg.Intent("close_account")
	if missing := st.missing(def.Slots...); len(missing) > 0 {
		return m.prompt(def.Name, missing, res), nil
	}
	accountType := slotString(st.Slots["account_type"])
	st.clear("account_type")
	st.CurrentIntent = ""
	return domain.Reply{Text: fmt.Sprintf("Your %s will be closed after verification at the branch.", accountType), NLU: res}, nil
}

func (m *Manager) handleGreet(_ context.Context, _ *Session, res domain.NLUResult) (domain.Reply, error) {
	return domain.Reply{Text: "Hello! I can help with transfers and balances. What would you like to do?", NLU: res}, nil
}

func (m *Manager) handleGoodbye(_ context.Context, st *Session, res domain.NLUResult) (domain.Reply, error) {
	st.reset()
	return domain.Reply{Text: "Goodbye!", NLU: res}, nil
}

func slotString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func slotFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}
