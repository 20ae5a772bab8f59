// Package dialogue implements the slot-filling state machine that turns NLU
// results into actions: per-session state, intent adoption, slot merging and
// a data-driven dispatch table of intent handlers.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"

	"bankline/internal/bank"
	"bankline/internal/config"
	"bankline/internal/domain"
	"bankline/internal/events"
	"bankline/internal/nlu"
)

type handlerFunc func(ctx context.Context, st *Session, res domain.NLUResult) (domain.Reply, error)

// Manager drives one dialogue turn: parse, adopt, merge, dispatch. The NLU
// pipeline and handler table are shared read-only across sessions; all
// per-conversation state lives in the session store.
type Manager struct {
	cfg      *config.Config
	nlu      *nlu.Pipeline
	bank     bank.Service
	sessions *Store
	events   events.Writer
	handlers map[string]handlerFunc
}

// New builds a Manager over the configured intent catalog. Every catalog
// entry must have a registered handler.
func New(cfg *config.Config, pipeline *nlu.Pipeline, svc bank.Service, ev events.Writer) (*Manager, error) {
	m := &Manager{
		cfg:      cfg,
		nlu:      pipeline,
		bank:     svc,
		sessions: NewStore(),
		events:   ev,
	}
	builtin := map[string]handlerFunc{
		"transfer_money":     m.handleTransfer,
		"check_balance":      m.handleBalance,
		"account_info":       m.handleAccountInfo,
		"deposit_money":      m.handleDeposit,
		"get_branch_details": m.handleBranchDetails,
		"get_interest_rate":  m.handleInterestRate,
		"create_account":     m.handleCreateAccount,
		"lost_card":          m.handleLostCard,
		"apply_loan":         m.handleApplyLoan,
		"check_history":      m.handleHistory,
		"apply_card":         m.handleApplyCard,
		"close_account":      m.handleCloseAccount,
		"greet":              m.handleGreet,
		"goodbye":            m.handleGoodbye,
	}
	m.handlers = map[string]handlerFunc{}
	for _, it := range cfg.Intents {
		h, ok := builtin[it.Name]
		if !ok {
			return nil, fmt.Errorf("dialogue: no handler for intent %s", it.Name)
		}
		m.handlers[it.Name] = h
	}
	return m, nil
}

// Sessions exposes the session store, mainly for the transport layer.
func (m *Manager) Sessions() *Store { return m.sessions }

// Handle processes one utterance for the given session and returns the reply.
// Turns within a session are serialized; sessions never see each other's
// state.
func (m *Manager) Handle(ctx context.Context, sessionID, text string) (domain.Reply, error) {
	st := m.sessions.Get(sessionID)
	st.mu.Lock()
	defer st.mu.Unlock()

	res := m.nlu.Parse(text)

	// Adopt the classified intent as the pending task when it is confident
	// enough. Stateless intents (greet, goodbye) never become the pending
	// task. Adoption may pre-empt an in-progress task; its slots stay and may
	// be reused by the new intent.
	def, known := m.cfg.Intent(res.Intent)
	if known && !def.Stateless && res.Confidence >= m.cfg.NLU.AdoptThreshold {
		st.CurrentIntent = res.Intent
	}

	for k, v := range res.Entities {
		st.Slots[k] = v
	}

	reply, err := m.dispatch(ctx, st, res, def, known)
	if err != nil {
		return domain.Reply{}, err
	}
	m.logTurn(ctx, st, res, reply)
	return reply, nil
}

func (m *Manager) dispatch(ctx context.Context, st *Session, res domain.NLUResult, def config.Intent, known bool) (domain.Reply, error) {
	// Confident stateless intents cut through even mid-task, so "bye" always
	// ends the conversation and "hello" never hijacks the pending task.
	if known && def.Stateless && res.Confidence >= m.cfg.NLU.AdoptThreshold {
		return m.handlers[def.Name](ctx, st, res)
	}
	name := st.CurrentIntent
	if name == "" {
		name = res.Intent
	}
	h, ok := m.handlers[name]
	if !ok {
		return m.fallback(res), nil
	}
	return h(ctx, st, res)
}

// Reset returns the session to its initial state. Safe to call for unknown
// sessions and safe to repeat.
func (m *Manager) Reset(sessionID string) {
	m.sessions.Reset(sessionID)
}

func (m *Manager) fallback(res domain.NLUResult) domain.Reply {
	return domain.Reply{
		Text: "Sorry, I didn't catch that. You can say: 'transfer $100 from savings to checking' or 'check balance on savings'.",
		NLU:  res,
	}
}

func (m *Manager) logTurn(ctx context.Context, st *Session, res domain.NLUResult, reply domain.Reply) {
	if m.events.DB == nil {
		return
	}
	err := m.events.Append(ctx, nil, "chat.turn", st.ID, "", events.EventPayload{
		"intent":     res.Intent,
		"confidence": res.Confidence,
		"pending":    st.CurrentIntent,
		"needed":     reply.Needed,
	})
	if err != nil {
		slog.Warn("dialogue: event append failed", "session", st.ID, "error", err)
	}
}
