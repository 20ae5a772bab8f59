package domain

// IntentFallback is the classifier result when no catalog intent scores above zero.
const IntentFallback = "fallback"

// NLUResult is the output of one pipeline parse. It is produced fresh per
// utterance and never mutated afterwards.
type NLUResult struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities"`
}

// Reply is what one dialogue turn returns to the transport layer.
// Needed is present only when the active intent is still missing slots,
// listed in required order.
type Reply struct {
	Text   string    `json:"text"`
	NLU    NLUResult `json:"nlu"`
	Needed []string  `json:"needed,omitempty"`
}

type Account struct {
	ID      string  `json:"id"`
	Owner   string  `json:"owner"`
	Kind    string  `json:"kind"`
	Balance float64 `json:"balance"`
}

// Masked returns the customer-facing reference for an account, e.g. "savings(****1234)".
func (a Account) Masked() string {
	return a.Kind + "(****" + a.ID + ")"
}

type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	CreatedAt    string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID        int64  `json:"id"`
	TS        string `json:"ts" format:"date-time"`
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	Payload   string `json:"payload_json"`
}
