package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models bankline.yml. The whole NLU behavior is data: the intent
// catalog (keyword profiles, required slots, prompts) and the entity
// vocabularies live here, not in code. Catalog order is significant: the
// classifier breaks score ties in declaration order.
type Config struct {
	Bot struct {
		Name string `yaml:"name"`
	} `yaml:"bot"`
	NLU     NLU      `yaml:"nlu"`
	Intents []Intent `yaml:"intents"`
}

// NLU holds thresholds and entity extraction vocabularies.
type NLU struct {
	// AdoptThreshold is the minimum confidence for the dialogue manager to
	// adopt a classified intent as the pending task.
	AdoptThreshold float64 `yaml:"adopt_threshold"`
	// TransferBoost is added to the transfer intent score when amount,
	// from_account and to_account were all extracted from the same utterance.
	TransferBoost float64  `yaml:"transfer_boost"`
	AccountKinds  []string `yaml:"account_kinds"`
	AccountTypes  []string `yaml:"account_types"`
	CardKinds     []string `yaml:"card_kinds"`
	LoanKinds     []string `yaml:"loan_kinds"`
	DayWords      []string `yaml:"day_words"`
}

// Intent is one catalog entry. Slots lists required slots in prompting order;
// Prompts maps each required slot to the question asked when it is missing.
// Stateless intents (greet, goodbye) are never adopted as a pending task.
type Intent struct {
	Name      string            `yaml:"name"`
	Keywords  []string          `yaml:"keywords"`
	Slots     []string          `yaml:"slots,omitempty"`
	Prompts   map[string]string `yaml:"prompts,omitempty"`
	Stateless bool              `yaml:"stateless,omitempty"`
}

// Intent returns the catalog entry with the given name.
func (c *Config) Intent(name string) (Intent, bool) {
	for _, it := range c.Intents {
		if it.Name == name {
			return it, true
		}
	}
	return Intent{}, false
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "bankline.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run with defaults or write one with bl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the built-in defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := FromYAML([]byte(defaultTemplate))
	if err != nil {
		panic(fmt.Sprintf("config: default template invalid: %v", err))
	}
	return cfg
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.NLU.AdoptThreshold < 0 || c.NLU.AdoptThreshold > 1 {
		return fmt.Errorf("config.nlu.adopt_threshold must be within [0,1]")
	}
	if c.NLU.TransferBoost < 0 || c.NLU.TransferBoost > 1 {
		return fmt.Errorf("config.nlu.transfer_boost must be within [0,1]")
	}
	if len(c.NLU.AccountKinds) == 0 {
		return fmt.Errorf("config.nlu.account_kinds is required")
	}
	if len(c.Intents) == 0 {
		return fmt.Errorf("config.intents is required")
	}
	seen := map[string]bool{}
	for _, it := range c.Intents {
		if it.Name == "" {
			return fmt.Errorf("config.intents contains an entry without a name")
		}
		if it.Name == "fallback" {
			return fmt.Errorf("intent name fallback is reserved")
		}
		if seen[it.Name] {
			return fmt.Errorf("duplicate intent %s", it.Name)
		}
		seen[it.Name] = true
		if len(it.Keywords) == 0 {
			return fmt.Errorf("intent %s has no keywords", it.Name)
		}
		for _, slot := range it.Slots {
			if slot == "" {
				return fmt.Errorf("intent %s has an empty slot name", it.Name)
			}
			if _, ok := it.Prompts[slot]; !ok {
				return fmt.Errorf("intent %s missing prompt for slot %s", it.Name, slot)
			}
		}
		if it.Stateless && len(it.Slots) > 0 {
			return fmt.Errorf("stateless intent %s cannot require slots", it.Name)
		}
	}
	return nil
}

// The first six entries mirror the launch catalog and must stay first: score
// ties resolve to the earliest entry.
const defaultTemplate = `bot:
  name: bankline

nlu:
  adopt_threshold: 0.25
  transfer_boost: 0.3
  account_kinds: [savings, checking, current, credit, loan]
  account_types: [savings, checking, current, joint, salary]
  card_kinds: [debit, credit, atm, visa, prepaid]
  loan_kinds: [home, personal, car, education, business]
  day_words: [today, yesterday, tomorrow, monday, tuesday, wednesday, thursday, friday, saturday, sunday]

intents:
  - name: transfer_money
    keywords: [transfer, send, move, pay, to, from, money]
    slots: [amount, from_account, to_account]
    prompts:
      amount: "How much would you like to transfer?"
      from_account: "Which account are you sending from (savings/checking)?"
      to_account: "Which account are you sending to (kind or last 4 digits)?"

  - name: check_balance
    keywords: [balance, how much, left, available]
    slots: [account]
    prompts:
      account: "Which account? (savings/checking or last 4 digits)"

  - name: account_info
    keywords: [account, details, info, number, id]
    slots: [account]
    prompts:
      account: "Which account do you want info on? (savings/checking or last 4 digits)"

  - name: deposit_money
    keywords: [deposit, add, credit, put, into]
    slots: [amount, account]
    prompts:
      amount: "How much would you like to deposit?"
      account: "Which account should I deposit into? (savings/checking)"

  - name: greet
    keywords: [hello, hi, hey]
    stateless: true

  - name: goodbye
    keywords: [bye, goodbye, see you]
    stateless: true

  - name: get_branch_details
    keywords: [branch, location, address, nearest]

  - name: get_interest_rate
    keywords: [interest, rate, apr]

  - name: create_account
    keywords: [open, create, new account]
    slots: [account_type]
    prompts:
      account_type: "What type of account would you like to open? (savings, current, joint, etc.)"

  - name: lost_card
    keywords: [lost, stolen, block]
    slots: [card_type]
    prompts:
      card_type: "Which card did you lose? (debit, credit, ATM, etc.)"

  - name: apply_loan
    keywords: [loan, apply, borrow]
    slots: [loan_type]
    prompts:
      loan_type: "Which type of loan do you want to apply for? (home, personal, car, etc.)"

  - name: check_history
    keywords: [history, transactions, statement, show]

  - name: apply_card
    keywords: [card, apply, need]
    slots: [card_type]
    prompts:
      card_type: "Which card would you like to apply for? (debit, credit, visa, etc.)"

  - name: close_account
    keywords: [close, terminate]
    slots: [account_type]
    prompts:
      account_type: "Which account do you want to close? (savings, current, etc.)"
`
