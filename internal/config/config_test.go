package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(cfg.Intents) != 14 {
		t.Fatalf("intent count = %d, want 14", len(cfg.Intents))
	}
	if cfg.Intents[0].Name != "transfer_money" {
		t.Fatalf("first intent = %s, want transfer_money (tie-break order)", cfg.Intents[0].Name)
	}
	if cfg.NLU.AdoptThreshold != 0.25 {
		t.Fatalf("adopt_threshold = %v, want 0.25", cfg.NLU.AdoptThreshold)
	}
	if cfg.NLU.TransferBoost != 0.3 {
		t.Fatalf("transfer_boost = %v, want 0.3", cfg.NLU.TransferBoost)
	}
}

func TestIntentLookup(t *testing.T) {
	cfg := Default()
	it, ok := cfg.Intent("transfer_money")
	if !ok {
		t.Fatal("transfer_money not found")
	}
	wantSlots := []string{"amount", "from_account", "to_account"}
	if len(it.Slots) != len(wantSlots) {
		t.Fatalf("slots = %v, want %v", it.Slots, wantSlots)
	}
	for i, s := range wantSlots {
		if it.Slots[i] != s {
			t.Fatalf("slots = %v, want %v", it.Slots, wantSlots)
		}
		if it.Prompts[s] == "" {
			t.Fatalf("missing prompt for slot %s", s)
		}
	}
	if _, ok := cfg.Intent("nope"); ok {
		t.Fatal("unknown intent reported found")
	}
}

func TestStatelessIntents(t *testing.T) {
	cfg := Default()
	for _, name := range []string{"greet", "goodbye"} {
		it, ok := cfg.Intent(name)
		if !ok {
			t.Fatalf("%s not found", name)
		}
		if !it.Stateless {
			t.Fatalf("%s should be stateless", name)
		}
	}
}

func TestFromYAMLRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"bad syntax", ": not yaml", "invalid config yaml"},
		{"no intents", "nlu:\n  account_kinds: [savings]\n", "intents is required"},
		{"bad threshold", "nlu:\n  adopt_threshold: 1.5\n  account_kinds: [savings]\nintents:\n  - name: greet\n    keywords: [hi]\n", "adopt_threshold"},
		{"no keywords", "nlu:\n  account_kinds: [savings]\nintents:\n  - name: greet\n", "no keywords"},
		{"reserved name", "nlu:\n  account_kinds: [savings]\nintents:\n  - name: fallback\n    keywords: [x]\n", "reserved"},
		{"duplicate", "nlu:\n  account_kinds: [savings]\nintents:\n  - name: greet\n    keywords: [hi]\n  - name: greet\n    keywords: [hey]\n", "duplicate"},
		{"missing prompt", "nlu:\n  account_kinds: [savings]\nintents:\n  - name: pay\n    keywords: [pay]\n    slots: [amount]\n", "missing prompt"},
		{"stateless with slots", "nlu:\n  account_kinds: [savings]\nintents:\n  - name: greet\n    keywords: [hi]\n    stateless: true\n    slots: [x]\n    prompts:\n      x: q\n", "cannot require slots"},
	}
	for _, tc := range cases {
		_, err := FromYAML([]byte(tc.yaml))
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestLoadOptionalFallsBackToDefault(t *testing.T) {
	ws := t.TempDir()
	cfg, err := LoadOptional(ws)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Intents) == 0 {
		t.Fatal("expected default intents")
	}
}

func TestLoadReadsWorkspaceFile(t *testing.T) {
	ws := t.TempDir()
	if err := os.WriteFile(filepath.Join(ws, "bankline.yml"), []byte(GenerateDefault()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(ws)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bot.Name != "bankline" {
		t.Fatalf("bot name = %s, want bankline", cfg.Bot.Name)
	}
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for missing config")
	}
}
