package nlu

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"bankline/internal/config"
)

var (
	amountRE    = regexp.MustCompile(`(?:\$\s*)?(\d+(?:\.\d{1,2})?)`)
	accountIDRE = regexp.MustCompile(`\b(?:acct|account)\s*(\d{3,12})\b|\b(\d{4,12})\b`)
	fromRE      = regexp.MustCompile(`from\s+([a-z]+\s*\d*)`)
	toRE        = regexp.MustCompile(`to\s+([a-z]+\s*\d*)`)
	dateRE      = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}(?:/\d{2,4})?)\b`)
)

// Extractor pulls typed entity values out of raw text using regexes and the
// configured vocabularies. It is deterministic and side-effect free.
type Extractor struct {
	kinds       []string
	cards       []string
	loans       []string
	days        []string
	accountType *regexp.Regexp
}

// NewExtractor compiles the entity rules from config.
func NewExtractor(cfg *config.Config) *Extractor {
	quoted := make([]string, 0, len(cfg.NLU.AccountTypes))
	for _, t := range cfg.NLU.AccountTypes {
		quoted = append(quoted, regexp.QuoteMeta(t))
	}
	return &Extractor{
		kinds:       cfg.NLU.AccountKinds,
		cards:       cfg.NLU.CardKinds,
		loans:       cfg.NLU.LoanKinds,
		days:        cfg.NLU.DayWords,
		accountType: regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\s+account\b`),
	}
}

// Extract returns the entity mapping for one utterance. Amount is a float64,
// everything else a string. Only the first number in the text becomes the
// amount; utterances with several numbers are not disambiguated.
func (e *Extractor) Extract(text string) map[string]any {
	low := strings.ToLower(text)
	ents := map[string]any{}

	if m := amountRE.FindStringSubmatch(low); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			ents["amount"] = v
		}
	}

	kindsFound := vocabHits(low, e.kinds)

	var idsFound []string
	for _, m := range accountIDRE.FindAllStringSubmatch(low, -1) {
		for _, g := range m[1:] {
			if g != "" {
				idsFound = append(idsFound, g)
				break
			}
		}
	}

	// Preposition heuristics: "from <token>" / "to <token>" where the token is
	// a kind word optionally followed by an id fragment. The kind wins over
	// the id when both are present.
	if m := fromRE.FindStringSubmatch(low); m != nil {
		if v := e.normalizeAccountToken(m[1]); v != "" {
			ents["from_account"] = v
		}
	}
	if m := toRE.FindStringSubmatch(low); m != nil {
		if v := e.normalizeAccountToken(m[1]); v != "" {
			ents["to_account"] = v
		}
	}

	// Positional fallbacks for anything the prepositions did not capture.
	if _, ok := ents["from_account"]; !ok && len(kindsFound) > 0 {
		ents["from_account"] = kindsFound[0]
	}
	if _, ok := ents["to_account"]; !ok && len(kindsFound) > 1 {
		ents["to_account"] = kindsFound[1]
	}
	if _, ok := ents["to_account"]; !ok && len(idsFound) > 0 {
		ents["to_account"] = idsFound[len(idsFound)-1]
	}

	// Generic account reference for single-account intents. A kind word may
	// feed both this and a directional slot; that overlap is intentional.
	if _, ok := ents["account"]; !ok {
		if len(kindsFound) > 0 {
			ents["account"] = kindsFound[0]
		} else if len(idsFound) > 0 {
			ents["account"] = idsFound[0]
		}
	}

	if strings.Contains(low, "card") {
		if hits := vocabHits(low, e.cards); len(hits) > 0 {
			ents["card_type"] = hits[0] + " card"
		}
	}
	if strings.Contains(low, "loan") {
		if hits := vocabHits(low, e.loans); len(hits) > 0 {
			ents["loan_type"] = hits[0] + " loan"
		}
	}
	if m := e.accountType.FindStringSubmatch(low); m != nil {
		ents["account_type"] = m[1] + " account"
	}
	if m := dateRE.FindStringSubmatch(low); m != nil {
		ents["date"] = m[1]
	}
	if hits := vocabHits(low, e.days); len(hits) > 0 {
		ents["day"] = hits[0]
	}

	return ents
}

// vocabHits returns the vocabulary words contained in text, ordered by first
// occurrence. Each word appears at most once.
func vocabHits(text string, vocab []string) []string {
	type hit struct {
		word string
		pos  int
	}
	var hits []hit
	for _, w := range vocab {
		if i := strings.Index(text, w); i >= 0 {
			hits = append(hits, hit{word: w, pos: i})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	words := make([]string, 0, len(hits))
	for _, h := range hits {
		words = append(words, h.word)
	}
	return words
}

// normalizeAccountToken reduces a matched "from"/"to" token to a kind word if
// one is present, else a bare id, else "".
func (e *Extractor) normalizeAccountToken(tok string) string {
	var kind, id string
	for _, p := range strings.Fields(strings.TrimSpace(tok)) {
		switch {
		case contains(e.kinds, p):
			kind = p
		case isDigits(p):
			id = p
		}
	}
	if kind != "" {
		return kind
	}
	return id
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
