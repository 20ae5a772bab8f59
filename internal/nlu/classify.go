package nlu

import (
	"math"
	"strings"

	"bankline/internal/config"
	"bankline/internal/domain"
)

// Classifier scores an utterance against the intent catalog by keyword
// overlap. Each intent scores hits/len(keywords), so an intent whose whole
// keyword profile is relevant beats one with a few absolute hits. Ties keep
// the earliest catalog entry.
type Classifier struct {
	intents []config.Intent
	boost   float64
}

// NewClassifier builds a classifier over the catalog in declaration order.
func NewClassifier(cfg *config.Config) *Classifier {
	return &Classifier{intents: cfg.Intents, boost: cfg.NLU.TransferBoost}
}

// Classify returns the best intent name and its confidence in [0,1], rounded
// to two decimals. ents must come from the same extractor run whose result is
// returned to the caller, so the transfer boost and the reported entities
// agree. When nothing scores above zero the result is ("fallback", 0).
func (c *Classifier) Classify(text string, ents map[string]any) (string, float64) {
	low := strings.ToLower(strings.TrimSpace(text))
	best := domain.IntentFallback
	bestScore := 0.0
	for _, it := range c.intents {
		if s := scoreKeywords(low, it.Keywords); s > bestScore {
			best, bestScore = it.Name, s
		}
	}
	// A transfer with amount and both directions already extracted is almost
	// certainly a transfer even when few keywords hit.
	if best == "transfer_money" && hasAll(ents, "amount", "from_account", "to_account") {
		bestScore = math.Min(1.0, bestScore+c.boost)
	}
	return best, math.Round(bestScore*100) / 100
}

func scoreKeywords(low string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	hits := 0
	for _, k := range keywords {
		if strings.Contains(low, k) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

func hasAll(ents map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := ents[k]; !ok {
			return false
		}
	}
	return true
}
