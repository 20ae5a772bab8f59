// Package nlu is the rule-based natural language front end: a keyword-overlap
// intent classifier and a regex-driven entity extractor, both compiled from
// the declarative catalog in config. Pipelines are stateless and safe to
// share across sessions.
package nlu

import (
	"bankline/internal/config"
	"bankline/internal/domain"
)

// Pipeline composes the classifier and the extractor into one parse call.
type Pipeline struct {
	extractor  *Extractor
	classifier *Classifier
}

func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		extractor:  NewExtractor(cfg),
		classifier: NewClassifier(cfg),
	}
}

// Parse runs entity extraction once and feeds the same result into the
// classifier's confidence adjustment and the returned NLUResult.
func (p *Pipeline) Parse(text string) domain.NLUResult {
	ents := p.extractor.Extract(text)
	intent, confidence := p.classifier.Classify(text, ents)
	return domain.NLUResult{
		Intent:     intent,
		Confidence: confidence,
		Entities:   ents,
	}
}
