package moderation

import (
	"context"
	"strings"
)

// LexiconModel is the in-process TextModel. It scores texts against the
// compiled lexicon categories and emits per-label probabilities shaped like
// the served model's output, so swapping in a remote model changes nothing
// downstream.
type LexiconModel struct {
	categories []compiledCategory
}

// NewLexiconModel compiles the lexicon.
func NewLexiconModel() *LexiconModel {
	return &LexiconModel{categories: compileLexicon()}
}

// PredictBatch scores each text independently.
func (m *LexiconModel) PredictBatch(ctx context.Context, texts []string) ([]Prediction, error) {
	out := make([]Prediction, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		out[i] = m.predict(text)
	}
	return out, nil
}

func (m *LexiconModel) predict(text string) Prediction {
	lower := strings.ToLower(text)
	noDia := StripDiacritics(lower)

	probs := make(map[string]float64, len(CoreLabels))
	severity := 0.0

	for _, cat := range m.categories {
		hits := 0
		for _, p := range cat.patterns {
			if _, ok := p.Find(lower); ok {
				hits++
				continue
			}
			if _, ok := p.Find(noDia); ok {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		// Extra matches in the same category nudge the probability up.
		prob := cat.base + 0.05*float64(hits-1)
		if prob > 0.95 {
			prob = 0.95
		}
		if prob > probs[cat.label] {
			probs[cat.label] = prob
		}
		if cat.severity > severity {
			severity = cat.severity
		}
	}

	if piiPhoneRe.MatchString(lower) {
		if probs[LabelPII] < 0.85 {
			probs[LabelPII] = 0.85
		}
		if severity < 2 {
			severity = 2
		}
	} else if piiEmailRe.MatchString(lower) {
		if probs[LabelPII] < 0.6 {
			probs[LabelPII] = 0.6
		}
		if severity < 1 {
			severity = 1
		}
	}

	return Prediction{Probabilities: probs, SeverityScore: severity}
}
