// Package moderation implements the three-layer Vietnamese text classifier:
// Layer A normalizes text and undoes common obfuscation, Layer B runs
// rule/lexicon families over the normalized versions, and Layer C scores the
// text with a multi-label model. The pipeline combines the layers into one
// (action, labels, confidence, reasoning) decision.
package moderation

import (
	"context"

	"github.com/vietcms/moderation/internal/models"
)

// Core label taxonomy scored by the multi-label model.
const (
	LabelToxicity   = "toxicity"
	LabelHate       = "hate"
	LabelHarassment = "harassment"
	LabelThreat     = "threat"
	LabelSexual     = "sexual"
	LabelSpam       = "spam"
	LabelPII        = "pii"
)

// Rule-layer extension labels.
const (
	LabelProfanity         = "profanity"
	LabelRacism            = "racism"
	LabelLGBTQ             = "lgbtq_discrimination"
	LabelXenophobia        = "xenophobia"
	LabelBodyShaming       = "body_shaming"
	LabelInsult            = "insult"
	LabelObfuscationBypass = "obfuscation_bypass"
)

// CoreLabels is the model head ordering.
var CoreLabels = []string{
	LabelToxicity, LabelHate, LabelHarassment, LabelThreat,
	LabelSexual, LabelSpam, LabelPII,
}

// harmfulLabels drive the reject/review decision in Layer C.
var harmfulLabels = map[string]bool{
	LabelToxicity:   true,
	LabelHate:       true,
	LabelHarassment: true,
	LabelThreat:     true,
	LabelSexual:     true,
	LabelPII:        true,
}

// ActionForSeverity maps a severity level {0,1,2} to a moderation action.
func ActionForSeverity(severity int) models.ModerationAction {
	switch {
	case severity >= 2:
		return models.ActionReject
	case severity == 1:
		return models.ActionReview
	default:
		return models.ActionAllowed
	}
}

// Prediction is one model output for one input text.
type Prediction struct {
	// Probabilities holds an independent sigmoid probability per core label.
	Probabilities map[string]float64
	// SeverityScore is a continuous score in [0,2].
	SeverityScore float64
	// Spans optionally marks the byte ranges that caused the labels.
	// The default model never populates it.
	Spans [][2]int
}

// TextModel is the Layer C capability. Implementations may wrap a served
// transformer or an in-process scorer; the pipeline only depends on this
// interface.
type TextModel interface {
	PredictBatch(ctx context.Context, texts []string) ([]Prediction, error)
}

// Thresholds holds the per-label firing thresholds for Layer C.
type Thresholds struct {
	// Default applies to any label without an override.
	Default float64
	// PerLabel overrides the default for specific labels.
	PerLabel map[string]float64
	// Reject is the harmful-probability level at which Layer C rejects
	// outright instead of queueing for review.
	Reject float64
}

// DefaultThresholds returns the production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Default: 0.5,
		PerLabel: map[string]float64{
			LabelHate:      0.5,
			LabelProfanity: 0.7,
		},
		Reject: 0.7,
	}
}

// For returns the firing threshold for a label.
func (t Thresholds) For(label string) float64 {
	if v, ok := t.PerLabel[label]; ok {
		return v
	}
	if t.Default > 0 {
		return t.Default
	}
	return 0.5
}
