package moderation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vietcms/moderation/internal/models"
)

// Result is the pipeline's final decision for one piece of content.
type Result struct {
	Action              models.ModerationAction
	Labels              []string
	Confidence          float64
	Reasoning           string
	Severity            int
	ObfuscationDetected bool

	// ExtractedText carries OCR output for image jobs, TranscribedText
	// carries speech-to-text output for audio jobs.
	ExtractedText   string
	TranscribedText string
}

type modelDecision struct {
	action     models.ModerationAction
	labels     []string
	confidence float64
	probs      map[string]float64
	severity   float64
}

// Pipeline chains the normalizer, the rule checker and the model into one
// classifier. The model is optional; without it the rule layer alone
// decides.
type Pipeline struct {
	normalizer *Normalizer
	rules      *RuleChecker
	model      TextModel
	thresholds Thresholds
	logger     *slog.Logger
}

// NewPipeline builds a pipeline around the given model. A nil model
// disables Layer C.
func NewPipeline(model TextModel, thresholds Thresholds, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		normalizer: NewNormalizer(),
		rules:      NewRuleChecker(),
		model:      model,
		thresholds: thresholds,
		logger:     logger,
	}
}

// ClassifyText runs all three layers over a text and combines their
// decisions. Rule rejects win; the model covers what rules miss.
func (p *Pipeline) ClassifyText(ctx context.Context, text string) Result {
	v := p.normalizer.Normalize(text)

	if v.Metadata.HasObfuscation {
		p.logger.Info("obfuscation detected",
			"types", strings.Join(v.Metadata.ObfuscationTypes, ","))
	}

	rule := p.rules.Check(v)

	// Obfuscated or hateful rule rejects are certain enough to skip the
	// model entirely.
	if rule != nil && rule.Action == models.ActionReject {
		if v.Metadata.HasObfuscation || containsLabel(rule.Labels, LabelHate) {
			return p.resultFromRule(rule, v)
		}
	}

	ml := p.runModel(ctx, v)

	return p.combine(rule, ml, v)
}

// ClassifyBatch classifies several texts at once. Rules run per text as
// usual; the versions of every text the rules did not settle are packed
// into one PredictBatch call, so a batch costs a single forward pass.
// Results line up with the input order.
func (p *Pipeline) ClassifyBatch(ctx context.Context, texts []string) []Result {
	results := make([]Result, len(texts))

	type modelItem struct {
		idx   int
		v     Versions
		rule  *RuleResult
		first int
		count int
	}
	var items []modelItem
	var batch []string

	for i, text := range texts {
		v := p.normalizer.Normalize(text)

		if v.Metadata.HasObfuscation {
			p.logger.Info("obfuscation detected",
				"types", strings.Join(v.Metadata.ObfuscationTypes, ","))
		}

		rule := p.rules.Check(v)
		if rule != nil && rule.Action == models.ActionReject &&
			(v.Metadata.HasObfuscation || containsLabel(rule.Labels, LabelHate)) {
			results[i] = p.resultFromRule(rule, v)
			continue
		}
		if p.model == nil {
			results[i] = p.combine(rule, nil, v)
			continue
		}

		vt := versionTexts(v)
		items = append(items, modelItem{idx: i, v: v, rule: rule, first: len(batch), count: len(vt)})
		batch = append(batch, vt...)
	}

	if len(batch) == 0 {
		return results
	}

	preds, err := p.model.PredictBatch(ctx, batch)
	if err != nil || len(preds) != len(batch) {
		if err != nil {
			p.logger.Error("model prediction failed", "error", err)
		}
		preds = nil
	}
	for _, it := range items {
		var ml *modelDecision
		if preds != nil {
			ml = p.mergeDecisions(preds[it.first : it.first+it.count])
		}
		results[it.idx] = p.combine(it.rule, ml, it.v)
	}
	return results
}

func (p *Pipeline) resultFromRule(rule *RuleResult, v Versions) Result {
	return Result{
		Action:              rule.Action,
		Labels:              rule.Labels,
		Confidence:          rule.Confidence,
		Reasoning:           rule.Reasoning,
		Severity:            severityForAction(rule.Action),
		ObfuscationDetected: v.Metadata.HasObfuscation,
	}
}

// versionTexts lists the text variants the model scores: the original and,
// when normalization changed it, the normalized form.
func versionTexts(v Versions) []string {
	texts := []string{v.Original}
	if v.FullyNormalized != strings.ToLower(v.Original) {
		texts = append(texts, v.FullyNormalized)
	}
	return texts
}

// runModel scores one text's versions. A model failure degrades to
// rule-only moderation.
func (p *Pipeline) runModel(ctx context.Context, v Versions) *modelDecision {
	if p.model == nil {
		return nil
	}

	preds, err := p.model.PredictBatch(ctx, versionTexts(v))
	if err != nil {
		p.logger.Error("model prediction failed", "error", err)
		return nil
	}
	return p.mergeDecisions(preds)
}

// mergeDecisions folds the predictions for one text's versions into a
// single decision by elementwise max over label probabilities.
func (p *Pipeline) mergeDecisions(preds []Prediction) *modelDecision {
	if len(preds) == 0 {
		return nil
	}

	d1 := p.decide(preds[0])
	if len(preds) == 1 {
		return &d1
	}
	d2 := p.decide(preds[1])

	if d1.action == models.ActionReject {
		return &d1
	}
	if d2.action == models.ActionReject {
		return &d2
	}

	merged := make(map[string]float64, len(d1.probs)+len(d2.probs))
	for l, pr := range d1.probs {
		merged[l] = pr
	}
	for l, pr := range d2.probs {
		if pr > merged[l] {
			merged[l] = pr
		}
	}
	severity := d1.severity
	if d2.severity > severity {
		severity = d2.severity
	}

	d := p.decide(Prediction{Probabilities: merged, SeverityScore: severity})
	if d2.confidence > d1.confidence {
		d.confidence = d2.confidence
	} else {
		d.confidence = d1.confidence
	}
	return &d
}

// decide turns raw label probabilities into an action. Any harmful label
// over its threshold triggers review; strong signals reject outright.
func (p *Pipeline) decide(pred Prediction) modelDecision {
	var triggered []string
	for _, label := range CoreLabels {
		if pred.Probabilities[label] >= p.thresholds.For(label) {
			triggered = append(triggered, label)
		}
	}

	maxHarmful := 0.0
	for _, label := range triggered {
		if harmfulLabels[label] && pred.Probabilities[label] > maxHarmful {
			maxHarmful = pred.Probabilities[label]
		}
	}

	d := modelDecision{
		labels:   triggered,
		probs:    pred.Probabilities,
		severity: pred.SeverityScore,
	}
	switch {
	case maxHarmful >= p.thresholds.Reject:
		d.action = models.ActionReject
		d.confidence = maxHarmful
	case maxHarmful > 0:
		d.action = models.ActionReview
		d.confidence = maxHarmful
	default:
		d.action = models.ActionAllowed
		d.confidence = 0.9
	}
	return d
}

func (p *Pipeline) combine(rule *RuleResult, ml *modelDecision, v Versions) Result {
	obf := v.Metadata.HasObfuscation

	if rule == nil && ml == nil {
		return Result{
			Action:              models.ActionAllowed,
			Labels:              []string{},
			Confidence:          0.9,
			Reasoning:           "Clean content, no violation",
			ObfuscationDetected: obf,
		}
	}

	if rule != nil && rule.Action == models.ActionReject {
		r := p.resultFromRule(rule, v)
		// Model agreement boosts confidence.
		if ml != nil && ml.action != models.ActionAllowed {
			r.Confidence = min099(r.Confidence + 0.05)
		}
		return r
	}

	if ml != nil && ml.action == models.ActionReject {
		return p.resultFromModel(ml, obf)
	}

	if rule != nil && rule.Action == models.ActionReview {
		return p.resultFromRule(rule, v)
	}

	if ml != nil && ml.action == models.ActionReview {
		return p.resultFromModel(ml, obf)
	}

	var labels []string
	if ml != nil {
		labels = ml.labels
	}
	if labels == nil {
		labels = []string{}
	}
	return Result{
		Action:              models.ActionAllowed,
		Labels:              labels,
		Confidence:          0.85,
		Reasoning:           "No harmful content detected",
		ObfuscationDetected: obf,
	}
}

func (p *Pipeline) resultFromModel(ml *modelDecision, obf bool) Result {
	return Result{
		Action:              ml.action,
		Labels:              ml.labels,
		Confidence:          ml.confidence,
		Reasoning:           "Model detected: " + strings.Join(ml.labels, ", "),
		Severity:            severityForAction(ml.action),
		ObfuscationDetected: obf,
	}
}

func severityForAction(a models.ModerationAction) int {
	switch a {
	case models.ActionReject:
		return 2
	case models.ActionReview:
		return 1
	default:
		return 0
	}
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

func min099(v float64) float64 {
	if v > 0.99 {
		return 0.99
	}
	return v
}
