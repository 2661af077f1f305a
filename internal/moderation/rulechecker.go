package moderation

import (
	"strings"

	"github.com/vietcms/moderation/internal/models"
)

// Finding is one rule hit.
type Finding struct {
	Type         string
	Key          string
	Matched      string
	Severity     ruleSeverity
	Labels       []string
	FromStripped bool
}

// RuleResult is Layer B's decision. A nil result means no rule fired.
type RuleResult struct {
	Action         models.ModerationAction
	Labels         []string
	Confidence     float64
	Reasoning      string
	Findings       []Finding
	HasObfuscation bool
	Escalated      bool
}

// MaxSeverity returns the severity level {1,2} of the worst finding.
func (r *RuleResult) MaxSeverity() int {
	max := 0
	for _, f := range r.Findings {
		if int(f.Severity) > max {
			max = int(f.Severity)
		}
	}
	return max
}

// RuleChecker is the rule/lexicon layer. Profanity families run over the
// normalized versions; harassment and hate families run over the original
// text so pronouns and phrase context are intact.
type RuleChecker struct{}

// NewRuleChecker returns a rule checker. All patterns are compiled at
// package init.
func NewRuleChecker() *RuleChecker {
	return &RuleChecker{}
}

// Check evaluates all rule families against the text versions. It returns
// nil when no rule fires.
func (c *RuleChecker) Check(v Versions) *RuleResult {
	var findings []Finding

	findings = append(findings, c.checkProfanity(v.FullyNormalized, v.NoDiacritics)...)
	findings = append(findings, c.checkHarassment(v.Original)...)
	findings = append(findings, c.checkHate(v.Original)...)

	// Benign insult words revealed only by undoing obfuscation signal an
	// intentional bypass attempt.
	if v.Metadata.HasObfuscation {
		origLower := strings.ToLower(v.Original)
		for _, word := range obfuscationBypassWords {
			p := obfuscationBypassPatterns[word]
			if _, ok := p.Find(v.FullyNormalized); !ok {
				continue
			}
			if _, ok := p.Find(origLower); ok {
				continue
			}
			findings = append(findings, Finding{
				Type:     "obfuscated_insult",
				Key:      "obfuscated_insults",
				Matched:  word,
				Severity: severityModerate,
				Labels:   []string{LabelInsult, LabelObfuscationBypass},
			})
			break
		}
	}

	if len(findings) == 0 {
		return nil
	}

	hasSevere, hasHate, hasHarassment, hasBodyShaming := false, false, false, false
	for _, f := range findings {
		if f.Severity == severitySevere {
			hasSevere = true
		}
		switch f.Type {
		case "hate_speech":
			hasHate = true
		case "harassment":
			hasHarassment = true
		}
		for _, l := range f.Labels {
			if l == LabelBodyShaming {
				hasBodyShaming = true
			}
		}
	}

	escalated := false
	if hasBodyShaming || hasHarassment {
		origLower := strings.ToLower(v.Original)
		for _, expr := range escalationExpressions {
			if strings.Contains(origLower, expr) {
				escalated = true
				break
			}
		}
	}

	action := models.ActionReview
	confidence := 0.80
	if hasHate || hasSevere || escalated {
		action = models.ActionReject
		confidence = 0.95
	}

	return &RuleResult{
		Action:         action,
		Labels:         collectLabels(findings),
		Confidence:     confidence,
		Reasoning:      buildReasoning(findings, v.Metadata, escalated),
		Findings:       findings,
		HasObfuscation: v.Metadata.HasObfuscation,
		Escalated:      escalated,
	}
}

func (c *RuleChecker) checkProfanity(normalized, noDiacritics string) []Finding {
	var findings []Finding
	for i := range profanityFamilies {
		fam := &profanityFamilies[i]

		if len(fam.safeContexts) > 0 && inSafeContext(normalized, fam.safeContexts) {
			continue
		}

		matched := false
		for _, p := range fam.patterns {
			if m, ok := p.Find(normalized); ok {
				findings = append(findings, Finding{
					Type:     "profanity",
					Key:      fam.key,
					Matched:  m,
					Severity: fam.severity,
					Labels:   fam.labels,
				})
				matched = true
				break
			}
		}

		// Phrase families like "ngu" must match a full pattern; the
		// stripped fallback would flag the bare word.
		if matched || fam.contextRequired || fam.stripped == nil {
			continue
		}
		if m, ok := fam.stripped.Find(noDiacritics); ok {
			if !inSafeContext(normalized, fam.safeContexts) {
				findings = append(findings, Finding{
					Type:         "profanity",
					Key:          fam.key,
					Matched:      m,
					Severity:     fam.severity,
					Labels:       fam.labels,
					FromStripped: true,
				})
			}
		}
	}
	return findings
}

func (c *RuleChecker) checkHarassment(original string) []Finding {
	var findings []Finding
	lower := strings.ToLower(original)
	hasTarget := hasTargetPronoun(lower)

	for i := range harassmentFamilies {
		fam := &harassmentFamilies[i]
		if fam.requiresTarget && !hasTarget {
			continue
		}
		for _, p := range fam.patterns {
			if m, ok := p.Find(lower); ok {
				findings = append(findings, Finding{
					Type:     "harassment",
					Key:      fam.key,
					Matched:  m,
					Severity: fam.severity,
					Labels:   fam.labels,
				})
				break
			}
		}
	}
	return findings
}

func (c *RuleChecker) checkHate(original string) []Finding {
	var findings []Finding
	lower := strings.ToLower(original)

	for i := range hateFamilies {
		fam := &hateFamilies[i]
		for _, p := range fam.patterns {
			if m, ok := p.Find(lower); ok {
				findings = append(findings, Finding{
					Type:     "hate_speech",
					Key:      fam.key,
					Matched:  m,
					Severity: fam.severity,
					Labels:   fam.labels,
				})
				break
			}
		}
	}
	return findings
}

func hasTargetPronoun(lower string) bool {
	for _, p := range targetPronouns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func inSafeContext(text string, safeContexts []string) bool {
	for _, ctx := range safeContexts {
		if strings.Contains(text, ctx) {
			return true
		}
	}
	return false
}

// collectLabels dedupes labels preserving first-seen order so identical
// inputs always produce identical label lists.
func collectLabels(findings []Finding) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, f := range findings {
		for _, l := range f.Labels {
			if !seen[l] {
				seen[l] = true
				labels = append(labels, l)
			}
		}
	}
	return labels
}

func buildReasoning(findings []Finding, meta NormMetadata, escalated bool) string {
	types := make(map[string]bool)
	for _, f := range findings {
		types[f.Type] = true
	}

	var parts []string
	if types["hate_speech"] {
		parts = append(parts, "🚫 HATE SPEECH")
	}
	if types["harassment"] || types["obfuscated_insult"] {
		if escalated {
			parts = append(parts, "🚫 SEVERE HARASSMENT")
		} else {
			parts = append(parts, "⚠️ HARASSMENT")
		}
	}
	if types["profanity"] {
		parts = append(parts, "⚠️ PROFANITY")
	}

	matched := make([]string, 0, 3)
	for _, f := range findings {
		if len(matched) == 3 {
			break
		}
		matched = append(matched, f.Matched)
	}

	reasoning := strings.Join(parts, ", ") + ": " + strings.Join(matched, ", ")
	if meta.HasObfuscation {
		reasoning += " (obfuscation: " + strings.Join(meta.ObfuscationTypes, ", ") + ")"
	}
	return reasoning
}
