package review

import (
	"fmt"
	"strings"
)

// PatternMatch is one regex or keyword hit recorded during pre-screening.
type PatternMatch struct {
	RuleID   string `json:"rule_id"`
	Category string `json:"category"`
	Offset   int    `json:"offset"`
	Text     string `json:"text"`
}

// PreScan is the output of the risk pattern scanner.
type PreScan struct {
	NeedsFurtherAnalysis bool           `json:"needs_further_analysis"`
	MatchedPatterns      []PatternMatch `json:"matched_patterns"`
	KeywordScore         int            `json:"keyword_score"`
	PatternScore         int            `json:"pattern_score"`
	WeightScore          int            `json:"weight_score"`
	FinalScore           int            `json:"final_score"`
	RiskTier             RiskTier       `json:"risk_tier"`
	SkipReason           string         `json:"skip_reason,omitempty"`
}

// Scan scores text against the static library. aiConfidence is an optional
// externally supplied score in [0,1]; pass a negative value when absent.
// The function is pure: identical inputs always produce identical output.
func (l *RuleLibrary) Scan(text string, aiConfidence float64) PreScan {
	out := PreScan{RiskTier: TierNone}
	lower := strings.ToLower(text)

	// Stage 1: quick filter. Too short, or no policy-context vocabulary at
	// all, means the document cannot be a reviewable measure.
	if len(strings.TrimSpace(text)) < MinDocumentChars {
		out.SkipReason = SkipInputTooShort
		return out
	}
	if !l.hasPolicyIndicator(lower) {
		out.SkipReason = SkipNoPolicyIndicators
		return out
	}

	// Stage 2: pattern matching across the compiled registry, plus literal
	// keyword triggers.
	for _, r := range l.rules {
		for _, re := range r.matchers {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				out.MatchedPatterns = append(out.MatchedPatterns, PatternMatch{
					RuleID:   r.ID,
					Category: r.Category,
					Offset:   loc[0],
					Text:     text[loc[0]:loc[1]],
				})
			}
		}
		for _, kw := range r.Keywords {
			idx := strings.Index(lower, strings.ToLower(kw))
			if idx < 0 {
				continue
			}
			out.MatchedPatterns = append(out.MatchedPatterns, PatternMatch{
				RuleID:   r.ID,
				Category: r.Category,
				Offset:   idx,
				Text:     text[idx : idx+len(kw)],
			})
		}
	}

	// Stage 3: keyword weighting counts every occurrence, not just presence.
	for _, tier := range l.tiers {
		for _, term := range tier.Terms {
			if c := strings.Count(lower, strings.ToLower(term)); c > 0 {
				out.KeywordScore += c * tier.Weight
			}
		}
	}

	// Stage 4: capped combination.
	out.PatternScore = min(len(out.MatchedPatterns)*5, PatternScoreCap)
	out.WeightScore = min(out.KeywordScore*2, KeywordScoreCap)
	out.FinalScore = out.PatternScore + out.WeightScore
	aiHigh := false
	if aiConfidence >= 0 {
		if aiConfidence > 1 {
			aiConfidence = 1
		}
		out.FinalScore += int(aiConfidence * AIConfidenceCap)
		aiHigh = aiConfidence >= 0.8
	}

	switch {
	case out.FinalScore >= TierHighThreshold:
		out.RiskTier = TierHigh
	case out.FinalScore >= TierMedThreshold:
		out.RiskTier = TierMedium
	case out.FinalScore >= TierLowThreshold:
		out.RiskTier = TierLow
	default:
		out.RiskTier = TierNone
	}
	out.NeedsFurtherAnalysis = out.RiskTier != TierNone || aiHigh
	return out
}

func (l *RuleLibrary) hasPolicyIndicator(lower string) bool {
	for _, ind := range l.indicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

// PatternIssues converts pre-screening matches into provisional issues, one
// per rule that matched, quoting the first matched excerpt. Used directly
// when the reasoning step is unavailable and as corroborating candidates
// otherwise.
func (l *RuleLibrary) PatternIssues(scan PreScan) []Issue {
	byRule := map[string]*Issue{}
	order := []string{}
	for _, m := range scan.MatchedPatterns {
		// First hit per rule wins the quote.
		if _, ok := byRule[m.RuleID]; ok {
			continue
		}
		rule := l.RuleByID(m.RuleID)
		if rule == nil {
			continue
		}
		byRule[m.RuleID] = &Issue{
			Title:       "Suspected " + rule.Category,
			Description: fmt.Sprintf("Pattern pre-screening matched the %s rule near offset %d.", rule.Category, m.Offset),
			Quote:       m.Text,
			Articles:    append([]int(nil), rule.Articles...),
			Severity:    rule.Severity,
			Suggestion:  rule.Suggestion,
			Provenance:  ProvenancePattern,
		}
		order = append(order, m.RuleID)
	}
	out := make([]Issue, 0, len(order))
	for _, id := range order {
		out = append(out, *byRule[id])
	}
	return out
}

