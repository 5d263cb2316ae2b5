package review

import (
	"sort"
	"strings"
)

// citationPriority ranks catalogue articles by specificity; a lower number is
// a more specific clause and wins representative selection when duplicates
// collapse. Article 19 is the catch-all and always loses.
var citationPriority = map[int]int{
	10: 1, 14: 1,
	8: 2, 13: 2, 18: 2,
	9: 3, 11: 3, 12: 3,
	15: 4, 16: 4, 17: 4,
	19: 9,
}

// keywordCategory is a named soft-grouping rule: issues whose text intersects
// the same category vocabulary belong to one finding even when their excerpts
// differ.
type keywordCategory struct {
	Name     string
	Terms    []string
	Articles []int
}

var keywordCategories = []keywordCategory{
	{Name: "tax-linked rewards", Terms: []string{"tax contribution", "tax rebate", "fiscal reward", "reward tied"}, Articles: []int{14, 13}},
	{Name: "designated dealing", Terms: []string{"designated supplier", "designated agency", "exclusive franchise", "shall purchase from"}, Articles: []int{10}},
	{Name: "local registration", Terms: []string{"locally registered", "local registration", "branch registered", "incorporated in"}, Articles: []int{11, 12}},
	{Name: "entry conditions", Terms: []string{"entry barrier", "additional approval", "market access", "suitability confirmation"}, Articles: []int{8}},
	{Name: "movement barriers", Terms: []string{"other provinces", "other regions", "non-local goods", "inspection fee"}, Articles: []int{9}},
	{Name: "price coordination", Terms: []string{"self-discipline price", "coordinate prices", "price alignment"}, Articles: []int{18, 17}},
}

// ConsolidateConfig carries the calibratable thresholds. Zero values select
// the package defaults.
type ConsolidateConfig struct {
	StrictOverlap float64
	SoftOverlap   float64
}

func (c ConsolidateConfig) withDefaults() ConsolidateConfig {
	if c.StrictOverlap <= 0 {
		c.StrictOverlap = StrictOverlapThreshold
	}
	if c.SoftOverlap <= 0 {
		c.SoftOverlap = SoftOverlapThreshold
	}
	return c
}

// Consolidate deduplicates and merges issue candidates from any provenance.
// Output ids are contiguous from 1, preserving original relative order.
// Never increases the issue count.
func Consolidate(issues []Issue, cfg ConsolidateConfig) []Issue {
	if len(issues) <= 1 {
		return renumber(issues)
	}
	cfg = cfg.withDefaults()

	work := make([]Issue, len(issues))
	copy(work, issues)
	processed := make([]bool, len(work))
	out := make([]Issue, 0, len(work))

	for i := range work {
		if processed[i] {
			continue
		}
		rep := work[i]
		processed[i] = true
		for j := i + 1; j < len(work); j++ {
			if processed[j] {
				continue
			}
			switch {
			case strictDuplicate(rep, work[j], cfg.StrictOverlap):
				rep = pickRepresentative(rep, work[j])
				processed[j] = true
			case softRelated(rep, work[j], cfg.SoftOverlap):
				rep = mergeIssues(rep, work[j])
				processed[j] = true
			}
		}
		out = append(out, rep)
	}
	return renumber(out)
}

func renumber(issues []Issue) []Issue {
	for i := range issues {
		issues[i].ID = i + 1
	}
	return issues
}

// strictDuplicate: character-identical excerpts, or sliding-window overlap
// above the strict threshold. Empty excerpts are never compared.
func strictDuplicate(a, b Issue, threshold float64) bool {
	if a.Quote == "" || b.Quote == "" {
		return false
	}
	if a.Quote == b.Quote {
		return true
	}
	return overlapRatio(a.Quote, b.Quote) > threshold
}

func softRelated(a, b Issue, threshold float64) bool {
	if a.Quote != "" && b.Quote != "" && overlapRatio(a.Quote, b.Quote) > threshold {
		return true
	}
	return sharedKeywordCategory(a, b) != nil
}

func sharedKeywordCategory(a, b Issue) *keywordCategory {
	blobA := strings.ToLower(a.Title + " " + a.Description + " " + a.Quote)
	blobB := strings.ToLower(b.Title + " " + b.Description + " " + b.Quote)
	for i := range keywordCategories {
		cat := &keywordCategories[i]
		if containsAny(blobA, cat.Terms) && containsAny(blobB, cat.Terms) {
			return cat
		}
	}
	return nil
}

func containsAny(blob string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(blob, t) {
			return true
		}
	}
	return false
}

// overlapRatio slides a window of min(10, len shorter) runes over the shorter
// excerpt and reports the share of windows contained in the longer one.
func overlapRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	shorter, longer := ra, b
	if len(rb) < len(ra) {
		shorter, longer = rb, a
	}
	if len(shorter) == 0 {
		return 0
	}
	w := 10
	if len(shorter) < w {
		w = len(shorter)
	}
	windows := len(shorter) - w + 1
	hits := 0
	for i := 0; i < windows; i++ {
		if strings.Contains(longer, string(shorter[i:i+w])) {
			hits++
		}
	}
	return float64(hits) / float64(windows)
}

// pickRepresentative keeps the duplicate whose best citation ranks higher
// (lower priority number). Ties keep the earlier candidate.
func pickRepresentative(a, b Issue) Issue {
	if bestPriority(b.Articles) < bestPriority(a.Articles) {
		return b
	}
	return a
}

func bestPriority(articles []int) int {
	best := 99
	for _, id := range articles {
		p, ok := citationPriority[id]
		if !ok {
			p = 9
		}
		if p < best {
			best = p
		}
	}
	return best
}

// mergeIssues combines two related findings: concatenated descriptions,
// dedup-joined excerpts, a synthesized citation capped at the two most
// relevant articles, and deduplicated suggestion lines.
func mergeIssues(a, b Issue) Issue {
	merged := a
	if b.Description != "" && !strings.Contains(a.Description, b.Description) {
		if merged.Description != "" {
			merged.Description += " "
		}
		merged.Description += b.Description
	}
	if b.Quote != "" && b.Quote != a.Quote {
		if merged.Quote == "" {
			merged.Quote = b.Quote
		} else if !strings.Contains(merged.Quote, b.Quote) {
			merged.Quote += " … " + b.Quote
		}
	}
	merged.Articles = combineCitations(a.Articles, b.Articles)
	merged.Suggestion = dedupLines(a.Suggestion, b.Suggestion)
	if severityRank(b.Severity) > severityRank(merged.Severity) {
		merged.Severity = b.Severity
	}
	merged.ManualOnly = a.ManualOnly && b.ManualOnly
	return merged
}

func combineCitations(a, b []int) []int {
	seen := map[int]struct{}{}
	all := []int{}
	for _, id := range append(append([]int{}, a...), b...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		all = append(all, id)
	}
	sort.SliceStable(all, func(i, j int) bool {
		pi, pj := bestPriority([]int{all[i]}), bestPriority([]int{all[j]})
		if pi != pj {
			return pi < pj
		}
		return all[i] < all[j]
	})
	if len(all) > 2 {
		all = all[:2]
	}
	return all
}

func dedupLines(a, b string) string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, block := range []string{a, b} {
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if _, ok := seen[line]; ok {
				continue
			}
			seen[line] = struct{}{}
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}
