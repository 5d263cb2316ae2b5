package review

import (
	"reflect"
	"strings"
	"testing"
)

const wellFormedReport = `{
  "totalIssues": 2,
  "issues": [
    {
      "title": "Designated logistics supplier",
      "description": "Units are forced to deal with one counterparty.",
      "quote": "shall procure freight services from the designated platform",
      "violation": "Article 10",
      "suggestion": "Open the service to all qualified providers.",
      "severity": "high"
    },
    {
      "title": "Reward tied to tax contribution",
      "description": "Payments scale with local taxes paid.",
      "quote": "reward equal to 30% of the increment",
      "violation": "Article 14 and Article 13",
      "suggestion": "Decouple support from tax contribution.",
      "severity": "medium"
    }
  ]
}`

func TestParseDirect(t *testing.T) {
	res := ParseStructuredResponse(wellFormedReport)
	if res.Strategy != "direct" {
		t.Fatalf("expected direct strategy, got %s", res.Strategy)
	}
	if res.TotalIssues != 2 || len(res.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(res.Issues))
	}
	first := res.Issues[0]
	if first.Title != "Designated logistics supplier" || first.Severity != SeverityHigh {
		t.Fatalf("unexpected first issue: %+v", first)
	}
	if !reflect.DeepEqual(first.Articles, []int{10}) {
		t.Fatalf("unexpected articles: %v", first.Articles)
	}
	if !reflect.DeepEqual(res.Issues[1].Articles, []int{14, 13}) {
		t.Fatalf("unexpected articles: %v", res.Issues[1].Articles)
	}
	for _, is := range res.Issues {
		if is.Provenance != ProvenanceParsed {
			t.Fatalf("unexpected provenance %s", is.Provenance)
		}
	}
}

func TestParseCodeFences(t *testing.T) {
	fenced := "```json\n" + wellFormedReport + "\n```"
	res := ParseStructuredResponse(fenced)
	if res.Strategy != "direct" || res.TotalIssues != 2 {
		t.Fatalf("fenced block not recovered: strategy=%s issues=%d", res.Strategy, res.TotalIssues)
	}
}

func TestParseProseWrappedEqualsBare(t *testing.T) {
	wrapped := "Here is my analysis of the draft measure.\n\n" + wellFormedReport +
		"\n\nLet me know if anything needs clarification."
	bare := ParseStructuredResponse(wellFormedReport)
	prose := ParseStructuredResponse(wrapped)

	if prose.Strategy != "bounded-object" {
		t.Fatalf("expected bounded-object, got %s", prose.Strategy)
	}
	if !reflect.DeepEqual(bare.Issues, prose.Issues) {
		t.Fatal("prose-wrapped block must parse to the same issues as the bare block")
	}
}

func TestParseExplicitZero(t *testing.T) {
	res := ParseStructuredResponse(`{"totalIssues": 0, "issues": []}`)
	if res.Strategy != "direct" {
		t.Fatalf("expected direct strategy, got %s", res.Strategy)
	}
	if res.TotalIssues != 0 || len(res.Issues) != 0 {
		t.Fatalf("expected zero issues, got %d", res.TotalIssues)
	}
}

func TestParseBareArray(t *testing.T) {
	res := ParseStructuredResponse(`[{"title": "A", "violation": "Article 9"}]`)
	if res.Strategy != "direct" || res.TotalIssues != 1 {
		t.Fatalf("bare array not recovered: %s / %d", res.Strategy, res.TotalIssues)
	}
}

func TestParseSingleIssueObjectWithAliases(t *testing.T) {
	res := ParseStructuredResponse(`{"issue": "Local branch requirement", "detail": "Bidders need a local branch.", "excerpt": "must have a branch registered in this city", "article": "Article 12"}`)
	if res.TotalIssues != 1 {
		t.Fatalf("expected one issue, got %d", res.TotalIssues)
	}
	is := res.Issues[0]
	if is.Title != "Local branch requirement" || is.Description == "" || is.Quote == "" {
		t.Fatalf("alias fields not mapped: %+v", is)
	}
	if !reflect.DeepEqual(is.Articles, []int{12}) {
		t.Fatalf("unexpected articles: %v", is.Articles)
	}
}

func TestParseTruncatedResponse(t *testing.T) {
	// Cut off mid-way through the second issue object.
	truncated := wellFormedReport[:strings.Index(wellFormedReport, `"Reward tied`)+20]
	res := ParseStructuredResponse(truncated)

	if res.TotalIssues < 1 {
		t.Fatalf("expected at least the first issue recovered, got %d (strategy %s)", res.TotalIssues, res.Strategy)
	}
	if res.Issues[0].Title != "Designated logistics supplier" {
		t.Fatalf("unexpected recovered issue: %+v", res.Issues[0])
	}
}

func TestParseTrailingCommaViaFragments(t *testing.T) {
	raw := `{"totalIssues": 2, "issues": [{"title": "A", "violation": "Article 9"}, {"title": "B"},]}`
	res := ParseStructuredResponse(raw)
	if res.TotalIssues != 2 {
		t.Fatalf("expected 2 issues, got %d (strategy %s)", res.TotalIssues, res.Strategy)
	}
	if res.Strategy != "array-fragments" {
		t.Fatalf("expected array-fragments, got %s", res.Strategy)
	}
}

func TestParseLineHeuristics(t *testing.T) {
	raw := `Issue 1
Title: Designated supplier clause
Description: Procurement is locked to one vendor.
Quote: "shall procure from the designated platform"
Violation: Article 10
Suggestion: Use open tender.

Issue 2
Title: Local registration condition
Violation: Article 11`
	res := ParseStructuredResponse(raw)
	if res.Strategy != "line-heuristics" {
		t.Fatalf("expected line-heuristics, got %s", res.Strategy)
	}
	if res.TotalIssues != 2 {
		t.Fatalf("expected 2 issues, got %d", res.TotalIssues)
	}
	first := res.Issues[0]
	if first.Title != "Designated supplier clause" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.Quote != "shall procure from the designated platform" {
		t.Fatalf("quote not unquoted: %q", first.Quote)
	}
	if !reflect.DeepEqual(first.Articles, []int{10}) {
		t.Fatalf("unexpected articles %v", first.Articles)
	}
	if !reflect.DeepEqual(res.Issues[1].Articles, []int{11}) {
		t.Fatalf("unexpected articles %v", res.Issues[1].Articles)
	}
}

func TestParseProseAllClear(t *testing.T) {
	res := ParseStructuredResponse("After careful reading, the draft measure does not violate the review standards. No issues found.")
	if res.Strategy != "no-issue" {
		t.Fatalf("expected no-issue, got %s", res.Strategy)
	}
	if res.TotalIssues != 0 {
		t.Fatalf("expected zero issues, got %d", res.TotalIssues)
	}
}

func TestParseGarbageFallsBackToManualReview(t *testing.T) {
	res := ParseStructuredResponse("%%%% completely unusable output with no structure whatsoever @@@@")
	if res.Strategy != "manual-fallback" {
		t.Fatalf("expected manual-fallback, got %s", res.Strategy)
	}
	if res.TotalIssues != 1 || !res.Issues[0].ManualOnly {
		t.Fatalf("expected a single manual-only issue, got %+v", res.Issues)
	}
	if res.Issues[0].Severity != SeverityLow {
		t.Fatalf("manual fallback severity should be low, got %s", res.Issues[0].Severity)
	}
}

func TestParseManualFallbackCapsExcerpt(t *testing.T) {
	long := strings.Repeat("@", ManualReviewExcerptCap*3)
	res := ParseStructuredResponse(long)
	if res.Strategy != "manual-fallback" {
		t.Fatalf("expected manual-fallback, got %s", res.Strategy)
	}
	if len(res.Issues[0].Description) > ManualReviewExcerptCap+100 {
		t.Fatalf("excerpt not capped: %d chars", len(res.Issues[0].Description))
	}
}

func TestExtractArticleIDsValidatesAgainstCatalogue(t *testing.T) {
	got := extractArticleIDs("violates Article 14 and Article 99, see also article 10")
	if !reflect.DeepEqual(got, []int{14, 10}) {
		t.Fatalf("expected [14 10], got %v", got)
	}
}
