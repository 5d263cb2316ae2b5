package review

import (
	"reflect"
	"testing"
)

const riskyMeasure = "Municipal measure: all units shall purchase from the designated supplier platform. " +
	"Enterprises receive a reward tied to tax contribution and an annual tax rebate. " +
	"Bidding restricted to local enterprises only."

const benignMeasure = "The municipal government published an administrative measure describing the " +
	"opening hours of the public library and the schedule for reading events."

func mustLibrary(t *testing.T) *RuleLibrary {
	t.Helper()
	lib, err := LoadRuleLibrary()
	if err != nil {
		t.Fatalf("LoadRuleLibrary: %v", err)
	}
	return lib
}

func TestScanFlagsRiskyMeasure(t *testing.T) {
	lib := mustLibrary(t)
	scan := lib.Scan(riskyMeasure, -1)

	if !scan.NeedsFurtherAnalysis {
		t.Fatal("expected risky measure to need further analysis")
	}
	if scan.RiskTier != TierHigh {
		t.Fatalf("expected high tier, got %s (score %d)", scan.RiskTier, scan.FinalScore)
	}
	if len(scan.MatchedPatterns) == 0 {
		t.Fatal("expected matched patterns")
	}
	categories := map[string]bool{}
	for _, m := range scan.MatchedPatterns {
		categories[m.Category] = true
	}
	for _, want := range []string{"designated transactions", "selective tax preference", "discriminatory bidding conditions"} {
		if !categories[want] {
			t.Errorf("missing matched category %q", want)
		}
	}
}

func TestScanSkipsShortInput(t *testing.T) {
	lib := mustLibrary(t)
	scan := lib.Scan("hello", -1)
	if scan.NeedsFurtherAnalysis {
		t.Fatal("short input must not need analysis")
	}
	if scan.SkipReason != SkipInputTooShort {
		t.Fatalf("expected %s, got %q", SkipInputTooShort, scan.SkipReason)
	}
}

func TestScanSkipsWithoutPolicyIndicators(t *testing.T) {
	lib := mustLibrary(t)
	scan := lib.Scan("We wish you a pleasant day and hope the weather stays fine for the picnic.", -1)
	if scan.SkipReason != SkipNoPolicyIndicators {
		t.Fatalf("expected %s, got %q", SkipNoPolicyIndicators, scan.SkipReason)
	}
}

func TestScanBenignMeasureNotFlagged(t *testing.T) {
	lib := mustLibrary(t)
	scan := lib.Scan(benignMeasure, -1)
	if scan.NeedsFurtherAnalysis {
		t.Fatalf("benign measure flagged: score=%d patterns=%d", scan.FinalScore, len(scan.MatchedPatterns))
	}
	if scan.RiskTier != TierNone {
		t.Fatalf("expected tier none, got %s", scan.RiskTier)
	}
}

func TestScanScoreCaps(t *testing.T) {
	lib := mustLibrary(t)
	scan := lib.Scan(riskyMeasure, -1)
	if scan.PatternScore > PatternScoreCap {
		t.Fatalf("pattern score %d exceeds cap", scan.PatternScore)
	}
	if scan.WeightScore > KeywordScoreCap {
		t.Fatalf("weight score %d exceeds cap", scan.WeightScore)
	}
	if scan.FinalScore != scan.PatternScore+scan.WeightScore {
		t.Fatalf("final score %d != pattern %d + weight %d without AI input",
			scan.FinalScore, scan.PatternScore, scan.WeightScore)
	}
}

func TestScanHighAIConfidenceForcesAnalysis(t *testing.T) {
	lib := mustLibrary(t)
	scan := lib.Scan(benignMeasure, 0.95)
	if !scan.NeedsFurtherAnalysis {
		t.Fatal("high external confidence must force further analysis")
	}
	base := lib.Scan(benignMeasure, -1)
	if scan.FinalScore <= base.FinalScore {
		t.Fatalf("AI contribution missing: %d <= %d", scan.FinalScore, base.FinalScore)
	}
	if scan.FinalScore-base.FinalScore > AIConfidenceCap {
		t.Fatalf("AI contribution %d exceeds cap", scan.FinalScore-base.FinalScore)
	}
}

func TestScanDeterministic(t *testing.T) {
	lib := mustLibrary(t)
	a := lib.Scan(riskyMeasure, 0.5)
	b := lib.Scan(riskyMeasure, 0.5)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical inputs produced different scans")
	}
}

func TestPatternIssuesOnePerRule(t *testing.T) {
	lib := mustLibrary(t)
	scan := lib.Scan(riskyMeasure, -1)
	issues := lib.PatternIssues(scan)

	if len(issues) == 0 {
		t.Fatal("expected pattern issues")
	}
	seen := map[string]bool{}
	for _, is := range issues {
		if is.Provenance != ProvenancePattern {
			t.Errorf("issue %q has provenance %s", is.Title, is.Provenance)
		}
		if is.Quote == "" {
			t.Errorf("issue %q missing quote", is.Title)
		}
		if len(is.Articles) == 0 {
			t.Errorf("issue %q missing articles", is.Title)
		}
		if seen[is.Title] {
			t.Errorf("duplicate issue title %q", is.Title)
		}
		seen[is.Title] = true
	}
}
