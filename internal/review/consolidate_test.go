package review

import (
	"reflect"
	"strings"
	"testing"
)

func TestConsolidateEmptyAndSingleton(t *testing.T) {
	if got := Consolidate(nil, ConsolidateConfig{}); len(got) != 0 {
		t.Fatalf("expected empty, got %d", len(got))
	}
	single := []Issue{{ID: 7, Title: "Only one", Quote: "some excerpt text"}}
	got := Consolidate(single, ConsolidateConfig{})
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("singleton must survive with id 1, got %+v", got)
	}
}

func TestConsolidateIdenticalQuotesCollapse(t *testing.T) {
	quote := "all units shall procure freight services from the designated logistics platform"
	in := []Issue{
		{Title: "Designated supplier", Quote: quote, Articles: []int{19}, Severity: SeverityMedium},
		{Title: "Mandatory counterparty", Quote: quote, Articles: []int{10}, Severity: SeverityHigh},
	}
	out := Consolidate(in, ConsolidateConfig{})
	if len(out) != 1 {
		t.Fatalf("expected collapse to 1 issue, got %d", len(out))
	}
	// Article 10 is the more specific citation; its issue is the keeper.
	if out[0].Title != "Mandatory counterparty" {
		t.Fatalf("wrong representative: %+v", out[0])
	}
	if out[0].ID != 1 {
		t.Fatalf("ids not renumbered: %d", out[0].ID)
	}
}

func TestConsolidateHighOverlapCollapses(t *testing.T) {
	base := "enterprises whose annual local tax contribution exceeds ten million shall receive a reward"
	in := []Issue{
		{Title: "Tax-linked reward A", Quote: base, Articles: []int{14}},
		{Title: "Tax-linked reward B", Quote: base + " equal to thirty percent", Articles: []int{13}},
	}
	out := Consolidate(in, ConsolidateConfig{})
	if len(out) != 1 {
		t.Fatalf("expected strict collapse, got %d issues", len(out))
	}
}

func TestConsolidateSoftMerge(t *testing.T) {
	in := []Issue{
		{
			Title:       "Tax rebate clause",
			Description: "Grants a tax rebate to selected enterprises.",
			Quote:       "a full tax rebate shall be granted to qualifying enterprises",
			Articles:    []int{13},
			Severity:    SeverityMedium,
			Suggestion:  "Remove the rebate.",
		},
		{
			Title:       "Contribution-linked reward",
			Description: "Pays a reward tied to tax contribution.",
			Quote:       "a reward proportional to annual tax contribution will be paid",
			Articles:    []int{14},
			Severity:    SeverityHigh,
			Suggestion:  "Decouple payments from taxes paid.",
		},
	}
	out := Consolidate(in, ConsolidateConfig{})
	if len(out) != 1 {
		t.Fatalf("expected soft merge into 1 issue, got %d", len(out))
	}
	m := out[0]
	if !strings.Contains(m.Description, "rebate") || !strings.Contains(m.Description, "reward tied") {
		t.Fatalf("descriptions not concatenated: %q", m.Description)
	}
	if !strings.Contains(m.Quote, "rebate") || !strings.Contains(m.Quote, "proportional") {
		t.Fatalf("quotes not joined: %q", m.Quote)
	}
	if len(m.Articles) > 2 {
		t.Fatalf("citation not capped at two articles: %v", m.Articles)
	}
	if !reflect.DeepEqual(m.Articles, []int{14, 13}) {
		t.Fatalf("expected priority-ranked citation [14 13], got %v", m.Articles)
	}
	if m.Severity != SeverityHigh {
		t.Fatalf("merged severity should escalate, got %s", m.Severity)
	}
	for _, line := range []string{"Remove the rebate.", "Decouple payments from taxes paid."} {
		if !strings.Contains(m.Suggestion, line) {
			t.Fatalf("suggestion line lost: %q", m.Suggestion)
		}
	}
}

func TestConsolidateEmptyQuotesNeverDuplicate(t *testing.T) {
	in := []Issue{
		{Title: "Entry barrier in licensing", Description: "extra approval layer", Articles: []int{8}},
		{Title: "Movement restriction", Description: "inbound goods burdened", Articles: []int{9}},
	}
	out := Consolidate(in, ConsolidateConfig{})
	if len(out) != 2 {
		t.Fatalf("distinct quoteless issues must not collapse, got %d", len(out))
	}
}

func TestConsolidateRenumbersPreservingOrder(t *testing.T) {
	in := []Issue{
		{ID: 9, Title: "First finding", Quote: "completely distinct excerpt number one about licensing"},
		{ID: 3, Title: "Second finding", Quote: "another unrelated provision concerning checkpoints"},
		{ID: 5, Title: "Third finding", Quote: "a third clause on government guided pricing rules"},
	}
	out := Consolidate(in, ConsolidateConfig{})
	if len(out) != 3 {
		t.Fatalf("expected 3 issues, got %d", len(out))
	}
	for i, is := range out {
		if is.ID != i+1 {
			t.Fatalf("expected id %d, got %d", i+1, is.ID)
		}
	}
	if out[0].Title != "First finding" || out[2].Title != "Third finding" {
		t.Fatal("relative order not preserved")
	}
}

func TestConsolidateNeverIncreasesCount(t *testing.T) {
	in := []Issue{
		{Title: "A", Quote: "designated supplier clause in the procurement chapter"},
		{Title: "B", Quote: "tax rebate for qualifying enterprises in the zone"},
		{Title: "C", Quote: "bidders must have a local branch registered for two years"},
	}
	out := Consolidate(in, ConsolidateConfig{})
	if len(out) > len(in) {
		t.Fatalf("consolidation grew the issue list: %d > %d", len(out), len(in))
	}
}

func TestOverlapRatio(t *testing.T) {
	if r := overlapRatio("abcdefghij", "abcdefghij"); r != 1.0 {
		t.Fatalf("identical strings should overlap fully, got %f", r)
	}
	if r := overlapRatio("abcdefghijklmno", "zzzzzzzzzzzzzzz"); r != 0 {
		t.Fatalf("disjoint strings should not overlap, got %f", r)
	}
	if r := overlapRatio("", "anything"); r != 0 {
		t.Fatalf("empty string overlap should be 0, got %f", r)
	}
}
