package review

import (
	"regexp"
	"testing"
)

func TestLoadRuleLibrary(t *testing.T) {
	lib, err := LoadRuleLibrary()
	if err != nil {
		t.Fatalf("LoadRuleLibrary: %v", err)
	}
	if len(lib.rules) == 0 || len(lib.tiers) == 0 || len(lib.indicators) == 0 {
		t.Fatal("embedded library incomplete")
	}
	for _, r := range lib.rules {
		if r.ID == "" || r.Category == "" || r.Suggestion == "" {
			t.Errorf("rule %q missing fields", r.ID)
		}
		if len(r.Articles) == 0 {
			t.Errorf("rule %q cites no articles", r.ID)
		}
		for _, id := range r.Articles {
			if ArticleByID(id) == nil {
				t.Errorf("rule %q cites unknown article %d", r.ID, id)
			}
		}
		switch r.Severity {
		case SeverityLow, SeverityMedium, SeverityHigh:
		default:
			t.Errorf("rule %q has invalid severity %q", r.ID, r.Severity)
		}
	}
}

func TestDefaultRuleLibrarySingleton(t *testing.T) {
	a, err := DefaultRuleLibrary()
	if err != nil {
		t.Fatalf("DefaultRuleLibrary: %v", err)
	}
	b, _ := DefaultRuleLibrary()
	if a != b {
		t.Fatal("expected the same library instance")
	}
}

func TestRuleByID(t *testing.T) {
	lib := mustLibrary(t)
	if lib.RuleByID("designated-transactions") == nil {
		t.Fatal("known rule not found")
	}
	if lib.RuleByID("no-such-rule") != nil {
		t.Fatal("unknown rule returned")
	}
}

func TestCataloguePhrasingsCompile(t *testing.T) {
	for _, c := range CaseDatabase {
		for _, p := range c.Phrasings {
			if _, err := regexp.Compile(p.Pattern); err != nil {
				t.Errorf("case %s phrasing %q does not compile: %v", c.ID, p.Pattern, err)
			}
		}
	}
}

func TestCatalogueConsistency(t *testing.T) {
	seen := map[int]bool{}
	for _, a := range Catalogue {
		if seen[a.ID] {
			t.Errorf("duplicate article id %d", a.ID)
		}
		seen[a.ID] = true
		if a.Frequency <= 0 || a.Frequency > 1 {
			t.Errorf("article %d frequency %.2f out of range", a.ID, a.Frequency)
		}
		if a.Text == "" || a.Title == "" || len(a.Concepts) == 0 {
			t.Errorf("article %d incomplete", a.ID)
		}
	}
	for _, c := range CaseDatabase {
		if ArticleByID(c.Article) == nil {
			t.Errorf("case %s cites unknown article %d", c.ID, c.Article)
		}
	}
}
