package review

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// PatternRule is one entry of the static pre-screening library: a violation
// category with its regex matchers, literal keyword triggers, and the
// catalogue articles it maps to.
type PatternRule struct {
	ID         string   `yaml:"id"`
	Category   string   `yaml:"category"`
	Severity   Severity `yaml:"severity"`
	Articles   []int    `yaml:"articles"`
	Patterns   []string `yaml:"patterns"`
	Keywords   []string `yaml:"keywords"`
	Suggestion string   `yaml:"suggestion"`
}

// KeywordTier groups trigger terms under a fixed weight multiplier
// (high=3, medium=2, low=1).
type KeywordTier struct {
	Weight int      `yaml:"weight"`
	Terms  []string `yaml:"terms"`
}

type ruleFile struct {
	PolicyIndicators []string      `yaml:"policy_indicators"`
	PatternRules     []PatternRule `yaml:"pattern_rules"`
	KeywordTiers     []KeywordTier `yaml:"keyword_tiers"`
}

type compiledRule struct {
	PatternRule
	matchers []*regexp.Regexp
}

// RuleLibrary holds the compiled pattern registry and keyword tiers. Compiled
// once at load; read-only afterwards, so it is safe to share across requests.
type RuleLibrary struct {
	indicators []string
	rules      []compiledRule
	tiers      []KeywordTier
}

// LoadRuleLibrary parses and compiles the embedded rule library. A failure
// here is a startup error, not a per-request condition.
func LoadRuleLibrary() (*RuleLibrary, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(rulesYAML, &rf); err != nil {
		return nil, fmt.Errorf("parse rule library: %w", err)
	}
	if len(rf.PolicyIndicators) == 0 || len(rf.PatternRules) == 0 || len(rf.KeywordTiers) == 0 {
		return nil, fmt.Errorf("rule library incomplete: indicators=%d rules=%d tiers=%d",
			len(rf.PolicyIndicators), len(rf.PatternRules), len(rf.KeywordTiers))
	}

	lib := &RuleLibrary{tiers: rf.KeywordTiers}
	for _, ind := range rf.PolicyIndicators {
		ind = strings.ToLower(strings.TrimSpace(ind))
		if ind != "" {
			lib.indicators = append(lib.indicators, ind)
		}
	}
	for _, r := range rf.PatternRules {
		cr := compiledRule{PatternRule: r}
		for _, p := range r.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("rule %s: compile %q: %w", r.ID, p, err)
			}
			cr.matchers = append(cr.matchers, re)
		}
		switch r.Severity {
		case SeverityLow, SeverityMedium, SeverityHigh:
		default:
			return nil, fmt.Errorf("rule %s: invalid severity %q", r.ID, r.Severity)
		}
		lib.rules = append(lib.rules, cr)
	}
	return lib, nil
}

// RuleByID returns the rule definition for id, or nil.
func (l *RuleLibrary) RuleByID(id string) *PatternRule {
	for i := range l.rules {
		if l.rules[i].ID == id {
			return &l.rules[i].PatternRule
		}
	}
	return nil
}

var (
	defaultLibOnce sync.Once
	defaultLib     *RuleLibrary
	defaultLibErr  error
)

// DefaultRuleLibrary loads the embedded library once for the process.
func DefaultRuleLibrary() (*RuleLibrary, error) {
	defaultLibOnce.Do(func() {
		defaultLib, defaultLibErr = LoadRuleLibrary()
	})
	return defaultLib, defaultLibErr
}
