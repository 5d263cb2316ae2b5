package review

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

const (
	caseKeywordHitWeight  = 0.4
	caseParaphraseWeight  = 0.8
	caseFeatureHitWeight  = 0.3
	caseFeatureSimilarity = 0.7
	DefaultCaseThreshold  = 0.3
	defaultCaseMaxResults = 5
)

// PhrasePattern is a "typical phrasing" regex shared between a query and a
// case's literal example text, with its own weight.
type PhrasePattern struct {
	Pattern string
	Weight  float64
}

// CaseRecord is one precedent from the enforcement database. Static after
// load.
type CaseRecord struct {
	ID          string
	Title       string
	Category    string
	Article     int
	Excerpt     string
	Keywords    []string
	Paraphrases []string
	Phrasings   []PhrasePattern
	KeyFeatures []string
	Severity    Severity
	Outcome     string
	Lesson      string
}

// CaseDatabase lists published correction cases in id order.
var CaseDatabase = []CaseRecord{
	{
		ID: "FCR-2021-004", Title: "City rewards tied to enterprise tax contribution", Category: "fiscal preference",
		Article: 14,
		Excerpt: "Enterprises whose annual local tax contribution exceeds 10 million yuan shall receive a reward equal to 30% of the increment.",
		Keywords: []string{"tax contribution", "reward", "fiscal incentive"},
		Paraphrases: []string{"refund of local taxes", "payment linked to taxes paid"},
		Phrasings: []PhrasePattern{
			{Pattern: `(?i)reward[s]?\s+(?:equal|proportional|tied|linked)\s+to`, Weight: 0.5},
		},
		KeyFeatures: []string{"reward tied to tax contribution", "selective fiscal payment to enterprises"},
		Severity:    SeverityHigh, Outcome: "measure repealed after provincial review",
		Lesson:      "Any payment formula keyed to an operator's tax contribution is a selective fiscal preference regardless of labelling.",
	},
	{
		ID: "FCR-2021-011", Title: "Procurement limited to designated logistics provider", Category: "designated transactions",
		Article: 10,
		Excerpt: "All municipal units shall procure freight services from the designated logistics platform.",
		Keywords: []string{"designated", "procure", "platform"},
		Paraphrases: []string{"must use the appointed provider", "single franchised operator"},
		Phrasings: []PhrasePattern{
			{Pattern: `(?i)shall\s+(?:procure|purchase|obtain)\s+.{0,40}designated`, Weight: 0.4},
		},
		KeyFeatures: []string{"mandatory dealing with designated supplier"},
		Severity:    SeverityHigh, Outcome: "clause struck, open tender ordered",
		Lesson:      "Designating a counterparty forecloses the market even when the designee was competitively chosen once.",
	},
	{
		ID: "FCR-2022-003", Title: "Bidder qualification requires local branch", Category: "discriminatory bidding",
		Article: 12,
		Excerpt: "Bidders must have a branch registered in this city for no less than two years.",
		Keywords: []string{"bidders", "branch", "registered"},
		Paraphrases: []string{"local presence requirement", "two years of local operation"},
		Phrasings: []PhrasePattern{
			{Pattern: `(?i)bidders?\s+must\s+.{0,40}(?:local|this\s+city|branch)`, Weight: 0.4},
		},
		KeyFeatures: []string{"locality condition in tender qualification"},
		Severity:    SeverityMedium, Outcome: "tender annulled and re-issued",
		Lesson:      "Locality tenure conditions exclude capable non-local bidders and rarely survive review.",
	},
	{
		ID: "FCR-2022-009", Title: "Extra inspection fees for non-local construction materials", Category: "movement restriction",
		Article: 9,
		Excerpt: "Construction materials sourced from other provinces are subject to an additional quality inspection fee.",
		Keywords: []string{"inspection fee", "other provinces", "materials"},
		Paraphrases: []string{"surcharge on outside goods", "extra testing for inbound products"},
		Phrasings: []PhrasePattern{
			{Pattern: `(?i)(?:additional|extra)\s+.{0,30}(?:fee|inspection|charge)`, Weight: 0.35},
		},
		KeyFeatures: []string{"discriminatory fee on non-local goods"},
		Severity:    SeverityMedium, Outcome: "fee abolished, refunds ordered",
		Lesson:      "Charging inbound goods for checks local goods skip is a movement barrier, not quality control.",
	},
	{
		ID: "FCR-2022-015", Title: "Industrial land price discount for headquartered firms", Category: "fiscal preference",
		Article: 15,
		Excerpt: "Enterprises relocating their headquarters to the district may acquire industrial land at 60% of the listed price.",
		Keywords: []string{"land", "headquarters", "discount"},
		Paraphrases: []string{"reduced land price", "below-market land grant"},
		Phrasings: []PhrasePattern{
			{Pattern: `(?i)(?:land|rent)\s+at\s+\d+%`, Weight: 0.35},
		},
		KeyFeatures: []string{"selective reduction of factor costs"},
		Severity:    SeverityMedium, Outcome: "discount scheme withdrawn",
		Lesson:      "Factor-cost discounts conditioned on relocation distort competition between regions.",
	},
	{
		ID: "FCR-2023-002", Title: "Market entry conditioned on extra municipal approval", Category: "market access",
		Article: 8,
		Excerpt: "New energy storage operators shall obtain a municipal suitability confirmation before filing for a business license.",
		Keywords: []string{"approval", "license", "entry"},
		Paraphrases: []string{"pre-approval before registration", "additional confirmation step"},
		Phrasings: []PhrasePattern{
			{Pattern: `(?i)shall\s+obtain\s+.{0,40}(?:approval|confirmation)\s+before`, Weight: 0.4},
		},
		KeyFeatures: []string{"unauthorized access condition before licensing"},
		Severity:    SeverityHigh, Outcome: "confirmation step removed",
		Lesson:      "Any approval layer beyond the negative list is an access restriction however it is named.",
	},
	{
		ID: "FCR-2023-017", Title: "Association organized minimum price for ready-mix concrete", Category: "compelled conduct",
		Article: 18,
		Excerpt: "The industry association shall organize member enterprises to implement the self-discipline price and report violators.",
		Keywords: []string{"self-discipline price", "association", "organize"},
		Paraphrases: []string{"coordinated minimum price", "industry price alignment"},
		Phrasings: []PhrasePattern{
			{Pattern: `(?i)(?:organi[sz]e|coordinate)\s+.{0,40}price`, Weight: 0.5},
		},
		KeyFeatures: []string{"government-backed price coordination"},
		Severity:    SeverityHigh, Outcome: "measure repealed, association warned",
		Lesson:      "Backing an association price scheme converts private collusion into a state-compelled restraint.",
	},
	{
		ID: "FCR-2024-006", Title: "Subsidy restricted to locally registered platform companies", Category: "fiscal preference",
		Article: 14,
		Excerpt: "Operating subsidies are available to platform enterprises registered within the free trade zone only.",
		Keywords: []string{"subsidy", "registered", "platform"},
		Paraphrases: []string{"grants for local companies", "zone-only support"},
		Phrasings: []PhrasePattern{
			{Pattern: `(?i)subsid(?:y|ies)\s+.{0,50}(?:only|restricted|limited)`, Weight: 0.4},
		},
		KeyFeatures: []string{"registration-gated subsidy eligibility"},
		Severity:    SeverityMedium, Outcome: "eligibility widened to all operators",
		Lesson:      "Gating support on registration locale mixes a fiscal preference with a residency condition.",
	},
}

// CaseMatch is one ranked retrieval result.
type CaseMatch struct {
	Case      *CaseRecord `json:"case"`
	Relevance float64     `json:"relevanceScore"`
}

// MatchOptions filters and bounds a query.
type MatchOptions struct {
	Category   string
	Severity   Severity
	MaxResults int
	Threshold  float64
}

type caseIndexEntry struct {
	caseIdx int
	weight  float64
}

// CaseMatcher retrieves similar precedents. Indices are built once; the
// matcher is read-only afterwards.
type CaseMatcher struct {
	keywordIndex map[string][]caseIndexEntry
	phrasings    [][]compiledPhrase
}

type compiledPhrase struct {
	re     *regexp.Regexp
	weight float64
}

// NewCaseMatcher builds the static indices over CaseDatabase.
func NewCaseMatcher() *CaseMatcher {
	m := &CaseMatcher{keywordIndex: map[string][]caseIndexEntry{}}
	m.phrasings = make([][]compiledPhrase, len(CaseDatabase))
	for i := range CaseDatabase {
		c := &CaseDatabase[i]
		for _, kw := range c.Keywords {
			k := strings.ToLower(kw)
			m.keywordIndex[k] = append(m.keywordIndex[k], caseIndexEntry{caseIdx: i, weight: 1.0})
		}
		for _, p := range c.Paraphrases {
			k := strings.ToLower(p)
			m.keywordIndex[k] = append(m.keywordIndex[k], caseIndexEntry{caseIdx: i, weight: caseParaphraseWeight})
		}
		for _, ph := range c.Phrasings {
			re, err := regexp.Compile(ph.Pattern)
			if err != nil {
				// Static data; an uncompilable pattern is a programming error
				// caught by tests, skip it at runtime.
				continue
			}
			m.phrasings[i] = append(m.phrasings[i], compiledPhrase{re: re, weight: ph.Weight})
		}
	}
	return m
}

var (
	defaultMatcherOnce sync.Once
	defaultMatcher     *CaseMatcher
)

// DefaultCaseMatcher returns the process-wide matcher over CaseDatabase.
func DefaultCaseMatcher() *CaseMatcher {
	defaultMatcherOnce.Do(func() { defaultMatcher = NewCaseMatcher() })
	return defaultMatcher
}

// Match ranks cases against the query text.
func (m *CaseMatcher) Match(query string, opts MatchOptions) []CaseMatch {
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultCaseMaxResults
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultCaseThreshold
	}
	lower := strings.ToLower(query)
	queryTokens := tokenSet(lower)

	scores := make([]float64, len(CaseDatabase))
	for term, entries := range m.keywordIndex {
		if !strings.Contains(lower, term) {
			continue
		}
		for _, e := range entries {
			scores[e.caseIdx] += caseKeywordHitWeight * e.weight
		}
	}
	for i := range CaseDatabase {
		c := &CaseDatabase[i]
		for _, feature := range c.KeyFeatures {
			if tokenOverlap(queryTokens, tokenSet(strings.ToLower(feature))) > caseFeatureSimilarity {
				scores[i] += caseFeatureHitWeight
			}
		}
		for _, ph := range m.phrasings[i] {
			if ph.re.MatchString(query) && ph.re.MatchString(c.Excerpt) {
				scores[i] += ph.weight
			}
		}
	}

	out := []CaseMatch{}
	for i := range CaseDatabase {
		c := &CaseDatabase[i]
		if scores[i] < opts.Threshold {
			continue
		}
		if opts.Category != "" && !strings.EqualFold(opts.Category, c.Category) {
			continue
		}
		if opts.Severity != "" && opts.Severity != c.Severity {
			continue
		}
		out = append(out, CaseMatch{Case: c, Relevance: scores[i]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].Case.ID < out[j].Case.ID
	})
	if len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	return out
}

func tokenSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, tok := range strings.Fields(s) {
		tok = strings.Trim(tok, ".,;:!?()\"'")
		if len(tok) < 3 {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

// tokenOverlap is the share of b's tokens present in a.
func tokenOverlap(a, b map[string]struct{}) float64 {
	if len(b) == 0 {
		return 0
	}
	hits := 0
	for tok := range b {
		if _, ok := a[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(b))
}
