package review

import "time"

const Disclaimer = "This is an automated pre-screening for fair-competition compliance, not a legal opinion. " +
	"Flagged issues require confirmation by the reviewing authority before any corrective action."

// RegulationName is the single regulation this pipeline cites. Citations are
// normalized to exactly "violates <RegulationName> Article <N>" before they
// leave the package boundary.
const RegulationName = "Fair Competition Review Regulation"

const (
	MinDocumentChars   = 30
	MaxDocumentChars   = 100000
	DefaultMaxArticles = 6
	DefaultMaxCases    = 3

	// Score caps and tier thresholds for the pre-screening combiner. The caps
	// are empirical values carried over from calibration runs; treat them as
	// tunable, not as invariants.
	PatternScoreCap   = 40
	KeywordScoreCap   = 30
	AIConfidenceCap   = 30
	TierHighThreshold = 70
	TierMedThreshold  = 40
	TierLowThreshold  = 20

	// Overlap thresholds for issue consolidation.
	StrictOverlapThreshold = 0.7
	SoftOverlapThreshold   = 0.3

	// ManualReviewExcerptCap bounds the raw text wrapped into the terminal
	// fallback issue.
	ManualReviewExcerptCap = 500
)

type RiskTier string

const (
	TierNone   RiskTier = "none"
	TierLow    RiskTier = "low"
	TierMedium RiskTier = "medium"
	TierHigh   RiskTier = "high"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Provenance records which pipeline stage produced an issue.
type Provenance string

const (
	ProvenancePattern Provenance = "pattern"
	ProvenanceParsed  Provenance = "parsed"
	ProvenanceCase    Provenance = "case"
)

// Issue is one flagged potential violation. IDs are provisional until
// consolidation reassigns them contiguously from 1.
type Issue struct {
	ID          int
	Title       string
	Description string
	Quote       string
	Articles    []int
	Severity    Severity
	Suggestion  string
	Provenance  Provenance
	ManualOnly  bool
}

// ReportedIssue is the external shape consumed by report rendering and the
// audit log. Violation carries the canonical citation string.
type ReportedIssue struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Quote       string `json:"quote"`
	Violation   string `json:"violation"`
	Suggestion  string `json:"suggestion"`
}

type AnalysisResult struct {
	TotalIssues int             `json:"totalIssues"`
	Issues      []ReportedIssue `json:"issues"`
	RiskTier    RiskTier        `json:"riskTier"`
	Confidence  float64         `json:"confidence"`
}

// Request is the input contract: one extracted UTF-8 text blob plus optional
// semantic hints from the upstream reasoning step.
type Request struct {
	DocumentText string   `json:"document_text"`
	Hints        []string `json:"hints,omitempty"`
	MaxArticles  int      `json:"max_articles,omitempty"`
	MaxCases     int      `json:"max_cases,omitempty"`
}

// RunMetadata is advisory bookkeeping attached to a pipeline run.
type RunMetadata struct {
	StagesExecuted  []string  `json:"stages_executed"`
	SkipReason      string    `json:"skip_reason,omitempty"`
	Degraded        bool      `json:"degraded"`
	DroppedQuotes   int       `json:"dropped_quotes"`
	ParserStrategy  string    `json:"parser_strategy,omitempty"`
	InputTruncated  bool      `json:"input_truncated"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	SelectedArticle []int     `json:"selected_articles,omitempty"`
}

// RunResult couples the external AnalysisResult with run metadata.
type RunResult struct {
	Analysis AnalysisResult `json:"analysis"`
	Metadata RunMetadata    `json:"metadata"`
}
