package review

import (
	"context"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	baseConfidence       = 0.9
	degradedConfidence   = 0.6
	manualOnlyPenalty    = 0.2
	defaultReasonTimeout = 60 * time.Second
)

// Pipeline wires the screening stages together. A nil caller runs the
// pattern-only path; every upstream failure degrades rather than aborts.
type Pipeline struct {
	rules         *RuleLibrary
	selector      *ArticleSelector
	matcher       *CaseMatcher
	caller        LLMCaller
	consolidate   ConsolidateConfig
	reasonTimeout time.Duration
	tracer        trace.Tracer
}

// PipelineOption tweaks construction.
type PipelineOption func(*Pipeline)

func WithCaller(c LLMCaller) PipelineOption {
	return func(p *Pipeline) { p.caller = c }
}

func WithCache(c Cache) PipelineOption {
	return func(p *Pipeline) { p.selector = NewArticleSelector(c) }
}

func WithConsolidateConfig(cfg ConsolidateConfig) PipelineOption {
	return func(p *Pipeline) { p.consolidate = cfg }
}

func WithReasonTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.reasonTimeout = d
		}
	}
}

// NewPipeline builds a pipeline over the embedded rule library and the static
// catalogue and case database.
func NewPipeline(opts ...PipelineOption) (*Pipeline, error) {
	lib, err := LoadRuleLibrary()
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		rules:         lib,
		selector:      NewArticleSelector(nil),
		matcher:       DefaultCaseMatcher(),
		reasonTimeout: defaultReasonTimeout,
		tracer:        otel.Tracer("fairreview/review"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run executes the full screen. It returns an error only for request-level
// conditions with no reviewable content; everything downstream is absorbed
// into a degraded result.
func (p *Pipeline) Run(ctx context.Context, req Request) (res RunResult, err error) {
	ctx, span := p.tracer.Start(ctx, "review.Run")
	defer span.End()

	res.Metadata.StartedAt = time.Now()
	defer func() { res.Metadata.CompletedAt = time.Now() }()

	doc := req.DocumentText
	if strings.TrimSpace(doc) == "" {
		res.Metadata.SkipReason = SkipEmptyInput
		res.Analysis = emptyAnalysis(TierNone, baseConfidence)
		return res, nil
	}
	if len(doc) > MaxDocumentChars {
		doc = doc[:MaxDocumentChars]
		res.Metadata.InputTruncated = true
	}

	scan := p.runPreScan(ctx, &res, doc)
	if !scan.NeedsFurtherAnalysis {
		res.Metadata.SkipReason = scan.SkipReason
		res.Analysis = emptyAnalysis(scan.RiskTier, baseConfidence)
		return res, nil
	}

	selected := p.runSelect(ctx, &res, doc, req)
	candidates := p.rules.PatternIssues(scan)

	if p.caller != nil {
		parsed, ok := p.runReason(ctx, &res, doc, selected)
		if ok {
			candidates = append(candidates, p.verifyQuotes(&res, doc, parsed.Issues)...)
		}
	}

	issues := p.runConsolidate(ctx, &res, candidates)
	issues = p.runCaseMatch(ctx, &res, doc, issues, req)

	res.Analysis = p.buildAnalysis(issues, scan, res.Metadata)
	span.SetAttributes(
		attribute.Int("review.total_issues", res.Analysis.TotalIssues),
		attribute.String("review.risk_tier", string(res.Analysis.RiskTier)),
		attribute.Bool("review.degraded", res.Metadata.Degraded),
	)
	return res, nil
}

func (p *Pipeline) runPreScan(ctx context.Context, res *RunResult, doc string) PreScan {
	_, span := p.tracer.Start(ctx, "review.prescan")
	defer span.End()
	scan := p.rules.Scan(doc, -1)
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, "prescan")
	span.SetAttributes(attribute.Int("review.prescan_score", scan.FinalScore))
	return scan
}

func (p *Pipeline) runSelect(ctx context.Context, res *RunResult, doc string, req Request) []ArticleScore {
	_, span := p.tracer.Start(ctx, "review.select_articles")
	defer span.End()
	selected := p.selector.Select(doc, req.Hints, req.MaxArticles)
	for _, as := range selected {
		res.Metadata.SelectedArticle = append(res.Metadata.SelectedArticle, as.ArticleID)
	}
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, "select_articles")
	return selected
}

func (p *Pipeline) runReason(ctx context.Context, res *RunResult, doc string, selected []ArticleScore) (ParsedResponse, bool) {
	ctx, span := p.tracer.Start(ctx, "review.reason")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, p.reasonTimeout)
	defer cancel()
	raw, err := callModel(callCtx, p.caller, buildReviewPrompt(doc, selected))
	if err != nil {
		// Recoverable by contract: fall back to pattern-only findings.
		log.Printf("review: reasoning call failed, degrading to pattern-only: %v", err)
		res.Metadata.Degraded = true
		span.RecordError(err)
		return ParsedResponse{}, false
	}
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, "reason")

	parsed := ParseStructuredResponse(raw)
	res.Metadata.ParserStrategy = parsed.Strategy
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, "parse")
	span.SetAttributes(attribute.String("review.parser_strategy", parsed.Strategy))
	return parsed, true
}

// verifyQuotes clears any model-supplied excerpt that does not appear
// verbatim in the document. A cleared quote keeps the issue but exempts it
// from excerpt-overlap comparison downstream.
func (p *Pipeline) verifyQuotes(res *RunResult, doc string, issues []Issue) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, is := range issues {
		if is.Quote != "" && !strings.Contains(doc, is.Quote) {
			log.Printf("review: dropping unverifiable quote on %q", is.Title)
			is.Quote = ""
			res.Metadata.DroppedQuotes++
		}
		out = append(out, is)
	}
	return out
}

func (p *Pipeline) runConsolidate(ctx context.Context, res *RunResult, candidates []Issue) []Issue {
	_, span := p.tracer.Start(ctx, "review.consolidate")
	defer span.End()
	issues := Consolidate(candidates, p.consolidate)
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, "consolidate")
	span.SetAttributes(attribute.Int("review.consolidated_issues", len(issues)))
	return issues
}

// runCaseMatch appends the lesson of the best matching precedent to each
// issue's suggestion. Retrieval misses leave the issue untouched.
func (p *Pipeline) runCaseMatch(ctx context.Context, res *RunResult, doc string, issues []Issue, req Request) []Issue {
	_, span := p.tracer.Start(ctx, "review.case_match")
	defer span.End()
	maxCases := req.MaxCases
	if maxCases <= 0 {
		maxCases = DefaultMaxCases
	}
	for i := range issues {
		query := issues[i].Title + " " + issues[i].Quote
		matches := p.matcher.Match(query, MatchOptions{MaxResults: maxCases})
		if len(matches) == 0 {
			continue
		}
		top := matches[0]
		precedent := "Precedent " + top.Case.ID + ": " + top.Case.Lesson
		if issues[i].Suggestion == "" {
			issues[i].Suggestion = precedent
		} else if !strings.Contains(issues[i].Suggestion, top.Case.ID) {
			issues[i].Suggestion += "\n" + precedent
		}
	}
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, "case_match")
	return issues
}

func (p *Pipeline) buildAnalysis(issues []Issue, scan PreScan, md RunMetadata) AnalysisResult {
	out := AnalysisResult{
		Issues:   make([]ReportedIssue, 0, len(issues)),
		RiskTier: scan.RiskTier,
	}
	manualFallback := false
	for _, is := range issues {
		if is.ManualOnly {
			manualFallback = true
		}
		out.Issues = append(out.Issues, ReportedIssue{
			ID:          is.ID,
			Title:       is.Title,
			Description: is.Description,
			Quote:       is.Quote,
			Violation:   FormatCitation(is.Articles),
			Suggestion:  is.Suggestion,
		})
	}
	out.TotalIssues = len(out.Issues)

	conf := baseConfidence
	if md.Degraded {
		conf = degradedConfidence
	}
	if manualFallback {
		conf -= manualOnlyPenalty
	}
	if conf < 0 {
		conf = 0
	}
	out.Confidence = conf
	return out
}

func emptyAnalysis(tier RiskTier, confidence float64) AnalysisResult {
	return AnalysisResult{
		TotalIssues: 0,
		Issues:      []ReportedIssue{},
		RiskTier:    tier,
		Confidence:  confidence,
	}
}
