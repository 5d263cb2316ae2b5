package review

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParsedResponse is the recovered issue listing from the upstream reasoning
// step, plus the raw text it came from.
type ParsedResponse struct {
	TotalIssues int     `json:"totalIssues"`
	Issues      []Issue `json:"issues"`
	RawResponse string  `json:"rawResponse"`
	Strategy    string  `json:"strategy"`
}

// --- wire adapter ------------------------------------------------------
//
// Upstream output varies between a report object, a bare issue array, and a
// single issue object. decodeWire normalizes all three into one shape before
// any strategy inspects fields.

type wireIssue struct {
	Title       string `json:"title"`
	Issue       string `json:"issue"`
	Problem     string `json:"problem"`
	Description string `json:"description"`
	Detail      string `json:"detail"`
	Quote       string `json:"quote"`
	Excerpt     string `json:"excerpt"`
	Original    string `json:"originalText"`
	Violation   string `json:"violation"`
	Article     string `json:"article"`
	Suggestion  string `json:"suggestion"`
	Advice      string `json:"advice"`
	Severity    string `json:"severity"`
}

// wireReport is the normalized upstream shape. ExplicitZero distinguishes a
// report that declared an empty listing from one that merely lacked the field.
type wireReport struct {
	Issues       []wireIssue
	ExplicitZero bool
}

type wireReportRaw struct {
	TotalIssues *int         `json:"totalIssues"`
	Total       *int         `json:"total"`
	Issues      *[]wireIssue `json:"issues"`
	Findings    *[]wireIssue `json:"findings"`
}

func decodeWire(data []byte) (wireReport, bool) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return wireReport{}, false
	}
	switch trimmed[0] {
	case '{':
		var raw wireReportRaw
		if err := json.Unmarshal([]byte(trimmed), &raw); err == nil {
			if raw.Issues != nil || raw.Findings != nil || raw.TotalIssues != nil || raw.Total != nil {
				rep := wireReport{}
				if raw.Issues != nil {
					rep.Issues = *raw.Issues
				} else if raw.Findings != nil {
					rep.Issues = *raw.Findings
				}
				declaredZero := (raw.TotalIssues != nil && *raw.TotalIssues == 0) || (raw.Total != nil && *raw.Total == 0)
				rep.ExplicitZero = len(rep.Issues) == 0 && (declaredZero || raw.Issues != nil || raw.Findings != nil)
				return rep, true
			}
		}
		// A single issue object.
		var wi wireIssue
		if err := json.Unmarshal([]byte(trimmed), &wi); err == nil && wi.anyTitle() != "" {
			return wireReport{Issues: []wireIssue{wi}}, true
		}
	case '[':
		var arr []wireIssue
		if err := json.Unmarshal([]byte(trimmed), &arr); err == nil {
			return wireReport{Issues: arr, ExplicitZero: len(arr) == 0}, true
		}
	}
	return wireReport{}, false
}

func (w wireIssue) anyTitle() string {
	for _, v := range []string{w.Title, w.Issue, w.Problem} {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (w wireIssue) toIssue() Issue {
	desc := firstNonBlank(w.Description, w.Detail)
	quote := firstNonBlank(w.Quote, w.Excerpt, w.Original)
	sev := Severity(strings.ToLower(strings.TrimSpace(w.Severity)))
	switch sev {
	case SeverityLow, SeverityMedium, SeverityHigh:
	default:
		sev = SeverityMedium
	}
	return Issue{
		Title:       w.anyTitle(),
		Description: desc,
		Quote:       quote,
		Articles:    extractArticleIDs(firstNonBlank(w.Violation, w.Article)),
		Severity:    sev,
		Suggestion:  firstNonBlank(w.Suggestion, w.Advice),
		Provenance:  ProvenanceParsed,
	}
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var articleIDRe = regexp.MustCompile(`(?i)article\s+(\d{1,3})`)

// extractArticleIDs pulls article numbers out of a citation-like string. Only
// numbers attached to the word "Article" count; bare digits are too noisy.
func extractArticleIDs(s string) []int {
	var out []int
	seen := map[int]struct{}{}
	for _, m := range articleIDRe.FindAllStringSubmatch(s, -1) {
		id := 0
		for _, ch := range m[1] {
			id = id*10 + int(ch-'0')
		}
		if _, dup := seen[id]; dup || ArticleByID(id) == nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// --- strategy cascade --------------------------------------------------

type parseStrategy struct {
	name string
	fn   func(raw string) (ParsedResponse, bool)
}

// Ordered cascade; the first strategy that yields at least one titled issue,
// or an explicit zero-issue determination, wins. No accumulation across
// strategies.
var parseStrategies = []parseStrategy{
	{"direct", parseDirect},
	{"bounded-object", parseBoundedObject},
	{"truncation-repair", parseTruncationRepair},
	{"array-fragments", parseArrayFragments},
	{"line-heuristics", parseLineHeuristics},
	{"no-issue", parseNoIssue},
}

// ParseStructuredResponse recovers an issue listing from unreliable upstream
// text. It never fails: the terminal fallback wraps the raw text as a single
// manual-review issue.
func ParseStructuredResponse(raw string) ParsedResponse {
	cleaned := stripCodeFences(strings.TrimSpace(raw))
	for _, s := range parseStrategies {
		if res, ok := s.fn(cleaned); ok {
			res.RawResponse = raw
			res.Strategy = s.name
			res.TotalIssues = len(res.Issues)
			return res
		}
	}
	excerpt := cleaned
	if len(excerpt) > ManualReviewExcerptCap {
		excerpt = excerpt[:ManualReviewExcerptCap]
	}
	return ParsedResponse{
		TotalIssues: 1,
		Issues: []Issue{{
			Title:       "Unparseable review output requires manual confirmation",
			Description: "The reasoning step returned output that no recovery strategy could interpret: " + excerpt,
			Severity:    SeverityLow,
			Suggestion:  "Review the original document manually.",
			Provenance:  ProvenanceParsed,
			ManualOnly:  true,
		}},
		RawResponse: raw,
		Strategy:    "manual-fallback",
	}
}

func reportToResult(rep wireReport) (ParsedResponse, bool) {
	issues := make([]Issue, 0, len(rep.Issues))
	for _, wi := range rep.Issues {
		iss := wi.toIssue()
		if iss.Title == "" {
			continue
		}
		issues = append(issues, iss)
	}
	if len(issues) == 0 {
		if rep.ExplicitZero {
			return ParsedResponse{Issues: []Issue{}}, true
		}
		return ParsedResponse{}, false
	}
	return ParsedResponse{Issues: issues}, true
}

// Strategy 1: the whole trimmed input is the expected structure.
func parseDirect(raw string) (ParsedResponse, bool) {
	rep, ok := decodeWire([]byte(raw))
	if !ok {
		return ParsedResponse{}, false
	}
	return reportToResult(rep)
}

// Strategy 2: carve the first balanced {...} out of surrounding prose.
func parseBoundedObject(raw string) (ParsedResponse, bool) {
	obj, ok := extractBalancedObject(raw)
	if !ok {
		return ParsedResponse{}, false
	}
	rep, ok := decodeWire([]byte(obj))
	if !ok {
		return ParsedResponse{}, false
	}
	return reportToResult(rep)
}

// Strategy 3: input cut off mid-object; truncate back to the last offset
// where nesting depth returned to zero and reparse.
func parseTruncationRepair(raw string) (ParsedResponse, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ParsedResponse{}, false
	}
	lastZero := -1
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				lastZero = i
			}
		}
	}
	if lastZero < 0 {
		return ParsedResponse{}, false
	}
	rep, ok := decodeWire([]byte(raw[start : lastZero+1]))
	if !ok {
		return ParsedResponse{}, false
	}
	return reportToResult(rep)
}

var issueArrayRe = regexp.MustCompile(`"(?:issues|findings)"\s*:\s*\[`)

// Strategy 4: find the issue array marker and carve each complete {...}
// object inside it independently; parse each in isolation, keep successes.
func parseArrayFragments(raw string) (ParsedResponse, bool) {
	loc := issueArrayRe.FindStringIndex(raw)
	if loc == nil {
		return ParsedResponse{}, false
	}
	issues := []Issue{}
	for _, frag := range scanObjects(raw[loc[1]:]) {
		var wi wireIssue
		if err := json.Unmarshal([]byte(frag), &wi); err != nil {
			continue
		}
		iss := wi.toIssue()
		if iss.Title == "" {
			continue
		}
		issues = append(issues, iss)
	}
	if len(issues) == 0 {
		return ParsedResponse{}, false
	}
	return ParsedResponse{Issues: issues}, true
}

var (
	issueHeaderRe = regexp.MustCompile(`(?mi)^\s*(?:issue|finding|problem|violation)\s*(?:#|no\.?\s*)?\d+|^\s*\d+\s*[.、)]\s+`)
	fieldLabelRes = map[string]*regexp.Regexp{
		"title":       regexp.MustCompile(`(?mi)^\s*(?:title|issue|problem)\s*[:：]\s*(.+)$`),
		"description": regexp.MustCompile(`(?mi)^\s*(?:description|detail|analysis)\s*[:：]\s*(.+)$`),
		"quote":       regexp.MustCompile(`(?mi)^\s*(?:quote|excerpt|original(?:\s+text)?)\s*[:：]\s*(.+)$`),
		"violation":   regexp.MustCompile(`(?mi)^\s*(?:violation|violates|article|citation)\s*[:：]\s*(.+)$`),
		"suggestion":  regexp.MustCompile(`(?mi)^\s*(?:suggestion|recommendation|advice)\s*[:：]\s*(.+)$`),
	}
)

// Strategy 5: no structure survived; split on recognizable per-issue header
// lines and pull labelled sub-fields out of each segment.
func parseLineHeuristics(raw string) (ParsedResponse, bool) {
	headers := issueHeaderRe.FindAllStringIndex(raw, -1)
	if len(headers) == 0 {
		return ParsedResponse{}, false
	}
	issues := []Issue{}
	for i, h := range headers {
		end := len(raw)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		segment := raw[h[0]:end]
		iss := Issue{Provenance: ProvenanceParsed, Severity: SeverityMedium}
		iss.Title = firstSubmatch(fieldLabelRes["title"], segment)
		iss.Description = firstSubmatch(fieldLabelRes["description"], segment)
		iss.Quote = strings.Trim(firstSubmatch(fieldLabelRes["quote"], segment), `"“”`)
		iss.Suggestion = firstSubmatch(fieldLabelRes["suggestion"], segment)
		iss.Articles = extractArticleIDs(firstSubmatch(fieldLabelRes["violation"], segment))
		if iss.Title == "" {
			// Fall back to the header line itself, minus the numbering.
			line := strings.TrimSpace(strings.SplitN(segment, "\n", 2)[0])
			line = strings.TrimLeft(line, "0123456789.、) \t#")
			if strings.TrimSpace(line) != "" {
				iss.Title = strings.TrimSpace(line)
			}
		}
		if iss.Title == "" {
			continue
		}
		if iss.Description == "" {
			iss.Description = strings.TrimSpace(segment)
		}
		issues = append(issues, iss)
	}
	if len(issues) == 0 {
		return ParsedResponse{}, false
	}
	return ParsedResponse{Issues: issues}, true
}

var noIssuePhrases = []string{
	"no violation",
	"no violations",
	"no issues found",
	"no issue found",
	"no compliance issues",
	"no problems identified",
	"does not violate",
	"did not identify any",
	"fully compliant",
	"passes the review",
}

// Strategy 6: an explicit all-clear in prose counts as a zero-issue result.
func parseNoIssue(raw string) (ParsedResponse, bool) {
	lower := strings.ToLower(raw)
	for _, phrase := range noIssuePhrases {
		if strings.Contains(lower, phrase) {
			return ParsedResponse{Issues: []Issue{}}, true
		}
	}
	return ParsedResponse{}, false
}

func firstSubmatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// extractBalancedObject returns the substring from the first '{' to its
// matching '}', honouring string-literal and escape state.
func extractBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// scanObjects carves every complete top-level {...} object out of s, stopping
// at the closing ']' of the enclosing array when one appears.
func scanObjects(s string) []string {
	out := []string{}
	depth := 0
	inString := false
	escaped := false
	objStart := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				objStart = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && objStart >= 0 {
				out = append(out, s[objStart:i+1])
				objStart = -1
			}
		case ']':
			if depth == 0 {
				return out
			}
		}
	}
	return out
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
