package review

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// BuildMarkdown renders a run into the review report consumed by the renderer
// and the audit log.
func BuildMarkdown(result RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Fair Competition Review Report\n\n")
	fmt.Fprintf(&b, "- Date: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Risk tier: **%s**\n", result.Analysis.RiskTier)
	fmt.Fprintf(&b, "- Issues found: **%d**\n", result.Analysis.TotalIssues)
	fmt.Fprintf(&b, "- Confidence: %.2f\n\n", result.Analysis.Confidence)
	fmt.Fprintf(&b, "%s\n\n", Disclaimer)

	fmt.Fprintf(&b, "## Executive Summary\n\n")
	switch {
	case result.Metadata.SkipReason != "":
		fmt.Fprintf(&b, "The document was not screened in depth (%s).\n", skipReasonText(result.Metadata.SkipReason))
	case result.Analysis.TotalIssues == 0:
		fmt.Fprintf(&b, "No provisions restricting fair competition were identified.\n")
	default:
		fmt.Fprintf(&b, "%d provision(s) may restrict fair competition and require revision before issuance.\n", result.Analysis.TotalIssues)
	}
	if result.Metadata.Degraded {
		fmt.Fprintf(&b, "The reasoning step was unavailable; findings rely on pattern screening only.\n")
	}
	if result.Metadata.InputTruncated {
		fmt.Fprintf(&b, "Input was truncated to %d characters before screening.\n", MaxDocumentChars)
	}
	b.WriteString("\n")

	if result.Analysis.TotalIssues > 0 {
		fmt.Fprintf(&b, "## Findings\n\n")
		for _, is := range result.Analysis.Issues {
			fmt.Fprintf(&b, "### %d. %s\n\n", is.ID, sanitizeLine(is.Title))
			fmt.Fprintf(&b, "- Basis: %s\n", orDash(is.Violation))
			fmt.Fprintf(&b, "- Analysis: %s\n", sanitizeLine(is.Description))
			if is.Quote != "" {
				fmt.Fprintf(&b, "- Provision: > %s\n", sanitizeLine(is.Quote))
			}
			if is.Suggestion != "" {
				fmt.Fprintf(&b, "- Suggested revision: %s\n", sanitizeLine(is.Suggestion))
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "## Recommended Next Steps\n\n")
	switch result.Analysis.RiskTier {
	case TierHigh:
		fmt.Fprintf(&b, "Suspend issuance and submit the flagged provisions to the reviewing authority.\n")
	case TierMedium:
		fmt.Fprintf(&b, "Revise the flagged provisions and re-run the screen before issuance.\n")
	case TierLow:
		fmt.Fprintf(&b, "Confirm the low-risk findings with the drafting unit; issuance may proceed after confirmation.\n")
	default:
		fmt.Fprintf(&b, "No competition concerns were detected; proceed with the normal issuance process.\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Appendix\n\n")
	fmt.Fprintf(&b, "### Run Metadata (JSON)\n\n```json\n%s\n```\n", prettyJSON(result.Metadata))
	return b.String()
}

func skipReasonText(reason string) string {
	switch reason {
	case SkipEmptyInput:
		return "the submitted document was empty"
	case SkipInputTooShort:
		return "the submitted document was too short to review"
	case SkipNoPolicyIndicators:
		return "the document contains no policy-measure vocabulary"
	default:
		return reason
	}
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func sanitizeLine(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if s == "" {
		return "-"
	}
	return s
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
