// Package renderer turns a review report into standalone HTML and, when a
// Chromium binary is available, into PDF.
package renderer

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const baseCSS = `
body{font-family:Georgia,serif;color:#1c1917;max-width:880px;margin:0 auto;padding:1rem 1.2rem;line-height:1.55;}
h1{font-size:1.5rem;border-bottom:2px solid #92400e;padding-bottom:0.4rem;}
h2{font-size:1.15rem;margin-top:1.6rem;}
h3{font-size:1rem;}
blockquote{border-left:3px solid #a8a29e;margin:0.5rem 0;padding:0.2rem 0.8rem;color:#44403c;background:#fafaf9;}
code,pre{font-family:ui-monospace,monospace;font-size:0.82rem;}
pre{background:#f5f5f4;border:1px solid #d6d3d1;padding:0.6rem;overflow-x:auto;}
table{width:100%;border-collapse:collapse;font-size:0.85rem;}
th,td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
.report-badge{display:inline-block;background:#fef3c7;color:#78350f;border:1px solid #fcd34d;border-radius:4px;padding:0.1rem 0.5rem;font-size:0.8rem;margin-right:0.4rem;}
html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}
@media print{ @page{size:auto;margin:12mm;} }
`

// BuildHTML converts the report markdown into a complete HTML document with
// a tier badge in the header.
func BuildHTML(reportMarkdown, riskTier string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(reportMarkdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	contentHTML := applyPrintLayoutHooks(content.String())

	badge := ""
	if strings.TrimSpace(riskTier) != "" {
		badge = "<span class='report-badge'>Risk tier: " + html.EscapeString(riskTier) + "</span>"
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>Fair Competition Review Report</title>" +
		"<style>" + baseCSS + "</style></head><body>" +
		"<div class='report-badges'>" + badge + "</div>" +
		"<div class='report-html'>" + contentHTML + "</div>" +
		"</body></html>", nil
}

var findingHeadingRe = regexp.MustCompile(`(?i)<h3([^>]*)>\s*(\d+\.[^<]*)\s*</h3>`)

// applyPrintLayoutHooks keeps each finding heading attached to its body when
// printed.
func applyPrintLayoutHooks(contentHTML string) string {
	return findingHeadingRe.ReplaceAllString(contentHTML, `<h3$1 style="break-after:avoid;">$2</h3>`)
}
