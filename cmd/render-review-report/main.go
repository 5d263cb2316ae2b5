package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"fairreview/internal/audit"
	"fairreview/internal/renderer"
	"fairreview/internal/review"
)

func main() {
	inputPath := flag.String("input", "", "Path to a saved run result JSON")
	auditDB := flag.String("audit-db", "", "SQLite audit log to read a record from")
	recordID := flag.String("record", "", "Audit record id (requires -audit-db)")
	outputPath := flag.String("output", "", "Path to write rebuilt markdown (defaults to stdout)")
	htmlPath := flag.String("html", "", "Optional path to write rendered HTML")
	pdfPath := flag.String("pdf", "", "Optional path to write rendered PDF (needs Chromium)")
	flag.Parse()

	markdown, tier, err := loadReport(*inputPath, *auditDB, *recordID)
	if err != nil {
		log.Fatal(err)
	}

	if err := writeMarkdown(*outputPath, markdown); err != nil {
		log.Fatalf("write markdown: %v", err)
	}
	if *htmlPath != "" {
		doc, err := renderer.BuildHTML(markdown, tier)
		if err != nil {
			log.Fatalf("render html: %v", err)
		}
		if err := os.WriteFile(*htmlPath, []byte(doc), 0o644); err != nil {
			log.Fatalf("write html: %v", err)
		}
	}
	if *pdfPath != "" {
		pdf, err := renderer.NewChromiumPDFRenderer().Render(context.Background(), markdown, tier)
		if err != nil {
			log.Fatalf("render pdf: %v", err)
		}
		if err := os.WriteFile(*pdfPath, pdf, 0o644); err != nil {
			log.Fatalf("write pdf: %v", err)
		}
	}
}

func loadReport(inputPath, auditDB, recordID string) (markdown, tier string, err error) {
	switch {
	case inputPath != "":
		in, err := os.ReadFile(inputPath)
		if err != nil {
			return "", "", fmt.Errorf("read input: %w", err)
		}
		var result review.RunResult
		if err := json.Unmarshal(in, &result); err != nil {
			return "", "", fmt.Errorf("decode input JSON: %w", err)
		}
		return review.BuildMarkdown(result), string(result.Analysis.RiskTier), nil
	case auditDB != "" && recordID != "":
		store, err := audit.Open(auditDB)
		if err != nil {
			return "", "", err
		}
		defer store.Close()
		rec, err := store.Get(recordID)
		if err != nil {
			return "", "", err
		}
		return rec.ReportMarkdown, rec.RiskTier, nil
	default:
		return "", "", fmt.Errorf("missing required -input, or -audit-db with -record")
	}
}

func writeMarkdown(outputPath, markdown string) error {
	if outputPath == "" {
		_, err := fmt.Print(markdown)
		return err
	}
	return os.WriteFile(outputPath, []byte(markdown), 0o644)
}
