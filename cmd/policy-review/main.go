package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"fairreview/internal/audit"
	"fairreview/internal/cache"
	"fairreview/internal/renderer"
	"fairreview/internal/review"
	"fairreview/internal/telemetry"
)

func main() {
	input := flag.String("input", "", "Path to the draft measure text ('-' or empty reads stdin)")
	hints := flag.String("hints", "", "Comma-separated semantic hints for article selection")
	maxArticles := flag.Int("max-articles", 0, "Maximum articles to select (0 = default)")
	maxCases := flag.Int("max-cases", 0, "Maximum precedent cases per issue (0 = default)")
	jsonOut := flag.String("json", "", "Write the run result JSON to this path ('-' for stdout)")
	reportOut := flag.String("report", "", "Write the markdown report to this path")
	pdfOut := flag.String("pdf", "", "Render the report to PDF at this path (needs Chromium)")
	auditDB := flag.String("audit-db", "", "SQLite path for the audit log (empty disables)")
	noLLM := flag.Bool("no-llm", false, "Skip the reasoning call and run pattern screening only")
	timeout := flag.Duration("timeout", 60*time.Second, "Reasoning call timeout")
	flag.Parse()

	// Missing .env is fine; explicit environment wins either way.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, "policy-review")
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	doc, err := readInput(*input)
	if err != nil {
		log.Fatal(err)
	}

	memo := cache.NewTTLCache(cache.DefaultTTL)
	defer memo.Stop()
	opts := []review.PipelineOption{
		review.WithCache(memo),
		review.WithReasonTimeout(*timeout),
	}
	if !*noLLM {
		caller, err := review.NewAnthropicCallerFromEnv()
		if err != nil {
			log.Printf("reasoning disabled: %v", err)
		} else {
			opts = append(opts, review.WithCaller(caller))
		}
	}
	pipeline, err := review.NewPipeline(opts...)
	if err != nil {
		log.Fatal(err)
	}

	result, err := pipeline.Run(ctx, review.Request{
		DocumentText: doc,
		Hints:        splitHints(*hints),
		MaxArticles:  *maxArticles,
		MaxCases:     *maxCases,
	})
	if err != nil {
		log.Fatal(err)
	}

	report := review.BuildMarkdown(result)
	printSummary(result)

	if *jsonOut != "" {
		if err := writeJSON(*jsonOut, result); err != nil {
			log.Fatal(err)
		}
	}
	if *reportOut != "" {
		if err := os.WriteFile(*reportOut, []byte(report), 0o644); err != nil {
			log.Fatal(err)
		}
		log.Printf("report written to %s", *reportOut)
	}
	if *pdfOut != "" {
		pdf, err := renderer.NewChromiumPDFRenderer().Render(ctx, report, string(result.Analysis.RiskTier))
		if err != nil {
			log.Fatalf("pdf render: %v", err)
		}
		if err := os.WriteFile(*pdfOut, pdf, 0o644); err != nil {
			log.Fatal(err)
		}
		log.Printf("pdf written to %s", *pdfOut)
	}
	if *auditDB != "" {
		store, err := audit.Open(*auditDB)
		if err != nil {
			log.Fatal(err)
		}
		defer store.Close()
		rec, err := store.Save(result, report)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("audit record %s saved", rec.ID)
	}

	if result.Analysis.TotalIssues > 0 {
		os.Exit(1)
	}
}

func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func splitHints(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}

func writeJSON(path string, result review.RunResult) error {
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(append(b, '\n'))
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func printSummary(result review.RunResult) {
	tierColor := color.New(color.FgGreen)
	switch result.Analysis.RiskTier {
	case review.TierHigh:
		tierColor = color.New(color.FgRed, color.Bold)
	case review.TierMedium:
		tierColor = color.New(color.FgYellow, color.Bold)
	case review.TierLow:
		tierColor = color.New(color.FgYellow)
	}

	fmt.Fprintf(os.Stderr, "Risk tier: %s  Issues: %d  Confidence: %.2f\n",
		tierColor.Sprint(result.Analysis.RiskTier), result.Analysis.TotalIssues, result.Analysis.Confidence)
	if result.Metadata.Degraded {
		color.New(color.FgYellow).Fprintln(os.Stderr, "reasoning step unavailable; pattern-only findings")
	}
	if result.Metadata.SkipReason != "" {
		fmt.Fprintf(os.Stderr, "skipped: %s\n", result.Metadata.SkipReason)
	}
	for _, is := range result.Analysis.Issues {
		fmt.Fprintf(os.Stderr, "  %d. %s", is.ID, is.Title)
		if is.Violation != "" {
			fmt.Fprintf(os.Stderr, " (%s)", is.Violation)
		}
		fmt.Fprintln(os.Stderr)
	}
}
