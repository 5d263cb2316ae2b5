package review

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const reviewSystemPrompt = "You are a fair-competition review assistant screening draft policy measures " +
	"against the Fair Competition Review Regulation. Respond with strict JSON only."

type llmFailureClass int

const (
	failureNone llmFailureClass = iota
	failureTimeout
	failureRateLimit
	failureServer
	failureClient
)

// LLMCaller is the seam between the orchestrator and the reasoning model.
// Implementations return the raw model text; the parser cascade owns recovery
// from malformed output.
type LLMCaller interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

type AnthropicCaller struct {
	messages AnthropicMessager
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

func NewAnthropicCallerFromEnv() (*AnthropicCaller, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	return &AnthropicCaller{messages: newAnthropicClient(apiKey)}, nil
}

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.ModelClaudeSonnet4_20250514,
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: reviewSystemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// callModel invokes the caller with transport-level retries. Timeouts, rate
// limits, and 5xx are retried with backoff; everything else fails fast. Any
// terminal failure surfaces as ErrUpstreamUnavailable so the orchestrator can
// degrade instead of aborting.
func callModel(ctx context.Context, caller LLMCaller, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		raw, err := caller.GenerateJSON(ctx, prompt)
		if err == nil {
			if strings.TrimSpace(raw) == "" {
				lastErr = errors.New("empty response")
				if attempt < 3 {
					continue
				}
				break
			}
			return raw, nil
		}
		lastErr = err
		class := classifyTransportError(err)
		if class != failureTimeout && class != failureRateLimit && class != failureServer {
			break
		}
		if attempt < 3 {
			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, ctx.Err())
			}
		}
	}
	return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, lastErr)
}

// buildReviewPrompt embeds the top-ranked articles and the expected response
// schema. Article texts keep the model grounded on the actual clauses instead
// of its own recollection of the regulation.
func buildReviewPrompt(document string, selected []ArticleScore) string {
	var sb strings.Builder
	sb.WriteString("Review the following draft policy measure for provisions that restrict fair competition.\n\n")
	sb.WriteString("Relevant review standards, most likely first:\n")
	for _, as := range selected {
		art := ArticleByID(as.ArticleID)
		if art == nil {
			continue
		}
		fmt.Fprintf(&sb, "- Article %d (%s): %s\n", art.ID, art.Title, art.Text)
	}
	sb.WriteString("\nDraft measure text:\n\"\"\"\n")
	sb.WriteString(document)
	sb.WriteString("\n\"\"\"\n\n")
	sb.WriteString(`Respond with JSON of this exact shape:
{
  "totalIssues": <int>,
  "issues": [
    {
      "title": "<short issue title>",
      "description": "<why this provision restricts competition>",
      "quote": "<verbatim excerpt from the measure text>",
      "violation": "Article <N>",
      "suggestion": "<concrete revision advice>",
      "severity": "low|medium|high"
    }
  ]
}
Quote only text that appears verbatim in the measure. If nothing restricts competition, return {"totalIssues": 0, "issues": []}.`)
	return sb.String()
}

func classifyTransportError(err error) llmFailureClass {
	msg := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failureTimeout
	}
	switch {
	case strings.Contains(msg, "429"):
		return failureRateLimit
	case strings.Contains(msg, " 5") || strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server error"):
		return failureServer
	case strings.Contains(msg, " 4") || strings.Contains(msg, "status code: 4"):
		return failureClient
	default:
		return failureServer
	}
}

func backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 1 * time.Second
	}
	return 2 * time.Second
}
