package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chanlytics/channel-analysis-go/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// fallbackConfidence is used when the provider omits a confidence score.
const fallbackConfidence = 0.5

// TextGenerator is the generative analysis provider surface: one structured
// text prompt in, raw text (expected to contain JSON) out.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (text string, modelVersion string, err error)
}

// GeneratedAnalysis is the validated payload parsed from the provider output.
type GeneratedAnalysis struct {
	Summary         string   `json:"summary"`
	Themes          []string `json:"themes"`
	TargetAudience  string   `json:"target_audience"`
	ContentStyle    string   `json:"content_style"`
	UploadFrequency string   `json:"upload_frequency"`
	Confidence      float64  `json:"-"`
	ModelVersion    string   `json:"-"`
}

// Generator wraps the generative provider with retries and payload validation.
type Generator struct {
	llm              TextGenerator
	minSummaryLength int
	maxAttempts      uint64
	log              *zap.Logger
}

// NewGenerator creates a Generator. maxAttempts bounds retries against
// transient provider failures; validation failures get exactly one extra
// generation with the same prompt.
func NewGenerator(llm TextGenerator, minSummaryLength, maxAttempts int, log *zap.Logger) *Generator {
	if minSummaryLength <= 0 {
		minSummaryLength = 100
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		llm:              llm,
		minSummaryLength: minSummaryLength,
		maxAttempts:      uint64(maxAttempts),
		log:              log,
	}
}

// Generate submits the prompt and returns a validated analysis payload.
func (g *Generator) Generate(ctx context.Context, prompt string) (*GeneratedAnalysis, error) {
	start := time.Now()

	result, err := g.generateOnce(ctx, prompt)
	if err != nil && isValidationErr(err) {
		// One retry with the same prompt before giving up on the payload.
		g.log.Warn("analysis payload failed validation, retrying generation", zap.Error(err))
		result, err = g.generateOnce(ctx, prompt)
	}

	metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.GenerationsTotal.WithLabelValues("ok").Inc()
	return result, nil
}

func (g *Generator) generateOnce(ctx context.Context, prompt string) (*GeneratedAnalysis, error) {
	var text, modelVersion string

	operation := func() error {
		var err error
		text, modelVersion, err = g.llm.GenerateContent(ctx, prompt)
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), g.maxAttempts-1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("generate analysis: %w", err)
	}

	result, err := g.parseAndValidate(text)
	if err != nil {
		return nil, err
	}
	result.ModelVersion = modelVersion
	return result, nil
}

func (g *Generator) parseAndValidate(text string) (*GeneratedAnalysis, error) {
	jsonText := extractJSON(text)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON object in provider response: %w", ErrValidation)
	}

	var raw struct {
		GeneratedAnalysis
		ConfidenceScore *float64 `json:"confidence_score"`
	}
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, fmt.Errorf("parse provider response: %v: %w", err, ErrValidation)
	}

	result := raw.GeneratedAnalysis

	if len([]rune(result.Summary)) < g.minSummaryLength {
		return nil, fmt.Errorf("summary below %d characters: %w", g.minSummaryLength, ErrValidation)
	}
	if len(result.Themes) == 0 {
		return nil, fmt.Errorf("themes list empty: %w", ErrValidation)
	}

	// Confidence is conservative-defaulted when absent, clamped when out of
	// range, never grounds for rejection.
	switch {
	case raw.ConfidenceScore == nil:
		result.Confidence = fallbackConfidence
	case *raw.ConfidenceScore < 0:
		result.Confidence = 0
	case *raw.ConfidenceScore > 1:
		result.Confidence = 1
	default:
		result.Confidence = *raw.ConfidenceScore
	}

	return &result, nil
}

// extractJSON pulls the JSON object out of a raw model response, handling
// markdown code fences and bare-object replies.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return ""
}

func isValidationErr(err error) bool {
	return errors.Is(err, ErrValidation)
}
