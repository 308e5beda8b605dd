package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/resource-recommender/internal/ai"
	"github.com/spigell/resource-recommender/internal/utils"
	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

type Recommender struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	sectorsPlaceholder  = "{{SECTORS_JSON}}"
)

func NewRecommender(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Recommender {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Recommender{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Recommend asks the model to select and score resources for the sectors.
// Only the sector names are sent; the model is not given the store rows.
func (r *Recommender) Recommend(ctx context.Context, sectors []string) (*ai.Recommendation, error) {
	if r.generator == nil {
		return nil, fmt.Errorf("content generator is not configured")
	}

	prompt, err := BuildPrompt(sectors)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("gemini generate content request",
		zap.Strings("sectors", sectors),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, r.maxLogLen)),
	)

	return ParseRecommendation(raw)
}

// BuildPrompt renders the instruction template for the sector selection.
func BuildPrompt(sectors []string) (string, error) {
	sectorsJSON, err := json.Marshal(sectors)
	if err != nil {
		return "", fmt.Errorf("marshal sectors: %w", err)
	}

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Sectors:\n{{SECTORS_JSON}}\n\nJSON Response:"
	}

	return strings.ReplaceAll(template, sectorsPlaceholder, string(sectorsJSON)), nil
}

// Sanitize removes every code fence marker ("```json" and bare "```") from
// the model output and trims the surrounding whitespace.
func Sanitize(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

// ParseRecommendation sanitizes the model output and decodes it as JSON.
func ParseRecommendation(raw string) (*ai.Recommendation, error) {
	var value any
	if err := json.Unmarshal([]byte(Sanitize(raw)), &value); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	return &ai.Recommendation{Value: value, Raw: raw}, nil
}
