package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vpr16/jobminer/internal/model"
)

// LLMExtractor implements model.DescriptionExtractor using a text-generation
// provider. The provider is untrusted: its reply only has to be JSON, and each
// attribute is coerced on its own.
type LLMExtractor struct {
	provider    Provider
	instruction string
	logger      *slog.Logger
}

// NewLLMExtractor creates an extractor that sends the standard instruction
// turn followed by the description.
func NewLLMExtractor(provider Provider, logger *slog.Logger) *LLMExtractor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LLMExtractor{
		provider:    provider,
		instruction: ExtractAttributesInstruction(),
		logger:      logger,
	}
}

// Extract returns the attributes found in description. An unparseable reply
// is logged and yields an empty extraction with a nil error; provider
// failures are returned as errors.
func (e *LLMExtractor) Extract(ctx context.Context, description string) (model.Extraction, error) {
	if strings.TrimSpace(description) == "" {
		return model.Extraction{}, nil
	}

	raw, err := e.provider.Complete(ctx, e.instruction, description)
	if err != nil {
		return model.Extraction{}, fmt.Errorf("llm complete: %w", err)
	}

	attrs, err := ParseAttributes(raw)
	if err != nil {
		e.logger.Warn("discarding unparseable llm reply", "raw", raw, "error", err)
		return model.Extraction{}, nil
	}

	return model.Extraction{Attributes: attrs}, nil
}

// ParseAttributes trims the reply, drops a surrounding markdown code fence,
// and decodes it as JSON. Only a JSON syntax error is an error: fields with
// the wrong type become nil, and a non-object payload yields empty attributes.
func ParseAttributes(raw string) (*model.ExtractedAttributes, error) {
	var payload any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal attributes JSON: %w", err)
	}

	attrs := &model.ExtractedAttributes{}
	obj, ok := payload.(map[string]any)
	if !ok {
		return attrs, nil
	}

	attrs.Field = stringValue(obj["field"])
	attrs.DegreeLevel = degreeValue(obj["degree"])
	attrs.StartDate = dateValue(obj["start_date"])
	attrs.Duration = stringValue(obj["duration"])
	attrs.Requirements = stringsValue(obj["requirements"])

	return attrs, nil
}

// stripCodeFence removes ```json ... ``` wrappers some models add anyway.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}

func stringValue(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func degreeValue(v any) *int {
	var n int
	switch d := v.(type) {
	case float64:
		if d != math.Trunc(d) {
			return nil
		}
		n = int(d)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(d))
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	if n < model.DegreeNone || n > model.DegreeDoctorate {
		return nil
	}
	return &n
}

func dateValue(v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if len(s) > len(model.DateLayout) {
		// tolerate full timestamps
		s = s[:len(model.DateLayout)]
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func stringsValue(v any) []string {
	switch items := v.(type) {
	case string:
		if s := stringValue(items); s != nil {
			return []string{*s}
		}
	case []any:
		var out []string
		for _, item := range items {
			if s := stringValue(item); s != nil {
				out = append(out, *s)
			}
		}
		return out
	}
	return nil
}
