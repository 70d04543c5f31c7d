package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"attrix/internal/domain"
)

// fuzzyAcceptThreshold is the minimum similarity score at which a
// non-exact vocabulary candidate is accepted.
const fuzzyAcceptThreshold = 0.8

// ParseError indicates the model returned something that is not the expected
// JSON shape. The orchestrator treats it as retryable.
type ParseError struct {
	Err error
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing model output: %v (raw: %s)", e.Err, truncate(e.Raw, 200))
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Outcome is the validated result of one model response.
type Outcome struct {
	Attributes        map[string]domain.AttributeResult
	OverallConfidence int
}

// Validator normalizes raw model output against a category schema.
type Validator struct{}

// New creates a Validator.
func New() *Validator {
	return &Validator{}
}

// fieldPayload is the per-attribute shape the prompt asks the model for.
type fieldPayload struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// responsePayload is the top-level shape the prompt asks the model for.
type responsePayload struct {
	Attributes        map[string]fieldPayload `json:"attributes"`
	OverallConfidence float64                 `json:"overall_confidence"`
}

// Validate parses rawContent, matches each field against the schema, and
// normalizes confidences. A malformed response yields a *ParseError.
func (v *Validator) Validate(rawContent string, schema *domain.CategorySchema) (*Outcome, error) {
	content := StripCodeFence(rawContent)

	var payload responsePayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, &ParseError{Err: err, Raw: rawContent}
	}
	if payload.Attributes == nil {
		// Tolerate models that skip the wrapper and emit the field map directly.
		var bare map[string]fieldPayload
		if err := json.Unmarshal([]byte(content), &bare); err != nil || len(bare) == 0 {
			return nil, &ParseError{Err: fmt.Errorf("missing attributes object"), Raw: rawContent}
		}
		payload.Attributes = bare
	}

	attrs := make(map[string]domain.AttributeResult, len(schema.Fields))
	sum, counted := 0, 0

	for _, field := range schema.Fields {
		fp, ok := payload.Attributes[field.Key]
		if !ok {
			attrs[field.Key] = domain.AttributeResult{IsValid: false}
			continue
		}
		result := v.validateField(field, fp)
		attrs[field.Key] = result
		if result.Confidence > 0 {
			sum += result.Confidence
			counted++
		}
	}

	overall := 0
	if counted > 0 {
		overall = int(math.Round(float64(sum) / float64(counted)))
	}

	return &Outcome{Attributes: attrs, OverallConfidence: overall}, nil
}

func (v *Validator) validateField(field domain.AttributeField, fp fieldPayload) domain.AttributeResult {
	raw := stringifyValue(fp.Value)
	result := domain.AttributeResult{
		RawValue:   raw,
		Confidence: NormalizeConfidence(fp.Confidence),
		Reasoning:  fp.Reasoning,
	}

	switch field.Type {
	case domain.FieldTypeNumber:
		if n, ok := parseNumber(raw); ok {
			result.NormalizedValue = n
			result.IsValid = true
		}
	case domain.FieldTypeSelect:
		if short, ok := matchAllowed(raw, field.AllowedValues); ok {
			result.NormalizedValue = short
			result.IsValid = true
		}
	default: // text
		result.NormalizedValue = raw
		result.IsValid = raw != ""
	}

	return result
}

// matchAllowed resolves a raw value against a controlled vocabulary: exact
// case-sensitive, then case-insensitive, against short and full forms; then
// the best fuzzy candidate if it scores above the acceptance threshold.
func matchAllowed(raw string, allowed []domain.AllowedValue) (string, bool) {
	if raw == "" || len(allowed) == 0 {
		return "", false
	}

	for _, av := range allowed {
		if raw == av.ShortForm || raw == av.FullForm {
			return av.ShortForm, true
		}
	}
	for _, av := range allowed {
		if strings.EqualFold(raw, av.ShortForm) || strings.EqualFold(raw, av.FullForm) {
			return av.ShortForm, true
		}
	}

	lower := strings.ToLower(raw)
	bestScore := 0.0
	bestShort := ""
	for _, av := range allowed {
		score := Similarity(lower, strings.ToLower(av.ShortForm))
		if f := Similarity(lower, strings.ToLower(av.FullForm)); f > score {
			score = f
		}
		if score > bestScore {
			bestScore = score
			bestShort = av.ShortForm
		}
	}
	if bestScore > fuzzyAcceptThreshold {
		return bestShort, true
	}
	return "", false
}

// NormalizeConfidence maps a model-reported confidence onto an integer in
// [0,100]: fractional values in (0,1] are scaled by 100, everything is
// clamped and rounded.
func NormalizeConfidence(c float64) int {
	if c > 0 && c <= 1 {
		c *= 100
	}
	if c < 0 {
		c = 0
	}
	if c > 100 {
		c = 100
	}
	return int(math.Round(c))
}

// parseNumber strips non-numeric characters and parses the remainder.
func parseNumber(raw string) (float64, bool) {
	var sb strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			sb.WriteRune(r)
		}
	}
	cleaned := sb.String()
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// StripCodeFence removes an optional markdown code fence wrapping.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// drop the language tag line ("json", "JSON", or empty)
		first := strings.TrimSpace(trimmed[:idx])
		if len(first) <= 8 {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func stringifyValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
