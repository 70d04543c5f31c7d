package prompt

import (
	"fmt"
	"strings"
	"sync"

	"attrix/internal/domain"
)

const (
	defaultMaxFields        = 15
	defaultMaxAllowedValues = 8

	// Prompt memo bounds: FIFO eviction back to lowWater once highWater is hit.
	cacheHighWater = 64
	cacheLowWater  = 48
)

// Config bounds the prompt size independent of schema size.
type Config struct {
	MaxFields        int
	MaxAllowedValues int
}

// Builder turns a category schema into a deterministic extraction prompt.
// Prompts are memoized per schema fingerprint (schema id + field count) in a
// bounded FIFO cache.
type Builder struct {
	cfg Config

	mu    sync.Mutex
	memo  map[string]string
	order []string
}

// NewBuilder creates a Builder with sane fallbacks for zero config values.
func NewBuilder(cfg Config) *Builder {
	if cfg.MaxFields <= 0 {
		cfg.MaxFields = defaultMaxFields
	}
	if cfg.MaxAllowedValues <= 0 {
		cfg.MaxAllowedValues = defaultMaxAllowedValues
	}
	return &Builder{
		cfg:  cfg,
		memo: make(map[string]string),
	}
}

// Fingerprint is the prompt-cache identity of a schema.
func Fingerprint(s *domain.CategorySchema) string {
	return fmt.Sprintf("%s:%d", s.ID, len(s.Fields))
}

// Build returns the extraction prompt for schema. Identical schema identity
// yields an identical prompt.
func (b *Builder) Build(schema *domain.CategorySchema) string {
	fp := Fingerprint(schema)

	b.mu.Lock()
	if p, ok := b.memo[fp]; ok {
		b.mu.Unlock()
		return p
	}
	b.mu.Unlock()

	p := b.render(schema)

	b.mu.Lock()
	if _, ok := b.memo[fp]; !ok {
		b.memo[fp] = p
		b.order = append(b.order, fp)
		if len(b.memo) > cacheHighWater {
			b.trimLocked()
		}
	}
	b.mu.Unlock()

	return p
}

// CacheSize returns the number of memoized prompts.
func (b *Builder) CacheSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.memo)
}

// trimLocked evicts oldest entries until the memo is back at the low-water mark.
func (b *Builder) trimLocked() {
	for len(b.memo) > cacheLowWater && len(b.order) > 0 {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.memo, oldest)
	}
}

func (b *Builder) render(schema *domain.CategorySchema) string {
	fields := schema.Fields
	if len(fields) > b.cfg.MaxFields {
		fields = fields[:b.cfg.MaxFields]
	}

	var sb strings.Builder
	sb.WriteString("You are a product attribute extraction assistant. Analyze the provided product image and extract the attributes listed below.\n\n")
	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("- Extract a value for EVERY attribute. If an attribute is not discernible from the image, use an empty string with confidence 0.\n")
	sb.WriteString("- For select attributes, choose ONLY from the listed allowed values and answer with the short form.\n")
	sb.WriteString("- For number attributes, answer with a plain number and no units.\n")
	sb.WriteString("- Confidence is an integer from 0 to 100.\n\n")
	sb.WriteString("ATTRIBUTES:\n")

	for _, f := range fields {
		label := f.Label
		if label == "" {
			label = f.Key
		}
		sb.WriteString(fmt.Sprintf("- %q (%s): %s", f.Key, f.Type, label))
		if f.Required {
			sb.WriteString(" [required]")
		}
		if f.Type == domain.FieldTypeSelect && len(f.AllowedValues) > 0 {
			values := f.AllowedValues
			if len(values) > b.cfg.MaxAllowedValues {
				values = values[:b.cfg.MaxAllowedValues]
			}
			parts := make([]string, 0, len(values))
			for _, v := range values {
				if v.FullForm != "" && v.FullForm != v.ShortForm {
					parts = append(parts, fmt.Sprintf("%s (%s)", v.ShortForm, v.FullForm))
				} else {
					parts = append(parts, v.ShortForm)
				}
			}
			sb.WriteString(". Allowed values: " + strings.Join(parts, ", "))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nReturn ONLY valid JSON with no markdown formatting, no code fences, no explanation. Just the raw JSON object.\n\n")
	sb.WriteString("The response must follow this exact shape:\n")
	sb.WriteString("{\n  \"attributes\": {\n    \"<attribute key>\": {\"value\": \"\", \"confidence\": 0, \"reasoning\": \"\"}\n  },\n  \"overall_confidence\": 0\n}\n")

	return sb.String()
}
