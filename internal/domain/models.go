package domain

import (
	"time"

	"github.com/google/uuid"
)

// AllowedValue is one entry of a select field's controlled vocabulary.
type AllowedValue struct {
	ShortForm string `json:"short_form"`
	FullForm  string `json:"full_form"`
}

// AttributeField is one named, typed slot in a category schema.
type AttributeField struct {
	Key           string         `json:"key"`
	Label         string         `json:"label"`
	Type          FieldType      `json:"type"`
	Required      bool           `json:"required"`
	AllowedValues []AllowedValue `json:"allowed_values,omitempty"`
}

// CategorySchema is an immutable, versioned list of attribute fields supplied
// by the external schema provider.
type CategorySchema struct {
	ID      string           `json:"id"`
	Version int              `json:"version"`
	Name    string           `json:"name"`
	Fields  []AttributeField `json:"fields"`
}

// TokenUsage tracks model token consumption for one call.
type TokenUsage struct {
	TotalTokens      int `json:"total_tokens"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Add accumulates usage from another call.
func (u *TokenUsage) Add(other TokenUsage) {
	u.TotalTokens += other.TotalTokens
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
}

// AttributeResult is the validated outcome for a single schema field.
// NormalizedValue is a string for text/select fields, a float64 for number
// fields, and nil when the raw value could not be normalized.
type AttributeResult struct {
	RawValue        string `json:"raw_value"`
	NormalizedValue any    `json:"normalized_value"`
	Confidence      int    `json:"confidence"`
	Reasoning       string `json:"reasoning,omitempty"`
	IsValid         bool   `json:"is_valid"`
}

// ExtractionResult is the validated, normalized output of one extraction.
type ExtractionResult struct {
	Attributes        map[string]AttributeResult `json:"attributes"`
	OverallConfidence int                        `json:"overall_confidence"`
	LowConfidence     bool                       `json:"low_confidence"`
	Model             string                     `json:"model,omitempty"`
	Usage             TokenUsage                 `json:"usage"`
	ExtractedAt       time.Time                  `json:"extracted_at"`
}

// RetrySummary is the observable slice of a retry context attached to a
// terminal job: how many attempts ran, how long they waited, and whether the
// budget ran out.
type RetrySummary struct {
	Attempts   int   `json:"attempts"`
	TotalDelay int64 `json:"total_delay_ms"`
	Exhausted  bool  `json:"exhausted"`
}

// ExtractionJob tracks one submitted image+schema pair through the pipeline.
// The orchestrator is the sole writer; callers observe copies via polling.
type ExtractionJob struct {
	ID            uuid.UUID `json:"id"`
	Status        JobStatus `json:"status"`
	ImageHash     string    `json:"image_hash"`
	SchemaID      string    `json:"schema_id"`
	SchemaVersion int       `json:"schema_version"`

	TransportRetry  RetrySummary `json:"transport_retry"`
	ConfidenceRetry RetrySummary `json:"confidence_retry"`
	NextAttemptAt   *time.Time   `json:"next_attempt_at,omitempty"`

	Confidence int               `json:"confidence"`
	Result     *ExtractionResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
	ErrorClass ErrorClass        `json:"error_class,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DedupKey identifies the at-most-one-in-flight constraint for a job.
func (j *ExtractionJob) DedupKey() string {
	return j.ImageHash + "|" + j.SchemaID
}
