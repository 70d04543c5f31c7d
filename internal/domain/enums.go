package domain

// JobStatus represents the lifecycle of an extraction job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether a job in this status can no longer transition.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// FieldType is the value type of a schema attribute field.
type FieldType string

const (
	FieldTypeText   FieldType = "text"
	FieldTypeSelect FieldType = "select"
	FieldTypeNumber FieldType = "number"
)

// ErrorClass classifies extraction failures for retry decisions and reporting.
type ErrorClass string

const (
	ErrorClassValidation ErrorClass = "validation"
	ErrorClassAuth       ErrorClass = "auth"
	ErrorClassQuota      ErrorClass = "quota"
	ErrorClassTransient  ErrorClass = "transient"
	ErrorClassParse      ErrorClass = "parse"

	// ErrorClassLowConfidence tags confidence-retry attempts; a low-confidence
	// condition is not an error and never fails a job.
	ErrorClassLowConfidence ErrorClass = "low_confidence"
)

// AllowedImageTypes maps accepted MIME content types to their short names.
var AllowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}
