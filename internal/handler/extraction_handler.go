package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"attrix/internal/ratelimit"
	"attrix/internal/service"
)

// maxImageBytes caps the accepted upload size.
const maxImageBytes = 20 << 20

// ExtractionHandler handles extraction submission and status polling.
type ExtractionHandler struct {
	svc *service.ExtractionService
}

// NewExtractionHandler creates a new ExtractionHandler.
func NewExtractionHandler(svc *service.ExtractionService) *ExtractionHandler {
	return &ExtractionHandler{svc: svc}
}

// Submit handles POST /api/v1/extractions. The image is a multipart file
// field; schema_id is a form field. Accepted jobs are processed
// asynchronously and polled via GetStatus.
func (h *ExtractionHandler) Submit(c *gin.Context) {
	schemaID := c.PostForm("schema_id")
	if schemaID == "" {
		RespondError(c, http.StatusBadRequest, "MISSING_SCHEMA_ID", "schema_id field is required")
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_IMAGE", "image field is required")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > maxImageBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "image exceeds maximum allowed size")
		return
	}

	imageBytes, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "UNREADABLE_IMAGE", "could not read image payload")
		return
	}
	if len(imageBytes) > maxImageBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "image exceeds maximum allowed size")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(imageBytes)
	}

	job, err := h.svc.Submit(c.Request.Context(), service.SubmitInput{
		ClientKey:   c.ClientIP(),
		ImageBytes:  imageBytes,
		ContentType: contentType,
		SchemaID:    schemaID,
	})
	if err != nil {
		var limitErr *ratelimit.ExceededError
		if errors.As(err, &limitErr) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(limitErr.RetryAfter.Seconds())+1))
			RespondError(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests; retry later")
			return
		}
		HandleError(c, err)
		return
	}

	RespondAccepted(c, job)
}

// GetStatus handles GET /api/v1/extractions/:id
func (h *ExtractionHandler) GetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_JOB_ID", "job id must be a valid UUID")
		return
	}

	job, err := h.svc.GetJob(id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, job)
}
