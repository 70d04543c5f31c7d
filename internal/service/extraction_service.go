// Package service implements the extraction orchestrator: job intake with
// admission control and deduplication, and the attempt pipeline that drives
// each job from pending to a terminal state.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"attrix/internal/cache"
	"attrix/internal/domain"
	"attrix/internal/invoker"
	"attrix/internal/port"
	"attrix/internal/prompt"
	"attrix/internal/ratelimit"
	"attrix/internal/retry"
	"attrix/internal/validator"
)

// defaultAttemptTimeout bounds one full pipeline pass for a job. In-flight
// passes run on a background context so completed work still lands in the
// cache during shutdown.
const defaultAttemptTimeout = 5 * time.Minute

// SubmitInput carries one extraction request.
type SubmitInput struct {
	ClientKey   string
	ImageBytes  []byte
	ContentType string
	SchemaID    string
}

// Options tunes orchestrator behavior.
type Options struct {
	CacheTTL            time.Duration
	AttemptTimeout      time.Duration
	ConfidenceThreshold int

	// TransportPolicy governs parse-failure requeues; it shares its budget
	// shape with the invoker-level transient retries.
	TransportPolicy *retry.Policy

	// ConfidencePolicy governs low-confidence re-extraction.
	ConfidencePolicy *retry.Policy
}

// ExtractionService orchestrates the extraction pipeline. It is the sole
// writer of job state; HTTP handlers only submit and read.
type ExtractionService struct {
	store     *JobStore
	schemas   port.SchemaProvider
	limiter   *ratelimit.Limiter
	prompts   *prompt.Builder
	invoker   *invoker.RetryingInvoker
	validator *validator.Validator
	cache     *cache.ResultCache
	retries   *retry.Registry

	cacheTTL            time.Duration
	attemptTimeout      time.Duration
	confidenceThreshold int
	transportPolicy     *retry.Policy
	confidencePolicy    *retry.Policy
}

// NewExtractionService wires the orchestrator.
func NewExtractionService(
	store *JobStore,
	schemas port.SchemaProvider,
	limiter *ratelimit.Limiter,
	prompts *prompt.Builder,
	inv *invoker.RetryingInvoker,
	val *validator.Validator,
	results *cache.ResultCache,
	retries *retry.Registry,
	opts Options,
) *ExtractionService {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = defaultAttemptTimeout
	}
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = 70
	}
	if opts.TransportPolicy == nil {
		opts.TransportPolicy = retry.NewPolicy(3, time.Second, 2, 0, 0)
	}
	if opts.ConfidencePolicy == nil {
		opts.ConfidencePolicy = retry.NewPolicy(3, 2*time.Second, 2, 30*time.Second, 0.1)
	}
	return &ExtractionService{
		store:               store,
		schemas:             schemas,
		limiter:             limiter,
		prompts:             prompts,
		invoker:             inv,
		validator:           val,
		cache:               results,
		retries:             retries,
		cacheTTL:            opts.CacheTTL,
		attemptTimeout:      opts.AttemptTimeout,
		confidenceThreshold: opts.ConfidenceThreshold,
		transportPolicy:     opts.TransportPolicy,
		confidencePolicy:    opts.ConfidencePolicy,
	}
}

// Store exposes the job store for the worker.
func (s *ExtractionService) Store() *JobStore {
	return s.store
}

// Submit admits one extraction request: rate limit, payload validation,
// schema lookup, then dedup against in-flight work. A duplicate of a live
// job returns that job rather than creating a new one.
func (s *ExtractionService) Submit(ctx context.Context, input SubmitInput) (*domain.ExtractionJob, error) {
	if s.limiter != nil {
		if _, err := s.limiter.Check(input.ClientKey); err != nil {
			return nil, err
		}
	}

	if len(input.ImageBytes) == 0 {
		return nil, domain.ErrMissingImage
	}
	if _, ok := domain.AllowedImageTypes[input.ContentType]; !ok {
		return nil, domain.ErrUnsupportedImageType
	}

	schema, err := s.schemas.GetSchema(ctx, input.SchemaID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := domain.ExtractionJob{
		ID:            uuid.New(),
		Status:        domain.JobStatusPending,
		ImageHash:     cache.ImageHash(input.ImageBytes),
		SchemaID:      schema.ID,
		SchemaVersion: schema.Version,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	stored, created := s.store.CreateIfAbsent(job, input.ImageBytes, input.ContentType)
	if !created {
		log.Printf("extractionService.Submit: dedup hit for %s, returning job %s", stored.ImageHash[:12], stored.ID)
	} else {
		log.Printf("extractionService.Submit: accepted job %s (schema %s)", stored.ID, stored.SchemaID)
	}
	return &stored, nil
}

// GetJob returns the current view of a job.
func (s *ExtractionService) GetJob(id uuid.UUID) (*domain.ExtractionJob, error) {
	return s.store.Get(id)
}

// Process runs one pipeline pass for a claimed job: cache probe, prompt
// build, model call with transport retries, validation, then the confidence
// gate. It either finishes the job or requeues it with a backoff deadline.
// It runs on a background context so a shutdown does not discard a nearly
// finished model response.
func (s *ExtractionService) Process(cj ClaimedJob) {
	ctx, cancel := context.WithTimeout(context.Background(), s.attemptTimeout)
	defer cancel()

	job := cj.Job
	tctx := s.retries.Get(transportKey(job.ID))
	cctx := s.retries.Get(confidenceKey(job.ID))
	key := cache.Key(job.ImageHash, job.SchemaID, job.SchemaVersion)

	// Cache probe happens once, before the first model call. Later passes of
	// the same job exist precisely to produce a better result than what the
	// earlier pass cached.
	if tctx.AttemptCount() == 0 && cctx.AttemptCount() == 0 {
		if cached, ok := s.cache.Get(ctx, key); ok {
			log.Printf("extractionService.Process: cache hit for job %s", job.ID)
			s.finish(job.ID, *cached, tctx, cctx)
			return
		}
	}

	schema, err := s.schemas.GetSchema(ctx, job.SchemaID)
	if err != nil {
		s.fail(job.ID, err.Error(), domain.ErrorClassValidation, tctx, cctx)
		return
	}

	resp, err := s.invoker.InvokeTracked(ctx, port.InvokeInput{
		Prompt:      s.prompts.Build(schema),
		ImageBytes:  cj.ImageBytes,
		ContentType: cj.ContentType,
	}, tctx)
	if err != nil {
		if invoker.IsFatal(err) {
			log.Printf("extractionService.Process: fatal provider error for job %s: %v", job.ID, err)
			s.fail(job.ID, err.Error(), invoker.Classify(err), tctx, cctx)
			return
		}
		log.Printf("extractionService.Process: transport retries exhausted for job %s: %v", job.ID, err)
		s.fail(job.ID, err.Error(), domain.ErrorClassTransient, tctx, cctx)
		return
	}

	outcome, err := s.validator.Validate(resp.Content, schema)
	if err != nil {
		var perr *validator.ParseError
		if errors.As(err, &perr) {
			s.handleParseFailure(cj, perr, tctx, cctx)
			return
		}
		s.fail(job.ID, err.Error(), domain.ErrorClassValidation, tctx, cctx)
		return
	}

	result := domain.ExtractionResult{
		Attributes:        outcome.Attributes,
		OverallConfidence: outcome.OverallConfidence,
		Model:             resp.Model,
		Usage:             resp.Usage,
		ExtractedAt:       time.Now().UTC(),
	}
	s.cache.Put(ctx, key, result, s.cacheTTL)

	if result.OverallConfidence >= s.confidenceThreshold {
		cctx.Record("", 0, false)
		s.finish(job.ID, result, tctx, cctx)
		return
	}

	best := cj.Best
	if best == nil || result.OverallConfidence > best.OverallConfidence {
		best = &result
	}

	attempt := cctx.AttemptCount() + 1
	if attempt >= s.confidencePolicy.MaxAttempts {
		// Budget spent: keep the best attempt, flag it, and complete. Low
		// confidence is a quality signal, not a failure.
		cctx.Record(domain.ErrorClassLowConfidence, 0, false)
		cctx.Exhausted = true
		final := *best
		final.LowConfidence = true
		s.cache.Put(ctx, key, final, s.cacheTTL)
		log.Printf("extractionService.Process: job %s completed below threshold (best %d < %d) after %d attempts",
			job.ID, final.OverallConfidence, s.confidenceThreshold, attempt)
		s.finish(job.ID, final, tctx, cctx)
		return
	}

	delay := s.confidencePolicy.Delay(attempt)
	cctx.Record(domain.ErrorClassLowConfidence, delay, true)
	log.Printf("extractionService.Process: job %s confidence %d below %d, retrying in %s (attempt %d/%d)",
		job.ID, result.OverallConfidence, s.confidenceThreshold, delay, attempt, s.confidencePolicy.MaxAttempts)
	s.store.Requeue(job.ID, time.Now().UTC().Add(delay), tctx.Summary(), cctx.Summary(), best)
}

// handleParseFailure requeues on malformed model output, drawing on the
// transport budget; a model that keeps emitting garbage fails the job the
// same way a flaky network would.
func (s *ExtractionService) handleParseFailure(cj ClaimedJob, perr *validator.ParseError, tctx, cctx *retry.Context) {
	parseAttempts := 1
	for _, a := range tctx.Attempts {
		if a.ErrorClass == domain.ErrorClassParse {
			parseAttempts++
		}
	}

	if parseAttempts >= s.transportPolicy.MaxAttempts {
		tctx.Record(domain.ErrorClassParse, 0, true)
		tctx.Exhausted = true
		log.Printf("extractionService.Process: job %s failed, unparseable output after %d attempts", cj.Job.ID, parseAttempts)
		s.fail(cj.Job.ID, perr.Error(), domain.ErrorClassParse, tctx, cctx)
		return
	}

	delay := s.transportPolicy.Delay(parseAttempts)
	tctx.Record(domain.ErrorClassParse, delay, true)
	log.Printf("extractionService.Process: job %s returned unparseable output, retrying in %s: %v", cj.Job.ID, delay, perr)
	s.store.Requeue(cj.Job.ID, time.Now().UTC().Add(delay), tctx.Summary(), cctx.Summary(), cj.Best)
}

func (s *ExtractionService) finish(id uuid.UUID, result domain.ExtractionResult, tctx, cctx *retry.Context) {
	s.store.Complete(id, result, tctx.Summary(), cctx.Summary())
	s.dropContexts(id)
}

func (s *ExtractionService) fail(id uuid.UUID, errMsg string, class domain.ErrorClass, tctx, cctx *retry.Context) {
	s.store.Fail(id, errMsg, class, tctx.Summary(), cctx.Summary())
	s.dropContexts(id)
}

func (s *ExtractionService) dropContexts(id uuid.UUID) {
	s.retries.Drop(transportKey(id))
	s.retries.Drop(confidenceKey(id))
}

func transportKey(id uuid.UUID) string  { return "transport:" + id.String() }
func confidenceKey(id uuid.UUID) string { return "confidence:" + id.String() }
