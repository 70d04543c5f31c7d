package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"attrix/internal/domain"
)

// jobRecord is the store-internal state for one job: the public job plus the
// image payload, the claim lease, and the best result seen across attempts.
type jobRecord struct {
	job         domain.ExtractionJob
	imageBytes  []byte
	contentType string
	leased      bool
	best        *domain.ExtractionResult
}

// ClaimedJob is a leased unit of work handed to the extraction worker.
type ClaimedJob struct {
	Job         domain.ExtractionJob
	ImageBytes  []byte
	ContentType string
	Best        *domain.ExtractionResult
}

// JobStore is the in-memory job registry. The orchestrator is the sole
// writer; readers get copies. The claim lease guarantees at most one
// outstanding model call per job.
type JobStore struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]*jobRecord
	inflight map[string]uuid.UUID
	now      func() time.Time
}

// NewJobStore creates an empty JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs:     make(map[uuid.UUID]*jobRecord),
		inflight: make(map[string]uuid.UUID),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a new pending job with its payload.
func (s *JobStore) Create(job domain.ExtractionJob, imageBytes []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createLocked(job, imageBytes, contentType)
}

// CreateIfAbsent registers job unless a non-terminal job already exists for
// the same dedup key, in which case that job is returned instead. The check
// and the insert are one critical section so concurrent submits of the same
// image converge on a single job.
func (s *JobStore) CreateIfAbsent(job domain.ExtractionJob, imageBytes []byte, contentType string) (domain.ExtractionJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.inflight[job.DedupKey()]; ok {
		if rec, ok := s.jobs[id]; ok && !rec.job.Status.IsTerminal() {
			return rec.job, false
		}
	}
	s.createLocked(job, imageBytes, contentType)
	return job, true
}

func (s *JobStore) createLocked(job domain.ExtractionJob, imageBytes []byte, contentType string) {
	s.jobs[job.ID] = &jobRecord{
		job:         job,
		imageBytes:  imageBytes,
		contentType: contentType,
	}
	s.inflight[job.DedupKey()] = job.ID
}

// Get returns a copy of the job.
func (s *JobStore) Get(id uuid.UUID) (*domain.ExtractionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	job := rec.job
	return &job, nil
}

// FindInFlight returns the non-terminal job for a dedup key, if any.
func (s *JobStore) FindInFlight(dedupKey string) (*domain.ExtractionJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.inflight[dedupKey]
	if !ok {
		return nil, false
	}
	rec, ok := s.jobs[id]
	if !ok || rec.job.Status.IsTerminal() {
		return nil, false
	}
	job := rec.job
	return &job, true
}

// ClaimDue leases up to limit runnable jobs: pending jobs, plus processing
// jobs whose backoff wait has elapsed. Claimed jobs move to processing.
func (s *JobStore) ClaimDue(limit int) []ClaimedJob {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var claimed []ClaimedJob
	for _, rec := range s.jobs {
		if len(claimed) >= limit {
			break
		}
		if rec.leased || rec.job.Status.IsTerminal() {
			continue
		}
		switch rec.job.Status {
		case domain.JobStatusPending:
			// runnable now
		case domain.JobStatusProcessing:
			if rec.job.NextAttemptAt == nil || now.Before(*rec.job.NextAttemptAt) {
				continue
			}
		default:
			continue
		}

		rec.leased = true
		rec.job.Status = domain.JobStatusProcessing
		rec.job.NextAttemptAt = nil
		rec.job.UpdatedAt = now

		claimed = append(claimed, ClaimedJob{
			Job:         rec.job,
			ImageBytes:  rec.imageBytes,
			ContentType: rec.contentType,
			Best:        rec.best,
		})
	}
	return claimed
}

// Requeue releases the lease and schedules the next attempt. The job stays
// in processing; the backoff wait lives on the record, not in a goroutine.
func (s *JobStore) Requeue(id uuid.UUID, nextAttemptAt time.Time, transport, confidence domain.RetrySummary, best *domain.ExtractionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok || rec.job.Status.IsTerminal() {
		return
	}
	rec.leased = false
	rec.job.NextAttemptAt = &nextAttemptAt
	rec.job.TransportRetry = transport
	rec.job.ConfidenceRetry = confidence
	rec.job.UpdatedAt = s.now()
	if best != nil {
		rec.best = best
	}
}

// Complete moves the job to its completed terminal state.
func (s *JobStore) Complete(id uuid.UUID, result domain.ExtractionResult, transport, confidence domain.RetrySummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok || rec.job.Status.IsTerminal() {
		return
	}
	now := s.now()
	rec.leased = false
	rec.job.Status = domain.JobStatusCompleted
	rec.job.Result = &result
	rec.job.Confidence = result.OverallConfidence
	rec.job.TransportRetry = transport
	rec.job.ConfidenceRetry = confidence
	rec.job.NextAttemptAt = nil
	rec.job.UpdatedAt = now
	rec.job.CompletedAt = &now
	s.releaseLocked(rec)
}

// Fail moves the job to its failed terminal state.
func (s *JobStore) Fail(id uuid.UUID, errMsg string, class domain.ErrorClass, transport, confidence domain.RetrySummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok || rec.job.Status.IsTerminal() {
		return
	}
	now := s.now()
	rec.leased = false
	rec.job.Status = domain.JobStatusFailed
	rec.job.Error = errMsg
	rec.job.ErrorClass = class
	rec.job.TransportRetry = transport
	rec.job.ConfidenceRetry = confidence
	rec.job.NextAttemptAt = nil
	rec.job.UpdatedAt = now
	rec.job.CompletedAt = &now
	s.releaseLocked(rec)
}

// releaseLocked frees the dedup slot and drops the payload once terminal.
func (s *JobStore) releaseLocked(rec *jobRecord) {
	if id, ok := s.inflight[rec.job.DedupKey()]; ok && id == rec.job.ID {
		delete(s.inflight, rec.job.DedupKey())
	}
	rec.imageBytes = nil
	rec.best = nil
}
