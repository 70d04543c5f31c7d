package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attrix/internal/domain"
	"attrix/internal/service"
)

func pendingJob(imageHash, schemaID string) domain.ExtractionJob {
	now := time.Now().UTC()
	return domain.ExtractionJob{
		ID:        uuid.New(),
		Status:    domain.JobStatusPending,
		ImageHash: imageHash,
		SchemaID:  schemaID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestJobStore_GetUnknown(t *testing.T) {
	store := service.NewJobStore()

	_, err := store.Get(uuid.New())
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestJobStore_CreateIfAbsentDeduplicates(t *testing.T) {
	store := service.NewJobStore()

	first := pendingJob("hash-a", "schema-1")
	got, created := store.CreateIfAbsent(first, []byte("img"), "image/png")
	require.True(t, created)
	assert.Equal(t, first.ID, got.ID)

	second := pendingJob("hash-a", "schema-1")
	got, created = store.CreateIfAbsent(second, []byte("img"), "image/png")
	assert.False(t, created)
	assert.Equal(t, first.ID, got.ID, "duplicate submit converges on the live job")

	// a different schema is independent work
	other := pendingJob("hash-a", "schema-2")
	_, created = store.CreateIfAbsent(other, []byte("img"), "image/png")
	assert.True(t, created)
}

func TestJobStore_TerminalJobFreesDedupSlot(t *testing.T) {
	store := service.NewJobStore()

	first := pendingJob("hash-a", "schema-1")
	store.Create(first, []byte("img"), "image/png")
	store.Complete(first.ID, domain.ExtractionResult{OverallConfidence: 80},
		domain.RetrySummary{}, domain.RetrySummary{})

	second := pendingJob("hash-a", "schema-1")
	_, created := store.CreateIfAbsent(second, []byte("img"), "image/png")
	assert.True(t, created, "completed job no longer blocks resubmission")
}

func TestJobStore_ClaimDueLeasesOnce(t *testing.T) {
	store := service.NewJobStore()
	job := pendingJob("hash-a", "schema-1")
	store.Create(job, []byte("img"), "image/png")

	claimed := store.ClaimDue(5)
	require.Len(t, claimed, 1)
	assert.Equal(t, job.ID, claimed[0].Job.ID)
	assert.Equal(t, domain.JobStatusProcessing, claimed[0].Job.Status)
	assert.Equal(t, []byte("img"), claimed[0].ImageBytes)

	// leased job is not handed out again
	assert.Empty(t, store.ClaimDue(5))
}

func TestJobStore_ClaimDueRespectsLimit(t *testing.T) {
	store := service.NewJobStore()
	for i := 0; i < 5; i++ {
		store.Create(pendingJob("hash-"+string(rune('a'+i)), "schema-1"), []byte("img"), "image/png")
	}

	assert.Len(t, store.ClaimDue(2), 2)
	assert.Len(t, store.ClaimDue(10), 3)
}

func TestJobStore_RequeueHonorsBackoffDeadline(t *testing.T) {
	store := service.NewJobStore()
	job := pendingJob("hash-a", "schema-1")
	store.Create(job, []byte("img"), "image/png")

	claimed := store.ClaimDue(1)
	require.Len(t, claimed, 1)

	store.Requeue(job.ID, time.Now().UTC().Add(time.Hour),
		domain.RetrySummary{Attempts: 1}, domain.RetrySummary{}, nil)

	assert.Empty(t, store.ClaimDue(1), "job waiting on backoff is not runnable")

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, got.Status)
	require.NotNil(t, got.NextAttemptAt)
	assert.Equal(t, 1, got.TransportRetry.Attempts)

	// deadline in the past makes it runnable again
	store.Requeue(job.ID, time.Now().UTC().Add(-time.Second),
		domain.RetrySummary{Attempts: 1}, domain.RetrySummary{}, nil)
	reclaimed := store.ClaimDue(1)
	require.Len(t, reclaimed, 1)
	assert.Nil(t, reclaimed[0].Job.NextAttemptAt)
}

func TestJobStore_RequeueCarriesBestResult(t *testing.T) {
	store := service.NewJobStore()
	job := pendingJob("hash-a", "schema-1")
	store.Create(job, []byte("img"), "image/png")
	store.ClaimDue(1)

	best := &domain.ExtractionResult{OverallConfidence: 55}
	store.Requeue(job.ID, time.Now().UTC().Add(-time.Second),
		domain.RetrySummary{}, domain.RetrySummary{Attempts: 1}, best)

	claimed := store.ClaimDue(1)
	require.Len(t, claimed, 1)
	require.NotNil(t, claimed[0].Best)
	assert.Equal(t, 55, claimed[0].Best.OverallConfidence)
}

func TestJobStore_CompleteIsFinal(t *testing.T) {
	store := service.NewJobStore()
	job := pendingJob("hash-a", "schema-1")
	store.Create(job, []byte("img"), "image/png")
	store.ClaimDue(1)

	store.Complete(job.ID, domain.ExtractionResult{OverallConfidence: 85},
		domain.RetrySummary{Attempts: 1}, domain.RetrySummary{Attempts: 1})

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, 85, got.Confidence)
	require.NotNil(t, got.CompletedAt)

	// terminal state does not regress
	store.Fail(job.ID, "late failure", domain.ErrorClassTransient,
		domain.RetrySummary{}, domain.RetrySummary{})
	got, _ = store.Get(job.ID)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Empty(t, got.Error)

	assert.Empty(t, store.ClaimDue(1))
}

func TestJobStore_FailRecordsClassAndMessage(t *testing.T) {
	store := service.NewJobStore()
	job := pendingJob("hash-a", "schema-1")
	store.Create(job, []byte("img"), "image/png")
	store.ClaimDue(1)

	store.Fail(job.ID, "upstream timed out", domain.ErrorClassTransient,
		domain.RetrySummary{Attempts: 3, Exhausted: true}, domain.RetrySummary{})

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Equal(t, "upstream timed out", got.Error)
	assert.Equal(t, domain.ErrorClassTransient, got.ErrorClass)
	assert.True(t, got.TransportRetry.Exhausted)
}
