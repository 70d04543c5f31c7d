package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"attrix/internal/domain"
)

func TestContext_RecordAccumulates(t *testing.T) {
	c := NewContext()

	c.Record(domain.ErrorClassTransient, time.Second, true)
	c.Record(domain.ErrorClassTransient, 2*time.Second, true)
	c.Record("", 0, false)

	assert.Equal(t, 3, c.AttemptCount())
	assert.Equal(t, 3*time.Second, c.TotalDelay)
	assert.Equal(t, 1, c.Attempts[0].Number)
	assert.Equal(t, 3, c.Attempts[2].Number)
	assert.False(t, c.Exhausted)
}

func TestContext_Summary(t *testing.T) {
	c := NewContext()
	c.Record(domain.ErrorClassTransient, 1500*time.Millisecond, true)
	c.Exhausted = true

	s := c.Summary()
	assert.Equal(t, 1, s.Attempts)
	assert.Equal(t, int64(1500), s.TotalDelay)
	assert.True(t, s.Exhausted)
}

func TestRegistry_GetCreatesOnce(t *testing.T) {
	r := NewRegistry(time.Hour)

	a := r.Get("job-1")
	b := r.Get("job-1")

	assert.Same(t, a, b)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_DropRemoves(t *testing.T) {
	r := NewRegistry(time.Hour)
	r.Get("job-1")
	r.Drop("job-1")

	assert.Equal(t, 0, r.Len())
}

func TestRegistry_PurgesExpiredOnAccess(t *testing.T) {
	r := NewRegistry(time.Minute)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return current }

	r.Get("old-job")
	current = current.Add(2 * time.Minute)
	r.Get("new-job")

	assert.Equal(t, 1, r.Len())
	old := r.Get("old-job")
	assert.Equal(t, 0, old.AttemptCount(), "expired context recreated fresh")
}
