package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/leadhunter-enricher/internal/leads"
)

// JobStore keeps bulk enrichment jobs in process memory.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]leads.Job
	now  func() time.Time
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]leads.Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateJob stores a new job.
func (s *JobStore) CreateJob(_ context.Context, job leads.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (leads.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return leads.Job{}, fmt.Errorf("job %s: %w", jobID, leads.ErrNotFound)
	}
	return job, nil
}

// UpdateJob applies mutate under the store lock and stamps lifecycle timestamps.
// A job that has reached a terminal status keeps it; later mutations may only
// touch counters.
func (s *JobStore) UpdateJob(_ context.Context, jobID string, mutate func(*leads.Job)) (leads.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return leads.Job{}, fmt.Errorf("job %s: %w", jobID, leads.ErrNotFound)
	}
	prev := job.Status
	mutate(&job)
	if prev.Terminal() {
		job.Status = prev
	}
	now := s.now()
	if job.Status == leads.JobStatusRunning && job.Started == nil {
		job.Started = pointerTime(now)
	}
	if job.Status.Terminal() && job.Finished == nil {
		job.Finished = pointerTime(now)
	}
	s.jobs[jobID] = job
	return job, nil
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
