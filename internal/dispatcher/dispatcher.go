// Package dispatcher owns bulk job submission and fans queued jobs out to workers.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/leadhunter-enricher/internal/leads"
	"github.com/JakeFAU/leadhunter-enricher/internal/worker"
)

// Dispatcher fans out queue work to a pool of workers.
type Dispatcher struct {
	queue    leads.Queue
	jobStore leads.JobStore
	ids      leads.IDGenerator
	clock    leads.Clock
	workers  []*worker.Worker
}

// New creates a Dispatcher.
func New(
	queue leads.Queue,
	jobStore leads.JobStore,
	ids leads.IDGenerator,
	clock leads.Clock,
	workers []*worker.Worker,
) *Dispatcher {
	return &Dispatcher{
		queue:    queue,
		jobStore: jobStore,
		ids:      ids,
		clock:    clock,
		workers:  workers,
	}
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, item leads.QueueItem) error {
	if err := d.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}

// Submit records a queued job for the list and hands it to the workers.
func (d *Dispatcher) Submit(ctx context.Context, userID, listID string) (leads.Job, error) {
	jobID, err := d.ids.NewID()
	if err != nil {
		return leads.Job{}, fmt.Errorf("generate job id: %w", err)
	}
	now := d.clock.Now()
	job := leads.Job{
		ID:        jobID,
		UserID:    userID,
		ListID:    listID,
		Status:    leads.JobStatusQueued,
		Submitted: now,
	}
	if err := d.jobStore.CreateJob(ctx, job); err != nil {
		return leads.Job{}, fmt.Errorf("create job: %w", err)
	}
	item := leads.QueueItem{JobID: jobID, UserID: userID, ListID: listID, Submitted: now.Unix()}
	if err := d.Enqueue(ctx, item); err != nil {
		_, _ = d.jobStore.UpdateJob(context.WithoutCancel(ctx), jobID, func(j *leads.Job) {
			j.Status = leads.JobStatusFailed
			j.ErrorText = err.Error()
		})
		return leads.Job{}, err
	}
	return job, nil
}

// Job returns a job owned by userID.
func (d *Dispatcher) Job(ctx context.Context, userID, jobID string) (leads.Job, error) {
	job, err := d.jobStore.GetJob(ctx, jobID)
	if err != nil {
		return leads.Job{}, fmt.Errorf("get job: %w", err)
	}
	if job.UserID != userID {
		return leads.Job{}, fmt.Errorf("job %s: %w", jobID, leads.ErrNotFound)
	}
	return job, nil
}

// Cancel marks a job owned by userID as canceled. Workers stop scheduling its
// remaining leads; leads already in flight finish. Canceling a finished job
// returns it unchanged.
func (d *Dispatcher) Cancel(ctx context.Context, userID, jobID string) (leads.Job, error) {
	if _, err := d.Job(ctx, userID, jobID); err != nil {
		return leads.Job{}, err
	}
	job, err := d.jobStore.UpdateJob(ctx, jobID, func(j *leads.Job) {
		j.Status = leads.JobStatusCanceled
	})
	if err != nil {
		return leads.Job{}, fmt.Errorf("cancel job: %w", err)
	}
	return job, nil
}
