// Package worker implements the bulk list enrichment loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/leadhunter-enricher/internal/leads"
	"github.com/JakeFAU/leadhunter-enricher/internal/metrics"
	"github.com/JakeFAU/leadhunter-enricher/internal/service"
)

// Config controls Worker behavior.
type Config struct {
	PerJobConcurrency int
}

// LeadEnricher enriches a single lead and charges for it.
type LeadEnricher interface {
	EnrichLead(ctx context.Context, userID, leadID string) (service.Outcome, error)
}

// Limiter paces requests per website domain.
type Limiter interface {
	Wait(ctx context.Context, website string) error
}

// Worker consumes queue items and enriches every lead of the job's list.
type Worker struct {
	queue    leads.Queue
	jobStore leads.JobStore
	store    leads.LeadStore
	enricher LeadEnricher
	limiter  Limiter
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Worker. limiter may be nil.
func New(
	queue leads.Queue,
	jobStore leads.JobStore,
	store leads.LeadStore,
	enricher LeadEnricher,
	limiter Limiter,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PerJobConcurrency <= 0 {
		cfg.PerJobConcurrency = 1
	}
	return &Worker{
		queue:    queue,
		jobStore: jobStore,
		store:    store,
		enricher: enricher,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logger.Named("worker"),
	}
}

// Run blocks, consuming queue items until the context finishes or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, leads.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.ProcessJob(ctx, item)
	}
}

// tally accumulates per-lead outcomes and mirrors each change into the job
// store while holding its lock, so stored counters never go backwards.
type tally struct {
	mu       sync.Mutex
	counters leads.JobCounters
	persist  func(leads.JobCounters)
}

func (t *tally) add(fn func(*leads.JobCounters)) leads.JobCounters {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.counters)
	if t.persist != nil {
		t.persist(t.counters)
	}
	return t.counters
}

// ProcessJob runs one bulk job to completion.
func (w *Worker) ProcessJob(ctx context.Context, item leads.QueueItem) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	logger := w.logger.With(zap.String("job_id", item.JobID), zap.String("list_id", item.ListID))
	// Terminal writes must land even when shutdown canceled ctx.
	storeCtx := context.WithoutCancel(ctx)

	job, err := w.jobStore.UpdateJob(storeCtx, item.JobID, func(j *leads.Job) {
		j.Status = leads.JobStatusRunning
	})
	if err != nil {
		logger.Error("update job status failed", zap.Error(err))
		return
	}
	if job.Status.Terminal() {
		logger.Info("job already finished before start", zap.String("status", string(job.Status)))
		return
	}

	pending, err := w.store.ListLeads(ctx, item.UserID, item.ListID)
	if err != nil {
		logger.Error("list leads failed", zap.Error(err))
		w.finish(storeCtx, logger, item.JobID, leads.JobStatusFailed, fmt.Sprintf("list leads: %v", err), leads.JobCounters{})
		return
	}

	t := &tally{
		counters: leads.JobCounters{LeadsTotal: len(pending)},
		persist: func(c leads.JobCounters) {
			w.updateCounters(storeCtx, logger, item.JobID, c)
		},
	}
	t.add(func(*leads.JobCounters) {})

	var (
		outOfCredits atomic.Bool
		g            errgroup.Group
	)
	g.SetLimit(w.cfg.PerJobConcurrency)

	for i, lead := range pending {
		if reason := w.stopReason(ctx, item.JobID, &outOfCredits); reason != "" {
			remaining := len(pending) - i
			t.add(func(c *leads.JobCounters) { c.Skipped += remaining })
			logger.Info("job stopped scheduling leads", zap.String("reason", reason), zap.Int("skipped", remaining))
			break
		}
		g.Go(func() error {
			t.add(w.enrichOne(ctx, logger, item, lead, &outOfCredits))
			return nil
		})
	}
	_ = g.Wait()

	status := leads.JobStatusSucceeded
	errText := ""
	if ctx.Err() != nil {
		status = leads.JobStatusCanceled
		errText = "shutdown"
	}
	t.persist = nil
	w.finish(storeCtx, logger, item.JobID, status, errText, t.add(func(*leads.JobCounters) {}))
}

func (w *Worker) enrichOne(
	ctx context.Context,
	logger *zap.Logger,
	item leads.QueueItem,
	lead leads.Lead,
	outOfCredits *atomic.Bool,
) func(*leads.JobCounters) {
	// The job may have been canceled while this lead waited for a slot.
	if w.stopReason(ctx, item.JobID, outOfCredits) != "" {
		return func(c *leads.JobCounters) { c.Skipped++ }
	}
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx, lead.Website); err != nil {
			return func(c *leads.JobCounters) { c.Skipped++ }
		}
	}

	out, err := w.enricher.EnrichLead(ctx, item.UserID, lead.ID)
	switch {
	case errors.Is(err, leads.ErrInsufficientCredits):
		outOfCredits.Store(true)
		return func(c *leads.JobCounters) { c.Skipped++ }
	case err != nil:
		logger.Warn("lead enrichment errored", zap.String("lead_id", lead.ID), zap.Error(err))
		return func(c *leads.JobCounters) { c.Failed++ }
	case out.Charged > 0:
		return func(c *leads.JobCounters) {
			c.Enriched++
			c.CreditsCharged += out.Charged
		}
	default:
		return func(c *leads.JobCounters) { c.Failed++ }
	}
}

func (w *Worker) stopReason(ctx context.Context, jobID string, outOfCredits *atomic.Bool) string {
	if ctx.Err() != nil {
		return "shutdown"
	}
	if outOfCredits.Load() {
		return "insufficient credits"
	}
	job, err := w.jobStore.GetJob(ctx, jobID)
	if err == nil && job.Status == leads.JobStatusCanceled {
		return "canceled"
	}
	return ""
}

func (w *Worker) updateCounters(ctx context.Context, logger *zap.Logger, jobID string, counters leads.JobCounters) {
	if _, err := w.jobStore.UpdateJob(ctx, jobID, func(j *leads.Job) { j.Counters = counters }); err != nil {
		logger.Error("update job counters failed", zap.Error(err))
	}
}

func (w *Worker) finish(
	ctx context.Context,
	logger *zap.Logger,
	jobID string,
	status leads.JobStatus,
	errText string,
	counters leads.JobCounters,
) {
	job, err := w.jobStore.UpdateJob(ctx, jobID, func(j *leads.Job) {
		j.Status = status
		j.ErrorText = errText
		j.Counters = counters
	})
	if err != nil {
		logger.Error("final job status update failed", zap.Error(err))
		return
	}
	metrics.ObserveJob(string(job.Status))
	logger.Info("job finished",
		zap.String("status", string(job.Status)),
		zap.Int("leads_total", job.Counters.LeadsTotal),
		zap.Int("enriched", job.Counters.Enriched),
		zap.Int("failed", job.Counters.Failed),
		zap.Int("skipped", job.Counters.Skipped),
		zap.Int("credits_charged", job.Counters.CreditsCharged),
	)
}
