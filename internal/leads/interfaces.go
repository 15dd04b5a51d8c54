package leads

import (
	"context"
	"time"

	"github.com/JakeFAU/leadhunter-enricher/internal/enrich"
)

// Enricher runs the website enrichment core.
type Enricher interface {
	Enrich(ctx context.Context, website string) enrich.Result
}

// LeadStore persists leads and the credit balance they are charged against.
type LeadStore interface {
	GetLead(ctx context.Context, userID, leadID string) (Lead, error)
	ListLeads(ctx context.Context, userID, listID string) ([]Lead, error)
	Balance(ctx context.Context, userID string) (int, error)
	MarkFailed(ctx context.Context, userID, leadID string, at time.Time) error
	// CommitSuccess deducts cost and writes the result in one transaction. It
	// returns the remaining balance, or ErrInsufficientCredits with nothing written.
	CommitSuccess(ctx context.Context, userID, leadID string, result enrich.Result, cost int, at time.Time) (int, error)
}

// JobStore persists bulk job metadata.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	UpdateJob(ctx context.Context, jobID string, mutate func(*Job)) (Job, error)
}

// Queue provides enqueue/dequeue semantics for bulk jobs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Publisher pushes lead enrichment events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, event LeadEnrichedEvent) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job and event IDs.
type IDGenerator interface {
	NewID() (string, error)
}
