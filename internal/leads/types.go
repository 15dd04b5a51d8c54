// Package leads defines the caller-side domain shared by the enrichment service,
// the bulk job pipeline, and the persistence adapters.
package leads

import (
	"errors"
	"time"

	"github.com/JakeFAU/leadhunter-enricher/internal/enrich"
)

// Sentinel errors returned by stores and the enrichment service.
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrQueueClosed         = errors.New("queue closed")
)

// Status is the enrichment state persisted on a lead.
type Status string

// Lead enrichment states.
const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Lead is a saved business record owned by one user.
type Lead struct {
	ID          string                     `json:"id"`
	ListID      string                     `json:"list_id"`
	UserID      string                     `json:"user_id"`
	Name        string                     `json:"name"`
	Website     string                     `json:"website"`
	Email       *string                    `json:"email"`
	SocialLinks map[enrich.Platform]string `json:"social_links"`
	Status      Status                     `json:"enrichment_status"`
	EnrichedAt  *time.Time                 `json:"enriched_at,omitempty"`
}

// Enrichable reports whether a bulk run should attempt this lead.
func (l Lead) Enrichable() bool {
	return l.Website != "" && l.Status != StatusSuccess
}

// JobStatus represents the lifecycle state of a bulk enrichment job.
type JobStatus string

// Job status values held in the job store.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// Job is an asynchronous enrichment run over one lead list.
type Job struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	ListID    string      `json:"list_id"`
	Status    JobStatus   `json:"status"`
	Submitted time.Time   `json:"submitted_at"`
	Started   *time.Time  `json:"started_at,omitempty"`
	Finished  *time.Time  `json:"finished_at,omitempty"`
	ErrorText string      `json:"error_text,omitempty"`
	Counters  JobCounters `json:"counters"`
}

// JobCounters tracks per-lead outcomes of a job.
type JobCounters struct {
	LeadsTotal     int `json:"leads_total"`
	Enriched       int `json:"enriched"`
	Failed         int `json:"failed"`
	Skipped        int `json:"skipped"`
	CreditsCharged int `json:"credits_charged"`
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	UserID    string
	ListID    string
	Submitted int64
}

// LeadEnrichedEvent is published after a successful, charged enrichment.
type LeadEnrichedEvent struct {
	EventID     string                     `json:"event_id"`
	LeadID      string                     `json:"lead_id"`
	UserID      string                     `json:"user_id"`
	Email       *string                    `json:"email"`
	SocialLinks map[enrich.Platform]string `json:"social_links"`
	EnrichedAt  time.Time                  `json:"enriched_at"`
}
