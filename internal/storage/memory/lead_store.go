// Package memory provides in-process stores for local development and tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/leadhunter-enricher/internal/enrich"
	"github.com/JakeFAU/leadhunter-enricher/internal/leads"
)

// LeadStore keeps leads and credit balances in memory. CommitSuccess holds the
// store lock for the whole deduct-and-update step, matching the transactional
// Postgres implementation.
type LeadStore struct {
	mu       sync.RWMutex
	leads    map[string]leads.Lead
	balances map[string]int
}

// NewLeadStore constructs an empty LeadStore.
func NewLeadStore() *LeadStore {
	return &LeadStore{
		leads:    make(map[string]leads.Lead),
		balances: make(map[string]int),
	}
}

// PutLead inserts or replaces a lead.
func (s *LeadStore) PutLead(lead leads.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead.Status == "" {
		lead.Status = leads.StatusPending
	}
	s.leads[lead.ID] = cloneLead(lead)
}

// SetBalance overwrites a user's credit balance.
func (s *LeadStore) SetBalance(userID string, credits int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = credits
}

// GetLead returns a lead owned by userID.
func (s *LeadStore) GetLead(_ context.Context, userID, leadID string) (leads.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lead, ok := s.leads[leadID]
	if !ok || lead.UserID != userID {
		return leads.Lead{}, fmt.Errorf("lead %s: %w", leadID, leads.ErrNotFound)
	}
	return cloneLead(lead), nil
}

// ListLeads returns the enrichable leads of a list owned by userID, ordered by ID.
func (s *LeadStore) ListLeads(_ context.Context, userID, listID string) ([]leads.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leads.Lead
	for _, lead := range s.leads {
		if lead.UserID == userID && lead.ListID == listID && lead.Enrichable() {
			out = append(out, cloneLead(lead))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Balance returns the user's remaining credits.
func (s *LeadStore) Balance(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	credits, ok := s.balances[userID]
	if !ok {
		return 0, fmt.Errorf("profile %s: %w", userID, leads.ErrNotFound)
	}
	return credits, nil
}

// MarkFailed records a failed enrichment attempt.
func (s *LeadStore) MarkFailed(_ context.Context, userID, leadID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[leadID]
	if !ok || lead.UserID != userID {
		return fmt.Errorf("lead %s: %w", leadID, leads.ErrNotFound)
	}
	lead.Status = leads.StatusFailed
	lead.EnrichedAt = &at
	s.leads[leadID] = lead
	return nil
}

// CommitSuccess deducts cost and stores the result atomically.
func (s *LeadStore) CommitSuccess(
	_ context.Context,
	userID, leadID string,
	result enrich.Result,
	cost int,
	at time.Time,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[leadID]
	if !ok || lead.UserID != userID {
		return 0, fmt.Errorf("lead %s: %w", leadID, leads.ErrNotFound)
	}
	balance := s.balances[userID]
	if balance < cost {
		return 0, fmt.Errorf("deduct %d from %s: %w", cost, userID, leads.ErrInsufficientCredits)
	}
	balance -= cost
	s.balances[userID] = balance

	if result.Email != nil {
		email := *result.Email
		lead.Email = &email
	}
	lead.SocialLinks = maps.Clone(result.SocialLinks)
	lead.Status = leads.StatusSuccess
	lead.EnrichedAt = &at
	s.leads[leadID] = lead
	return balance, nil
}

func cloneLead(lead leads.Lead) leads.Lead {
	if lead.Email != nil {
		email := *lead.Email
		lead.Email = &email
	}
	if lead.EnrichedAt != nil {
		at := *lead.EnrichedAt
		lead.EnrichedAt = &at
	}
	lead.SocialLinks = maps.Clone(lead.SocialLinks)
	return lead
}
