// Package memory contains an in-memory event publisher for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/leadhunter-enricher/internal/leads"
)

// Publisher stores published events for inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []leads.LeadEnrichedEvent
	err    error
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// FailWith makes every subsequent Publish return err. Passing nil restores success.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Publish records the event and returns a pseudo message ID.
func (p *Publisher) Publish(_ context.Context, event leads.LeadEnrichedEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return fmt.Sprintf("memory-%d", len(p.events)), nil
}

// Events returns the recorded events.
func (p *Publisher) Events() []leads.LeadEnrichedEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]leads.LeadEnrichedEvent, len(p.events))
	copy(out, p.events)
	return out
}
