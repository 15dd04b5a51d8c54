package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/leadhunter-enricher/internal/enrich"
	"github.com/JakeFAU/leadhunter-enricher/internal/leads"
)

func TestLeadStoreScopesByUser(t *testing.T) {
	t.Parallel()

	store := NewLeadStore()
	store.PutLead(leads.Lead{ID: "lead-1", UserID: "alice", ListID: "list-1", Website: "acme.com"})

	got, err := store.GetLead(context.Background(), "alice", "lead-1")
	require.NoError(t, err)
	require.Equal(t, leads.StatusPending, got.Status)

	_, err = store.GetLead(context.Background(), "mallory", "lead-1")
	require.ErrorIs(t, err, leads.ErrNotFound)
	require.ErrorIs(t, store.MarkFailed(context.Background(), "mallory", "lead-1", time.Now()), leads.ErrNotFound)
}

func TestLeadStoreListLeadsFiltersEnrichable(t *testing.T) {
	t.Parallel()

	store := NewLeadStore()
	store.PutLead(leads.Lead{ID: "b", UserID: "u", ListID: "l", Website: "b.com"})
	store.PutLead(leads.Lead{ID: "a", UserID: "u", ListID: "l", Website: "a.com", Status: leads.StatusFailed})
	store.PutLead(leads.Lead{ID: "c", UserID: "u", ListID: "l", Website: "c.com", Status: leads.StatusSuccess})
	store.PutLead(leads.Lead{ID: "d", UserID: "u", ListID: "l"})
	store.PutLead(leads.Lead{ID: "e", UserID: "u", ListID: "other", Website: "e.com"})
	store.PutLead(leads.Lead{ID: "f", UserID: "x", ListID: "l", Website: "f.com"})

	got, err := store.ListLeads(context.Background(), "u", "l")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].ID)
	require.Equal(t, "b", got[1].ID)
}

func TestLeadStoreCommitSuccessDeductsAndUpdates(t *testing.T) {
	t.Parallel()

	store := NewLeadStore()
	store.PutLead(leads.Lead{ID: "lead-1", UserID: "u", Website: "acme.com"})
	store.SetBalance("u", 2)

	email := "info@acme.com"
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	result := enrich.Result{Email: &email, SocialLinks: map[enrich.Platform]string{enrich.PlatformX: "https://x.com/acme"}}

	remaining, err := store.CommitSuccess(context.Background(), "u", "lead-1", result, 1, at)
	require.NoError(t, err)
	require.Equal(t, 1, remaining)

	// Mutating the caller's map must not leak into the store.
	result.SocialLinks[enrich.PlatformX] = "changed"

	lead, err := store.GetLead(context.Background(), "u", "lead-1")
	require.NoError(t, err)
	require.Equal(t, leads.StatusSuccess, lead.Status)
	require.Equal(t, "info@acme.com", *lead.Email)
	require.Equal(t, "https://x.com/acme", lead.SocialLinks[enrich.PlatformX])
	require.Equal(t, at, *lead.EnrichedAt)

	balance, err := store.Balance(context.Background(), "u")
	require.NoError(t, err)
	require.Equal(t, 1, balance)
}

func TestLeadStoreCommitSuccessInsufficientWritesNothing(t *testing.T) {
	t.Parallel()

	store := NewLeadStore()
	store.PutLead(leads.Lead{ID: "lead-1", UserID: "u", Website: "acme.com"})
	store.SetBalance("u", 0)

	_, err := store.CommitSuccess(context.Background(), "u", "lead-1", enrich.Empty(), 1, time.Now())
	require.True(t, errors.Is(err, leads.ErrInsufficientCredits))

	lead, err := store.GetLead(context.Background(), "u", "lead-1")
	require.NoError(t, err)
	require.Equal(t, leads.StatusPending, lead.Status)
	require.Nil(t, lead.EnrichedAt)
}

func TestLeadStoreConcurrentCommitsNeverOverdraw(t *testing.T) {
	t.Parallel()

	store := NewLeadStore()
	store.SetBalance("u", 3)
	ids := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
	for _, id := range ids {
		store.PutLead(leads.Lead{ID: id, UserID: "u", Website: id + ".com"})
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		charged int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := store.CommitSuccess(context.Background(), "u", id, enrich.Empty(), 1, time.Now()); err == nil {
				mu.Lock()
				charged++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	require.Equal(t, 3, charged)
	balance, err := store.Balance(context.Background(), "u")
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestLeadStoreUnknownProfile(t *testing.T) {
	t.Parallel()

	_, err := NewLeadStore().Balance(context.Background(), "ghost")
	require.ErrorIs(t, err, leads.ErrNotFound)
}
