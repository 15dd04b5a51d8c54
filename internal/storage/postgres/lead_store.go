// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/leadhunter-enricher/internal/enrich"
	"github.com/JakeFAU/leadhunter-enricher/internal/leads"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// LeadStoreConfig controls the Postgres connection pool used for leads and credits.
type LeadStoreConfig struct {
	DSN             string
	LeadsTable      string
	ProfilesTable   string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// LeadStore reads and writes leads in Postgres and charges credits through the
// deduct_credits stored procedure.
type LeadStore struct {
	pool     pool
	leads    string
	profiles string
}

// NewLeadStore creates a Postgres-backed LeadStore using the provided config.
func NewLeadStore(ctx context.Context, cfg LeadStoreConfig) (*LeadStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	leadsTable, profilesTable, err := tableNames(cfg.LeadsTable, cfg.ProfilesTable)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &LeadStore{pool: p, leads: leadsTable, profiles: profilesTable}, nil
}

// NewLeadStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewLeadStoreWithPool(p pool, leadsTable, profilesTable string) (*LeadStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	leadsTable, profilesTable, err := tableNames(leadsTable, profilesTable)
	if err != nil {
		return nil, err
	}
	return &LeadStore{pool: p, leads: leadsTable, profiles: profilesTable}, nil
}

func tableNames(leadsTable, profilesTable string) (string, string, error) {
	if leadsTable == "" {
		leadsTable = "leads"
	}
	if profilesTable == "" {
		profilesTable = "profiles"
	}
	for _, name := range []string{leadsTable, profilesTable} {
		if !validTableName.MatchString(name) {
			return "", "", fmt.Errorf("invalid table name %q", name)
		}
	}
	return leadsTable, profilesTable, nil
}

// Ping verifies the database is reachable.
func (s *LeadStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *LeadStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *LeadStore) selectColumns() string {
	return fmt.Sprintf(`SELECT
	id,
	COALESCE(list_id::text, ''),
	user_id::text,
	COALESCE(name, ''),
	COALESCE(website, ''),
	email,
	COALESCE(social_links, '{}'::jsonb),
	COALESCE(enrichment_status, 'pending'),
	enriched_at
FROM %s`, s.leads)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(row scanner) (leads.Lead, error) {
	var (
		lead   leads.Lead
		social []byte
		status string
	)
	if err := row.Scan(
		&lead.ID,
		&lead.ListID,
		&lead.UserID,
		&lead.Name,
		&lead.Website,
		&lead.Email,
		&social,
		&status,
		&lead.EnrichedAt,
	); err != nil {
		return leads.Lead{}, err
	}
	lead.Status = leads.Status(status)
	lead.SocialLinks = map[enrich.Platform]string{}
	if len(social) > 0 {
		if err := json.Unmarshal(social, &lead.SocialLinks); err != nil {
			return leads.Lead{}, fmt.Errorf("decode social_links: %w", err)
		}
	}
	return lead, nil
}

// GetLead returns a lead owned by userID.
func (s *LeadStore) GetLead(ctx context.Context, userID, leadID string) (leads.Lead, error) {
	query := s.selectColumns() + "\nWHERE id = $1 AND user_id = $2"
	lead, err := scanLead(s.pool.QueryRow(ctx, query, leadID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leads.Lead{}, fmt.Errorf("lead %s: %w", leadID, leads.ErrNotFound)
		}
		return leads.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// ListLeads returns the leads of a list that still need enrichment.
func (s *LeadStore) ListLeads(ctx context.Context, userID, listID string) ([]leads.Lead, error) {
	query := s.selectColumns() + `
WHERE list_id = $1 AND user_id = $2
	AND website IS NOT NULL AND website <> ''
	AND COALESCE(enrichment_status, 'pending') <> 'success'
ORDER BY id`
	rows, err := s.pool.Query(ctx, query, listID, userID)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []leads.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead row: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return out, nil
}

// Balance returns the user's remaining credits.
func (s *LeadStore) Balance(ctx context.Context, userID string) (int, error) {
	query := fmt.Sprintf(`SELECT credits FROM %s WHERE id = $1`, s.profiles)
	var credits int
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&credits); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("profile %s: %w", userID, leads.ErrNotFound)
		}
		return 0, fmt.Errorf("get credits: %w", err)
	}
	return credits, nil
}

// MarkFailed records a failed enrichment attempt. Nothing is charged.
func (s *LeadStore) MarkFailed(ctx context.Context, userID, leadID string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s
SET enrichment_status = $1, enriched_at = $2
WHERE id = $3 AND user_id = $4`, s.leads)
	tag, err := s.pool.Exec(ctx, query, string(leads.StatusFailed), at, leadID, userID)
	if err != nil {
		return fmt.Errorf("mark lead failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lead %s: %w", leadID, leads.ErrNotFound)
	}
	return nil
}

// CommitSuccess deducts cost and writes the result in a single transaction.
// deduct_credits returns NULL when the balance cannot cover cost; the
// transaction is then rolled back and ErrInsufficientCredits returned.
func (s *LeadStore) CommitSuccess(
	ctx context.Context,
	userID, leadID string,
	result enrich.Result,
	cost int,
	at time.Time,
) (remaining int, err error) {
	links := result.SocialLinks
	if links == nil {
		links = map[enrich.Platform]string{}
	}
	social, err := json.Marshal(links)
	if err != nil {
		return 0, fmt.Errorf("marshal social links: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var balance *int
	if err = tx.QueryRow(ctx, `SELECT deduct_credits($1, $2)`, userID, cost).Scan(&balance); err != nil {
		return 0, fmt.Errorf("deduct credits: %w", err)
	}
	if balance == nil {
		err = fmt.Errorf("deduct %d from %s: %w", cost, userID, leads.ErrInsufficientCredits)
		return 0, err
	}

	query := fmt.Sprintf(`UPDATE %s
SET email = COALESCE($1, email),
	social_links = $2,
	enrichment_status = $3,
	enriched_at = $4
WHERE id = $5 AND user_id = $6`, s.leads)
	tag, err := tx.Exec(ctx, query, nullableString(result.Email), social, string(leads.StatusSuccess), at, leadID, userID)
	if err != nil {
		return 0, fmt.Errorf("update lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("lead %s: %w", leadID, leads.ErrNotFound)
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return *balance, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
