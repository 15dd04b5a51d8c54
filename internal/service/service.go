// Package service orchestrates lead enrichment: ownership lookup, credit checks,
// the enrichment core, transactional charging, and event publishing.
package service

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/leadhunter-enricher/internal/enrich"
	"github.com/JakeFAU/leadhunter-enricher/internal/leads"
	"github.com/JakeFAU/leadhunter-enricher/internal/metrics"
)

var tracer = otel.Tracer("github.com/JakeFAU/leadhunter-enricher/internal/service")

// Config controls Service behavior.
type Config struct {
	CostPerEnrichment int
}

// Outcome reports what EnrichLead did to one lead.
type Outcome struct {
	Lead    leads.Lead
	Result  enrich.Result
	Charged int
	Balance int
}

// Service enriches saved leads on behalf of a user.
type Service struct {
	store     leads.LeadStore
	enricher  leads.Enricher
	publisher leads.Publisher
	clock     leads.Clock
	ids       leads.IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Service. publisher may be nil.
func New(
	store leads.LeadStore,
	enricher leads.Enricher,
	publisher leads.Publisher,
	clock leads.Clock,
	ids leads.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CostPerEnrichment <= 0 {
		cfg.CostPerEnrichment = 1
	}
	return &Service{
		store:     store,
		enricher:  enricher,
		publisher: publisher,
		clock:     clock,
		ids:       ids,
		cfg:       cfg,
		logger:    logger.Named("service"),
	}
}

// EnrichWebsite runs the enrichment core without touching any lead.
func (s *Service) EnrichWebsite(ctx context.Context, website string) enrich.Result {
	return s.enricher.Enrich(ctx, website)
}

// EnrichLead enriches one lead owned by userID. A failed enrichment is not an
// error: the lead is marked failed and nothing is charged. Errors are reserved for
// unknown leads (leads.ErrNotFound), an exhausted balance
// (leads.ErrInsufficientCredits), and storage failures.
func (s *Service) EnrichLead(ctx context.Context, userID, leadID string) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "EnrichLead", trace.WithAttributes(
		attribute.String("lead.id", leadID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	out, err := s.enrichLead(ctx, userID, leadID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.Bool("enrich.success", out.Result.Success()),
		attribute.Int("credits.charged", out.Charged),
	)
	return out, err
}

func (s *Service) enrichLead(ctx context.Context, userID, leadID string) (Outcome, error) {
	lead, err := s.store.GetLead(ctx, userID, leadID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load lead: %w", err)
	}

	balance, err := s.store.Balance(ctx, userID)
	switch {
	case errors.Is(err, leads.ErrNotFound):
		balance = 0
	case err != nil:
		return Outcome{}, fmt.Errorf("load balance: %w", err)
	}
	if balance < s.cfg.CostPerEnrichment {
		return Outcome{Lead: lead, Result: enrich.Empty(), Balance: balance},
			fmt.Errorf("lead %s needs %d credits, has %d: %w", leadID, s.cfg.CostPerEnrichment, balance, leads.ErrInsufficientCredits)
	}

	result := s.enricher.Enrich(ctx, lead.Website)
	now := s.clock.Now()

	if !result.Success() {
		if err := s.store.MarkFailed(ctx, userID, leadID, now); err != nil {
			return Outcome{}, fmt.Errorf("mark lead failed: %w", err)
		}
		lead.Status = leads.StatusFailed
		lead.EnrichedAt = &now
		s.logger.Debug("lead enrichment found nothing",
			zap.String("lead_id", leadID),
			zap.String("website", lead.Website),
		)
		return Outcome{Lead: lead, Result: result, Balance: balance}, nil
	}

	remaining, err := s.store.CommitSuccess(ctx, userID, leadID, result, s.cfg.CostPerEnrichment, now)
	if err != nil {
		return Outcome{Lead: lead, Result: result, Balance: balance}, fmt.Errorf("commit enrichment: %w", err)
	}
	metrics.ObserveCreditsCharged(s.cfg.CostPerEnrichment)

	if result.Email != nil {
		lead.Email = result.Email
	}
	lead.SocialLinks = maps.Clone(result.SocialLinks)
	lead.Status = leads.StatusSuccess
	lead.EnrichedAt = &now

	s.publish(ctx, lead)

	s.logger.Info("lead enriched",
		zap.String("lead_id", leadID),
		zap.String("user_id", userID),
		zap.Bool("email_found", result.Email != nil),
		zap.Int("social_links", len(result.SocialLinks)),
		zap.Int("balance", remaining),
	)
	return Outcome{
		Lead:    lead,
		Result:  result,
		Charged: s.cfg.CostPerEnrichment,
		Balance: remaining,
	}, nil
}

func (s *Service) publish(ctx context.Context, lead leads.Lead) {
	if s.publisher == nil {
		return
	}
	eventID := lead.ID
	if s.ids != nil {
		if id, err := s.ids.NewID(); err == nil {
			eventID = id
		} else {
			s.logger.Warn("generate event id failed", zap.Error(err))
		}
	}
	event := leads.LeadEnrichedEvent{
		EventID:     eventID,
		LeadID:      lead.ID,
		UserID:      lead.UserID,
		Email:       lead.Email,
		SocialLinks: lead.SocialLinks,
		EnrichedAt:  *lead.EnrichedAt,
	}
	if _, err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish lead enriched event failed",
			zap.String("lead_id", lead.ID),
			zap.Error(err),
		)
	}
}
