package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/leadhunter-enricher/internal/metrics"
)

// Enricher runs the normalize, fetch, extract and classify pipeline. It holds no
// per-call state and is safe for concurrent use.
type Enricher struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// New constructs an Enricher around the supplied fetcher.
func New(fetcher Fetcher, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Enrich fetches the website and extracts an email and social links. It never
// returns an error: every failure yields Empty() and is reported through logs
// and metrics only.
func (e *Enricher) Enrich(ctx context.Context, website string) (result Result) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("enrichment panicked", zap.String("website", website), zap.Any("panic", rec))
			result = Empty()
		}
		outcome := "failure"
		if result.Success() {
			outcome = "success"
		}
		metrics.ObserveEnrichment(outcome, time.Since(start))
	}()

	res, err := e.run(ctx, website)
	if err != nil {
		kind := FailureKind(err)
		metrics.ObserveEnrichmentFailure(kind)
		e.logger.Info("enrichment failed",
			zap.String("website", website),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return Empty()
	}
	if !res.Success() {
		metrics.ObserveEnrichmentFailure(KindNoMatch)
		e.logger.Debug("no contact data found", zap.String("website", website))
	}
	return res
}

func (e *Enricher) run(ctx context.Context, website string) (Result, error) {
	target, ok := NormalizeURL(website)
	if !ok {
		return Result{}, ErrEmptyInput
	}
	if e.fetcher == nil {
		return Result{}, &NetworkError{URL: target, Err: errors.New("no fetcher configured")}
	}
	page, err := e.fetcher.Fetch(ctx, target)
	if err != nil {
		return Result{}, fmt.Errorf("enrich %s: %w", target, err)
	}
	return Extract(string(page.Body)), nil
}

// Extract applies both extractors to an HTML document.
func Extract(html string) Result {
	result := Result{SocialLinks: ExtractSocialLinks(html)}
	if email := ExtractEmail(html); email != "" {
		result.Email = &email
	}
	return result
}
