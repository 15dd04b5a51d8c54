// Package server builds the enrichment service's dependencies and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/leadhunter-enricher/internal/api"
	"github.com/JakeFAU/leadhunter-enricher/internal/clock/system"
	"github.com/JakeFAU/leadhunter-enricher/internal/config"
	"github.com/JakeFAU/leadhunter-enricher/internal/dispatcher"
	"github.com/JakeFAU/leadhunter-enricher/internal/enrich"
	collyfetcher "github.com/JakeFAU/leadhunter-enricher/internal/fetcher/colly"
	"github.com/JakeFAU/leadhunter-enricher/internal/id/uuid"
	"github.com/JakeFAU/leadhunter-enricher/internal/leads"
	"github.com/JakeFAU/leadhunter-enricher/internal/logging"
	"github.com/JakeFAU/leadhunter-enricher/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/leadhunter-enricher/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/leadhunter-enricher/internal/publisher/pubsub"
	queuememory "github.com/JakeFAU/leadhunter-enricher/internal/queue/memory"
	"github.com/JakeFAU/leadhunter-enricher/internal/service"
	memorystorage "github.com/JakeFAU/leadhunter-enricher/internal/storage/memory"
	pgstore "github.com/JakeFAU/leadhunter-enricher/internal/storage/postgres"
	"github.com/JakeFAU/leadhunter-enricher/internal/telemetry"
	"github.com/JakeFAU/leadhunter-enricher/internal/worker"
)

// App contains the application's dependencies.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	service      *service.Service
	apiServer    *api.Server
	dispatch     *dispatcher.Dispatcher
	queue        *queuememory.Queue
	leadStore    leads.LeadStore
	pgStore      *pgstore.LeadStore
	publisher    leads.Publisher
	pubsubClient *pubsub.Client
	topic        *pubsub.Topic

	tracerShutdown func(context.Context) error
}

// Build creates the application's dependencies. Extra client options are passed
// to the Pub/Sub client.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...option.ClientOption) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.Int("workers", cfg.Bulk.Workers),
		zap.Int("per_job_concurrency", cfg.Bulk.PerJobConcurrency),
		zap.Bool("auth_enabled", cfg.Auth.Enabled),
	)

	tp, err := telemetry.InitTracerProvider(ctx, logging.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}
	app.tracerShutdown = tp.Shutdown

	if err := app.setupLeadStore(ctx); err != nil {
		return nil, err
	}
	if err := app.setupPublisher(ctx, opts...); err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Enrichment.UserAgent,
		Timeout:      cfg.FetchTimeout(),
		MaxBodyBytes: cfg.Enrichment.MaxBodyBytes,
	})
	logger.Info("using colly fetcher",
		zap.String("user_agent", cfg.Enrichment.UserAgent),
		zap.Duration("timeout", cfg.FetchTimeout()),
		zap.Int64("max_body_bytes", cfg.Enrichment.MaxBodyBytes),
	)

	clock := system.New()
	ids := uuid.New()
	app.service = service.New(
		app.leadStore,
		enrich.New(fetcher, logger),
		app.publisher,
		clock,
		ids,
		service.Config{CostPerEnrichment: cfg.Credits.CostPerEnrichment},
		logger,
	)

	app.queue = queuememory.NewQueue(cfg.Bulk.QueueDepth)
	jobStore := memorystorage.NewJobStore()
	workers, err := app.buildWorkers(jobStore)
	if err != nil {
		app.closeInfrastructure()
		return nil, err
	}
	app.dispatch = dispatcher.New(app.queue, jobStore, ids, clock, workers)

	var ready api.ReadinessFunc
	if app.pgStore != nil {
		ready = app.pgStore.Ping
	}
	app.apiServer = api.NewServer(app.service, app.dispatch, ready, cfg, logger)
	return app, nil
}

func (a *App) setupLeadStore(ctx context.Context) error {
	if a.cfg.DB.DSN == "" {
		a.logger.Warn("no database DSN configured, leads and credits are kept in memory")
		a.leadStore = memorystorage.NewLeadStore()
		return nil
	}
	store, err := pgstore.NewLeadStore(ctx, pgstore.LeadStoreConfig{
		DSN:             a.cfg.DB.DSN,
		LeadsTable:      a.cfg.DB.LeadsTable,
		ProfilesTable:   a.cfg.DB.ProfilesTable,
		MaxConns:        a.cfg.DB.MaxConns,
		MinConns:        a.cfg.DB.MinConns,
		MaxConnLifetime: a.cfg.ConnLifetime(),
	})
	if err != nil {
		return fmt.Errorf("lead store init failed: %w", err)
	}
	a.pgStore = store
	a.leadStore = store
	a.logger.Info("postgres lead store initialized",
		zap.String("leads_table", a.cfg.DB.LeadsTable),
		zap.String("profiles_table", a.cfg.DB.ProfilesTable),
	)
	return nil
}

func (a *App) setupPublisher(ctx context.Context, opts ...option.ClientOption) error {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		a.publisher = memorypublisher.New()
		return nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID, opts...)
	if err != nil {
		return fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubClient = client
	a.topic = client.Topic(a.cfg.PubSub.TopicName)
	a.publisher = gcppublisher.New(a.topic)
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return nil
}

func (a *App) buildWorkers(jobStore leads.JobStore) ([]*worker.Worker, error) {
	limiter, err := ratelimit.New(ratelimit.Config{
		DefaultRPS:   a.cfg.Bulk.RateLimitRPS,
		DefaultBurst: a.cfg.Bulk.RateLimitBurst,
		MaxDomains:   a.cfg.Bulk.RateLimitMaxDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limiter init failed: %w", err)
	}
	workerCfg := worker.Config{PerJobConcurrency: a.cfg.Bulk.PerJobConcurrency}
	workers := make([]*worker.Worker, 0, a.cfg.Bulk.Workers)
	for i := range a.cfg.Bulk.Workers {
		workers = append(workers, worker.New(
			a.queue,
			jobStore,
			a.leadStore,
			a.service,
			limiter,
			workerCfg,
			a.logger.With(zap.Int("index", i)),
		))
	}
	return workers, nil
}

// Handler exposes the HTTP routes.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Service exposes the enrichment service.
func (a *App) Service() *service.Service {
	return a.service
}

// LeadStore exposes the configured lead store.
func (a *App) LeadStore() leads.LeadStore {
	return a.leadStore
}

// Run serves HTTP and processes bulk jobs until the context is canceled or the
// process receives SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		a.logger.Info("dispatcher started")
		a.dispatch.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	<-dispatchDone
	a.Close()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// Close releases the queue, the Pub/Sub client, and the database pool.
func (a *App) Close() {
	a.queue.Close()
	a.closeInfrastructure()
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
}

func (a *App) closeInfrastructure() {
	if a.topic != nil {
		a.topic.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
}
