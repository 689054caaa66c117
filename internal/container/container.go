package container

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"degpredict/adapters/blob"
	"degpredict/adapters/sqlstore"
	"degpredict/app"
	"degpredict/internal"
	"degpredict/internal/config"
	"degpredict/internal/knowledge"
	"degpredict/internal/metrics"
	"degpredict/internal/testkit"
	"degpredict/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config    *config.Config
	Logger    *internal.Logger
	Knowledge *knowledge.Knowledge

	// Infrastructure
	DB       *sqlx.DB // nil when no database is configured
	Store    ports.ArtifactStore
	Runs     ports.RunRepository
	Registry *prometheus.Registry
	Metrics  *metrics.Recorder
}

// New creates a new dependency injection container and loads the knowledge
// tables.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))

	k, err := loadKnowledge(cfg.Analysis.KnowledgeFile)
	if err != nil {
		return nil, err
	}
	logger.With("Container").Info("Knowledge %s: %d panel genes, variants %v", k.Version(), len(k.Panel()), k.VariantNames())

	return &Container{
		Config:    cfg,
		Logger:    logger,
		Knowledge: k,
	}, nil
}

func loadKnowledge(path string) (*knowledge.Knowledge, error) {
	if path == "" {
		return knowledge.Default()
	}
	return knowledge.Load(path)
}

// Init opens the artifact store, the run repository and the metrics
// registry. Without DATABASE_URL runs are kept in memory for the lifetime of
// the process.
func (c *Container) Init(ctx context.Context) error {
	store, err := blob.Open(ctx, c.Config.Blob)
	if err != nil {
		return fmt.Errorf("failed to open artifact store: %w", err)
	}
	c.Store = store

	if c.Config.Database.URL != "" {
		db, err := sqlstore.Open(ctx, c.Config.Database)
		if err != nil {
			return fmt.Errorf("failed to open run repository: %w", err)
		}
		c.DB = db
		c.Runs = sqlstore.NewRunRepository(db)
	} else {
		log.Printf("[Container] DATABASE_URL not set, run records kept in memory")
		c.Runs = testkit.NewInMemoryRunRepository()
	}

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.NewRecorder(c.Registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	c.Metrics = rec
	return nil
}

// Pipeline builds a pipeline service from the analysis config.
func (c *Container) Pipeline() (*app.PipelineService, error) {
	return app.NewPipelineService(c.Knowledge, app.PipelineConfigFrom(c.Config.Analysis), c.Store, c.Runs, c.Metrics, c.Logger)
}

// Shutdown releases the database connection
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
