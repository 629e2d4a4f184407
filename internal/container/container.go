package container

import (
	"context"
	"fmt"

	"goamr/adapters/api"
	"goamr/adapters/excel"
	"goamr/adapters/file"
	"goamr/adapters/store"
	"goamr/app"
	"goamr/internal"
	"goamr/internal/config"
	"goamr/internal/errors"
	"goamr/internal/migration"
	"goamr/internal/testkit"
	"goamr/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure; DB is nil when history is disabled
	DB *sqlx.DB

	Source  ports.MetricsSource
	History ports.ReportRepository

	Enricher *app.EnrichmentService
	Reports  *app.ReportService

	closers []func()
}

// New creates a new dependency injection container. The history store is
// connected and migrated when a database URL is configured.
func New(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &Container{Config: cfg, Logger: logger}

	enricher, err := app.NewEnrichmentService(cfg.Estimator.Options(), cfg.Estimator.Workers, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create enrichment service")
	}
	c.Enricher = enricher

	source, closeSource, err := NewSource(cfg.Source)
	if err != nil {
		return nil, err
	}
	c.Source = source
	if closeSource != nil {
		c.closers = append(c.closers, closeSource)
	}

	if cfg.Database.Enabled() {
		if err := c.initDatabase(ctx); err != nil {
			c.Shutdown()
			return nil, err
		}
	} else {
		logger.Info("DATABASE_URL not set, report history disabled")
	}

	c.Reports = app.NewReportService(c.Source, c.Enricher, c.History, logger)
	logger.Info("Container initialized: source=%s history=%t workers=%d z=%.3f",
		c.Source.Name(), c.History != nil, cfg.Estimator.Workers, cfg.Estimator.Z)
	return c, nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	db, err := sqlx.ConnectContext(ctx, c.Config.Database.Driver, c.Config.Database.URL)
	if err != nil {
		return errors.DatabaseError("failed to connect to database", err)
	}
	if c.Config.Database.Driver == "sqlite3" {
		// sqlite serializes writers; a single connection also keeps
		// :memory: databases shared
		db.SetMaxOpenConns(1)
	}
	c.DB = db

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		return errors.DatabaseError("failed to run migrations", err)
	}
	c.Logger.Info("Database ready (%s), schema %s", c.Config.Database.Driver, runner.Version())

	c.History = store.NewReportRepository(db)
	return nil
}

// NewSource builds the metrics source selected by the configuration. The
// returned close function is nil for sources that hold no resources.
func NewSource(cfg config.SourceConfig) (ports.MetricsSource, func(), error) {
	switch cfg.Kind {
	case config.SourceFile:
		return file.NewSource(cfg.File, ""), nil, nil
	case config.SourceExcel:
		return excel.NewSource(excel.DefaultExcelConfig(cfg.File)), nil, nil
	case config.SourceHTTP:
		endpoint := api.DefaultEndpoint(cfg.URL).WithToken(cfg.Token)
		if cfg.Timeout > 0 {
			endpoint.Timeout = cfg.Timeout
		}
		if cfg.RateLimit > 0 {
			endpoint.RateLimit = cfg.RateLimit
		}
		if cfg.Retries >= 0 {
			endpoint.RetryAttempts = cfg.Retries
		}
		reader, err := api.NewAPIReader(endpoint)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to create http metrics source")
		}
		return reader, reader.Close, nil
	case config.SourceSynthetic, "":
		corpus := testkit.DefaultCorpusConfig()
		corpus.Seed = cfg.Seed
		if cfg.Targets > 0 {
			corpus.Targets = cfg.Targets
		}
		return testkit.NewTestKit(corpus).Source(), nil, nil
	}
	return nil, nil, errors.ConfigInvalid(fmt.Sprintf("unknown metrics source %q", cfg.Kind))
}

// Shutdown releases sources and the database connection
func (c *Container) Shutdown() error {
	for _, closeFn := range c.closers {
		closeFn()
	}
	c.closers = nil

	if c.DB != nil {
		err := c.DB.Close()
		c.DB = nil
		return err
	}
	return nil
}
