package container

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"gosplit/adapters/excel"
	"gosplit/adapters/memory"
	"gosplit/adapters/postgres"
	"gosplit/app"
	"gosplit/internal"
	"gosplit/internal/config"
	"gosplit/internal/errors"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Log    *internal.Logger

	// Stores (process-resident state)
	Experiments *memory.ExperimentStore
	Assignments *memory.AssignmentTable
	Ledger      *memory.MetricLedger
	Flags       *memory.FlagStore
	Audience    *memory.StaticAudience

	// Services
	Engine      *app.Engine
	FlagService *app.FlagService
	Runner      *app.Runner
	Exporter    *excel.Exporter

	// Optional archive infrastructure
	DB      *sqlx.DB
	Archive *postgres.ResultArchive
}

// New builds the dependency graph. When the config carries a database
// URL, the result archive is connected and wired into the engine; the
// engine runs fully in memory otherwise.
func New(ctx context.Context, cfg *config.Config, log *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "config cannot be nil")
	}

	c := &Container{
		Config:      cfg,
		Log:         log,
		Experiments: memory.NewExperimentStore(),
		Assignments: memory.NewAssignmentTable(),
		Ledger:      memory.NewMetricLedger(),
		Flags:       memory.NewFlagStore(),
		Audience:    memory.NewStaticAudience(),
		Exporter:    excel.NewExporter(),
	}

	opts := []app.EngineOption{app.WithAudienceResolver(c.Audience)}

	if cfg.Database.URL != "" {
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to archive database")
		}
		archive := postgres.NewResultArchive(db)
		if err := archive.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		c.DB = db
		c.Archive = archive
		opts = append(opts, app.WithArchive(archive))
		log.Info("result archive connected")
	}

	c.Engine = app.NewEngine(c.Experiments, c.Assignments, c.Ledger, log, opts...)
	c.FlagService = app.NewFlagService(c.Flags, c.Experiments, c.Audience, log)
	c.Runner = app.NewRunner(c.Engine, cfg.Runner.PollInterval, log)

	return c, nil
}

// Close releases held resources.
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
