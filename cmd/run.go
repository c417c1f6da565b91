package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"accrual/application"
	"accrual/config"
	"accrual/database"
	"accrual/events"
	"accrual/infrastructure"
	"accrual/infrastructure/observability"
	"accrual/repository"
	"accrual/service"

	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// components holds everything both entry points need
type components struct {
	cfg        *config.Config
	db         *database.DB
	backend    *infrastructure.EventBackend
	uowFactory service.UnitOfWorkFactory
	accrual    *service.AccrualService
}

func setup(ctx context.Context) (*components, error) {
	cfg := config.Get()
	config.SetupLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting interest accrual...")

	log.Info("Initializing metrics...")
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	log.WithField("backend", cfg.EventBackend).Info("Initializing event backend...")
	backend, err := infrastructure.NewEventBackend(ctx, cfg, events.NewBus())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize event backend: %w", err)
	}
	log.Info("Event backend initialized successfully")

	uowFactory := repository.NewUnitOfWorkFactory(db, backend.Publisher)
	accrualService := service.NewAccrualService(uowFactory,
		service.WithMetrics(observability.GetMetrics()),
	)

	return &components{
		cfg:        cfg,
		db:         db,
		backend:    backend,
		uowFactory: uowFactory,
		accrual:    accrualService,
	}, nil
}

func (c *components) close() {
	if err := c.backend.Close(); err != nil {
		log.WithError(err).Error("Failed to close event backend")
	}

	c.db.Close()
	log.Info("Database connection closed")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shut down metrics")
	}
}

// Run starts the accrual worker and blocks until ctx is cancelled
func Run(ctx context.Context) error {
	c, err := setup(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	task := service.NewAccrualTask(c.accrual, service.SystemClock)
	worker := application.NewAccrualWorker(c.uowFactory, task, c.backend.Publisher, service.SystemClock, c.cfg.AccrualHour)
	stopWorker := worker.Start(ctx)

	log.Infof("Interest accrual is running in %s mode...", c.cfg.Environment)
	<-ctx.Done()

	log.Info("Shutting down interest accrual...")
	stopWorker()

	log.Info("Shutdown complete")
	return nil
}

// RunOnce executes the accrual job immediately and writes the report to out
// as JSON. With dryRun set every change is rolled back.
func RunOnce(ctx context.Context, dryRun bool, out io.Writer) error {
	c, err := setup(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	svc := c.accrual
	if dryRun {
		log.Info("Dry run: no changes will be committed")
		svc = service.NewAccrualService(
			infrastructure.NewDryRunUnitOfWorkFactory(c.uowFactory),
			service.WithMetrics(observability.GetMetrics()),
		)
	}

	report, runErr := svc.Run(ctx, service.SystemClock.Now())

	if report != nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if runErr != nil {
		if err := c.backend.Publisher.Publish(events.AccrualRunFailedEvent{
			Period: report.Period,
			RunAt:  report.RunAt,
			Error:  runErr.Error(),
		}); err != nil {
			log.WithError(err).Warn("Failed to publish accrual run failed event")
		}
		return fmt.Errorf("accrual run failed: %w", runErr)
	}
	return nil
}
