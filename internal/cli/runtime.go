package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/nandavh/toolpipe/internal/audit"
	"github.com/nandavh/toolpipe/internal/config"
	"github.com/nandavh/toolpipe/internal/logger"
	"github.com/nandavh/toolpipe/internal/metrics"
	"github.com/nandavh/toolpipe/internal/tracing"
	"github.com/nandavh/toolpipe/pkg/coretools"
	"github.com/nandavh/toolpipe/pkg/pipeline"
)

// runtime bundles the wired components one command invocation needs.
type runtime struct {
	cfg      *config.Config
	log      *logger.Logger
	store    *audit.Store
	registry *pipeline.Registry
}

// newRuntime loads configuration and brings the stack up in dependency
// order: config, logger, metrics, audit store, then the frozen registry.
func newRuntime() (*runtime, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Redaction.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := tracing.InitOpenTelemetry("toolpipe"); err != nil {
		zl := log.GetZerolog()
		zl.Warn().Err(err).Msg("Tracing disabled")
	}

	store, err := audit.Open(cfg.Audit.DBPath, log.GetZerolog())
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open audit store: %w", err)
	}

	var redacted []string
	if cfg.Redaction.Enabled {
		redacted = cfg.Redaction.Params
	}

	registry := pipeline.New(
		pipeline.WithRecorder(store),
		pipeline.WithLogger(log.GetZerolog()),
		pipeline.WithMetrics(metrics.New()),
		pipeline.WithBatchWorkers(cfg.Batch.Workers),
		pipeline.WithExcerptLimit(cfg.Audit.ExcerptLimit),
		pipeline.WithRedactedParams(redacted),
	)

	if err := coretools.Register(registry); err != nil {
		store.Close()
		log.Close()
		return nil, fmt.Errorf("failed to register core tools: %w", err)
	}
	registry.Freeze()

	return &runtime{
		cfg:      cfg,
		log:      log,
		store:    store,
		registry: registry,
	}, nil
}

// callOptions translates the shared invocation flags.
func callOptions(correlationID string, timeout time.Duration) []pipeline.CallOption {
	var opts []pipeline.CallOption
	if correlationID != "" {
		opts = append(opts, pipeline.WithCorrelationID(correlationID))
	}
	if timeout > 0 {
		opts = append(opts, pipeline.WithTimeout(timeout))
	}
	return opts
}

// close tears the runtime down in reverse order.
func (r *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	tracing.ShutdownOpenTelemetry(ctx)

	if r.registry != nil {
		r.registry.Close()
	}
	if r.store != nil {
		r.store.Close()
	}
	if r.log != nil {
		r.log.Close()
	}
}
