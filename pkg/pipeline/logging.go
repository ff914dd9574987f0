package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nandavh/toolpipe/internal/audit"
	"github.com/nandavh/toolpipe/internal/logger"
	"github.com/nandavh/toolpipe/internal/metrics"
	"github.com/nandavh/toolpipe/internal/tracing"
)

const truncationMarker = "... [truncated]"

// auditConfig is the logging stage's wiring.
type auditConfig struct {
	recorder     audit.Recorder
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	excerptLimit int
	redactParams []string
}

// loggingStage persists the audit trail around the handler. The "started"
// record is written before the handler runs, so a crash mid-handler leaves
// a recoverable started-but-never-completed row. Persistence failures are
// reported only through the warn log and a counter; they never change the
// call's result.
func loggingStage(cfg auditConfig) StageFunc {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, call *Call) (any, error) {
			correlationID := tracing.GetCorrelationID(ctx)
			recordID, idErr := gonanoid.New()
			if idErr != nil {
				recordID = correlationID
			}

			ctx, span := tracing.StartInvocationSpan(ctx, "tool."+call.desc.Name,
				attribute.String("tool", call.desc.Name),
			)
			defer span.End()

			// Wall clock for display, monotonic (carried inside started)
			// for the duration.
			started := time.Now()

			cfg.safeRecord(ctx, "begin", func(ctx context.Context) error {
				return cfg.recorder.Begin(ctx, audit.Record{
					ID:            recordID,
					CorrelationID: correlationID,
					ToolName:      call.desc.Name,
					StartedAt:     started,
					Status:        audit.StatusStarted,
					InputExcerpt:  cfg.excerpt(logger.MaskParams(call.args, cfg.redactParams)),
				})
			})

			// A panicking handler must not leave the record open: finalize
			// it with an error completion here, then re-raise so the
			// boundary stage renders the payload as usual.
			defer func() {
				if r := recover(); r != nil {
					duration := time.Since(started)
					cfg.safeRecord(ctx, "complete", func(ctx context.Context) error {
						return cfg.recorder.Complete(ctx, recordID, audit.Completion{
							CompletedAt:  started.Add(duration),
							DurationMS:   duration.Milliseconds(),
							Status:       audit.StatusError,
							ErrorKind:    KindHandlerRuntime,
							ErrorMessage: fmt.Sprintf("panic: %v", r),
						})
					})
					span.SetStatus(codes.Error, KindHandlerRuntime)
					if _, isBatchItem := tracing.GetBatchIndex(ctx); isBatchItem {
						cfg.metrics.RecordBatchItem(call.desc.Name, audit.StatusError)
					} else {
						cfg.metrics.RecordInvocation(call.desc.Name, audit.StatusError, duration.Seconds())
					}
					panic(r)
				}
			}()

			result, err := next(ctx, call)

			duration := time.Since(started)
			completion := audit.Completion{
				CompletedAt: started.Add(duration),
				DurationMS:  duration.Milliseconds(),
			}

			log := tracing.LoggerFromContext(ctx, cfg.logger)
			if err != nil {
				completion.Status = audit.StatusError
				completion.ErrorKind = ErrorKind(err)
				completion.ErrorMessage = err.Error()
				span.SetStatus(codes.Error, completion.ErrorKind)
				log.Error().
					Err(err).
					Str("error_kind", completion.ErrorKind).
					Dur("duration", duration).
					Msg("Tool invocation failed")
			} else {
				completion.Status = audit.StatusSuccess
				completion.OutputExcerpt = cfg.excerpt(result)
				log.Debug().
					Dur("duration", duration).
					Msg("Tool invocation completed")
			}

			cfg.safeRecord(ctx, "complete", func(ctx context.Context) error {
				return cfg.recorder.Complete(ctx, recordID, completion)
			})

			if _, isBatchItem := tracing.GetBatchIndex(ctx); isBatchItem {
				cfg.metrics.RecordBatchItem(call.desc.Name, completion.Status)
			} else {
				cfg.metrics.RecordInvocation(call.desc.Name, completion.Status, duration.Seconds())
			}

			return result, err
		}
	}
}

// safeRecord shields the call from any audit-backend misbehavior,
// including panics. The record is finalized with a background context so a
// caller timeout cannot also lose the completion row.
func (cfg auditConfig) safeRecord(ctx context.Context, op string, write func(context.Context) error) {
	if cfg.recorder == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			cfg.metrics.RecordAuditWriteFailure()
			cfg.logger.Warn().
				Str("op", op).
				Interface("panic", r).
				Msg("Audit backend panicked; record dropped")
		}
	}()

	writeCtx := context.WithoutCancel(ctx)
	if err := write(writeCtx); err != nil {
		cfg.metrics.RecordAuditWriteFailure()
		cfg.logger.Warn().
			Err(err).
			Str("op", op).
			Msg("Audit write failed; invocation result unaffected")
	}
}

// excerpt renders a size-capped JSON excerpt for the audit trail.
func (cfg auditConfig) excerpt(v any) string {
	if v == nil {
		return ""
	}

	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", v))
	}

	limit := cfg.excerptLimit
	if limit <= 0 || len(data) <= limit {
		return string(data)
	}
	return string(data[:limit]) + truncationMarker
}
