package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nandavh/toolpipe/internal/audit"
	"github.com/nandavh/toolpipe/internal/logger"
	"github.com/nandavh/toolpipe/internal/metrics"
	"github.com/nandavh/toolpipe/internal/tracing"
)

const defaultBatchWorkers = 4
const defaultExcerptLimit = 4096

// Pipeline is the immutable, reentrant callable built for one tool at
// registration time.
type Pipeline struct {
	desc   Descriptor
	single Invoker
	batch  *batchRunner
}

// Registry owns the registered tools and their composed pipelines. Its
// lifecycle is explicit: populate during startup, Freeze, invoke, Close.
type Registry struct {
	mu        sync.RWMutex
	frozen    bool
	closed    bool
	pipelines map[string]*Pipeline

	validator    *DescriptorValidator
	recorder     audit.Recorder
	logger       zerolog.Logger
	metrics      *metrics.Metrics
	workers      int
	excerptLimit int
	redactParams []string
}

// Option configures a Registry.
type Option func(*Registry)

// WithRecorder sets the audit record persistence backend.
func WithRecorder(r audit.Recorder) Option {
	return func(reg *Registry) { reg.recorder = r }
}

// WithLogger sets the side-channel logger.
func WithLogger(l zerolog.Logger) Option {
	return func(reg *Registry) { reg.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(reg *Registry) { reg.metrics = m }
}

// WithBatchWorkers bounds per-batch concurrency. Values below 1 are
// ignored; batches never run unbounded.
func WithBatchWorkers(n int) Option {
	return func(reg *Registry) {
		if n >= 1 {
			reg.workers = n
		}
	}
}

// WithExcerptLimit caps persisted input/output excerpts, in bytes.
func WithExcerptLimit(n int) Option {
	return func(reg *Registry) {
		if n >= 1 {
			reg.excerptLimit = n
		}
	}
}

// WithRedactedParams masks the named parameters' values in audit excerpts.
func WithRedactedParams(names []string) Option {
	return func(reg *Registry) { reg.redactParams = names }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	reg := &Registry{
		pipelines:    make(map[string]*Pipeline),
		validator:    NewDescriptorValidator(),
		logger:       log.Logger,
		workers:      defaultBatchWorkers,
		excerptLimit: defaultExcerptLimit,
	}
	for _, opt := range opts {
		opt(reg)
	}
	return reg
}

// Register validates a descriptor and composes its pipeline. Stages are
// assembled here, once; the resulting callable never changes. A rejected
// descriptor is local to that one tool.
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.frozen {
		return ErrFrozen
	}

	if err := r.validator.Validate(d); err != nil {
		return err
	}
	if _, exists := r.pipelines[d.Name]; exists {
		return &DescriptorValidationError{Tool: d.Name, Reason: "tool already registered"}
	}

	schema, err := buildSchema(d)
	if err != nil {
		return err
	}

	p := &Pipeline{desc: d}

	cfg := auditConfig{
		recorder:     r.recorder,
		metrics:      r.metrics,
		logger:       r.logger,
		excerptLimit: r.excerptLimit,
		redactParams: r.redactParams,
	}

	// Fixed order, identical for every tool: coercion, exception
	// boundary, logging, then the handler. Batchable tools run this same
	// chain per item underneath the fan-out.
	p.single = chain(handlerInvoker(),
		coercionStage(schema),
		boundaryStage(),
		loggingStage(cfg),
	)

	if d.Batchable {
		p.batch = &batchRunner{
			item:    p.single,
			desc:    &p.desc,
			workers: r.workers,
		}
	}

	r.pipelines[d.Name] = p

	r.logger.Info().
		Str("tool", d.Name).
		Bool("batchable", d.Batchable).
		Msg("Tool registered")

	return nil
}

// Freeze ends the population phase. After Freeze the registry is immutable
// and safe for concurrent callers.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Close tears the registry down. In-flight calls finish; new calls fail.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.pipelines = nil
	return nil
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.pipelines))
	for name := range r.pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptor returns a registered tool's descriptor.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pipelines[name]
	if !ok {
		return Descriptor{}, false
	}
	return p.desc, true
}

func (r *Registry) pipeline(name string) (*Pipeline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrClosed
	}
	p, ok := r.pipelines[name]
	if !ok {
		return nil, &UnknownToolError{Tool: name}
	}
	return p, nil
}

// CallOption configures one invocation.
type CallOption func(*callOptions)

type callOptions struct {
	correlationID string
	timeout       time.Duration
}

// WithCorrelationID supplies the caller's correlation ID. It takes
// priority over generated IDs.
func WithCorrelationID(id string) CallOption {
	return func(o *callOptions) { o.correlationID = id }
}

// WithTimeout bounds the invocation. In-flight work is cancelled
// cooperatively through the context.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) { o.timeout = d }
}

// Invoke runs a non-batchable tool. It returns either a result value or
// the structured error payload, never both.
func (r *Registry) Invoke(ctx context.Context, name string, raw map[string]any, opts ...CallOption) (any, *ErrorPayload) {
	var options callOptions
	for _, opt := range opts {
		opt(&options)
	}

	p, err := r.pipeline(name)
	if err != nil {
		return nil, Normalize(err)
	}
	if p.desc.Batchable {
		return nil, Normalize(fmt.Errorf("%w: tool %q takes a sequence of argument maps", ErrInvalidBatchInput, name))
	}

	ctx = tracing.EnsureCorrelation(ctx, options.correlationID)
	ctx = tracing.WithToolName(ctx, name)

	if options.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.timeout)
		defer cancel()
	}

	value, err := p.single(ctx, &Call{desc: &p.desc, raw: raw})
	if err != nil {
		return nil, Normalize(err)
	}
	return value, nil
}

// InvokeBatch runs a batchable tool over an ordered sequence of argument
// maps. The returned sequence always has the same length as the input;
// failed items carry the structured error in their slot. The error return
// is reserved for precondition failures (unknown tool, non-batchable tool,
// structurally invalid input): those abort the whole call.
func (r *Registry) InvokeBatch(ctx context.Context, name string, raw any, opts ...CallOption) ([]ItemResult, error) {
	var options callOptions
	for _, opt := range opts {
		opt(&options)
	}

	p, err := r.pipeline(name)
	if err != nil {
		return nil, err
	}
	if p.batch == nil {
		return nil, &DescriptorValidationError{Tool: name, Reason: "tool is not batchable"}
	}

	items, err := DecodeBatchItems(raw)
	if err != nil {
		return nil, err
	}

	ctx = tracing.EnsureCorrelation(ctx, options.correlationID)
	ctx = tracing.WithToolName(ctx, name)
	parentID := tracing.GetCorrelationID(ctx)

	if options.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.timeout)
		defer cancel()
	}

	results := r.recordBatch(ctx, p, parentID, items)
	return results, nil
}

// recordBatch wraps the fan-out with the batch-level audit record, mirroring
// what the logging stage does for one item.
func (r *Registry) recordBatch(ctx context.Context, p *Pipeline, parentID string, items []map[string]any) []ItemResult {
	cfg := auditConfig{
		recorder:     r.recorder,
		metrics:      r.metrics,
		logger:       r.logger,
		excerptLimit: r.excerptLimit,
		redactParams: r.redactParams,
	}

	recordID, idErr := gonanoid.New()
	if idErr != nil {
		recordID = parentID
	}
	started := time.Now()

	cfg.safeRecord(ctx, "begin", func(ctx context.Context) error {
		return cfg.recorder.Begin(ctx, audit.Record{
			ID:            recordID,
			CorrelationID: parentID,
			ToolName:      p.desc.Name,
			StartedAt:     started,
			Status:        audit.StatusStarted,
			InputExcerpt:  cfg.excerpt(maskItems(items, cfg.redactParams)),
		})
	})

	results := p.batch.run(ctx, parentID, items)

	duration := time.Since(started)
	failed := 0
	for _, res := range results {
		if res.Error != nil {
			failed++
		}
	}

	status := audit.StatusSuccess
	if failed == len(results) && len(results) > 0 {
		status = audit.StatusError
	}

	cfg.safeRecord(ctx, "complete", func(ctx context.Context) error {
		return cfg.recorder.Complete(ctx, recordID, audit.Completion{
			CompletedAt:   started.Add(duration),
			DurationMS:    duration.Milliseconds(),
			Status:        status,
			OutputExcerpt: cfg.excerpt(RenderBatch(results)),
		})
	})

	cfg.metrics.RecordBatch(p.desc.Name, status)

	r.logger.Debug().
		Str("tool", p.desc.Name).
		Str("correlation_id", parentID).
		Int("items", len(results)).
		Int("failed", failed).
		Dur("duration", duration).
		Msg("Batch invocation completed")

	return results
}

func maskItems(items []map[string]any, names []string) []map[string]any {
	if len(names) == 0 {
		return items
	}
	masked := make([]map[string]any, len(items))
	for i, item := range items {
		masked[i] = logger.MaskParams(item, names)
	}
	return masked
}
