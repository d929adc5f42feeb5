// Package perf records OpenTelemetry spans around the check pipeline so a run
// can be exported for inspection with --perf.
package perf

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/meza/coverage-gate"

var ErrPerfDisabled = errors.New("performance tracing is disabled")

type Config struct {
	Enabled bool
}

var (
	globalMu       sync.Mutex
	globalEnabled  bool
	globalExp      *memoryExporter
	globalProvider *sdktrace.TracerProvider
	globalTracer   trace.Tracer = noop.NewTracerProvider().Tracer(tracerName)
)

// Init replaces the active tracer. A disabled config installs a no-op tracer
// so StartSpan stays cheap for normal runs.
func Init(cfg Config) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	err := shutdownLocked()
	if !cfg.Enabled {
		return err
	}

	globalExp = newMemoryExporter(maxRecordedSpans)
	globalProvider = sdktrace.NewTracerProvider(sdktrace.WithSyncer(globalExp))
	globalTracer = globalProvider.Tracer(tracerName)
	globalEnabled = true
	return err
}

func Enabled() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalEnabled
}

func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	globalMu.Lock()
	tracer := globalTracer
	globalMu.Unlock()

	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func SnapshotSpans() ([]sdktrace.ReadOnlySpan, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if !globalEnabled || globalExp == nil {
		return nil, ErrPerfDisabled
	}
	return globalExp.Snapshot(), nil
}

// DroppedSpans reports how many spans did not fit in the in-memory buffer.
func DroppedSpans() int {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalExp == nil {
		return 0
	}
	return globalExp.Dropped()
}

// Reset drops recorded spans and returns to the no-op tracer (tests and re-init).
func Reset() {
	globalMu.Lock()
	defer globalMu.Unlock()
	_ = shutdownLocked()
}

func shutdownLocked() error {
	var err error
	if globalProvider != nil {
		err = globalProvider.Shutdown(context.Background())
	}
	globalProvider = nil
	globalExp = nil
	globalEnabled = false
	globalTracer = noop.NewTracerProvider().Tracer(tracerName)
	return err
}
