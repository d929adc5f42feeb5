package perf

import (
	"context"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// maxRecordedSpans bounds memory for runs that record far more spans than a
// single check produces.
const maxRecordedSpans = 4096

// memoryExporter collects finished spans until the run exports them to disk.
type memoryExporter struct {
	mu      sync.Mutex
	spans   []sdktrace.ReadOnlySpan
	limit   int
	dropped int
}

func newMemoryExporter(limit int) *memoryExporter {
	return &memoryExporter{limit: limit}
}

func (exporter *memoryExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	exporter.mu.Lock()
	defer exporter.mu.Unlock()

	room := exporter.limit - len(exporter.spans)
	if room < 0 {
		room = 0
	}
	if len(spans) > room {
		exporter.dropped += len(spans) - room
		spans = spans[:room]
	}
	exporter.spans = append(exporter.spans, spans...)
	return nil
}

func (exporter *memoryExporter) Shutdown(context.Context) error {
	return nil
}

func (exporter *memoryExporter) Snapshot() []sdktrace.ReadOnlySpan {
	exporter.mu.Lock()
	defer exporter.mu.Unlock()

	out := make([]sdktrace.ReadOnlySpan, len(exporter.spans))
	copy(out, exporter.spans)
	return out
}

func (exporter *memoryExporter) Dropped() int {
	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	return exporter.dropped
}

// Reset discards recorded spans and the dropped count.
func (exporter *memoryExporter) Reset() {
	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	exporter.spans = nil
	exporter.dropped = 0
}
