package grouploader

import (
	"context"
	"fmt"
	"strings"
	"sync"

	opentracing "github.com/opentracing/opentracing-go"
)

// Observer is an interface that may be used to observe runs and their backend
// round trips, for tracing or for counting round trips in tests.
type Observer interface {
	// Run handles observation for a whole Run call
	Run(context.Context) (context.Context, RunFinishFunc)
	// Batch handles observation for one backend round trip. It is invoked once
	// per (source, descriptor) pair with pending keys, before the source's
	// BatchFetch.
	Batch(ctx context.Context, sourceID string, descriptor Descriptor, keys Keys) (context.Context, BatchFinishFunc)
}

type (
	// RunFinishFunc finishes the observation for a Run call
	RunFinishFunc func()
	// BatchFinishFunc finishes the observation for one batch fetch
	BatchFinishFunc func(ResultMap, error)
)

// ======================================= no-op observer implementation ======================================

// NewNoOpObserver returns an instance of a blank observer with no action
func NewNoOpObserver() Observer {
	return &noOpObserver{}
}

type noOpObserver struct{}

func (*noOpObserver) Run(ctx context.Context) (context.Context, RunFinishFunc) {
	return ctx, func() {}
}

func (*noOpObserver) Batch(ctx context.Context, _ string, _ Descriptor, _ Keys) (context.Context, BatchFinishFunc) {
	return ctx, func(ResultMap, error) {}
}

// ====================================== counting observer implementation ====================================

// CountingObserver counts backend round trips per source. It backs the dedup
// and idempotency guarantees in tests without threading test-only identifiers
// through the fetch path.
type CountingObserver struct {
	m         sync.Mutex
	total     int
	perSource map[string]int
}

// NewCountingObserver returns an observer which counts batch fetches
func NewCountingObserver() *CountingObserver {
	return &CountingObserver{perSource: make(map[string]int)}
}

func (c *CountingObserver) Run(ctx context.Context) (context.Context, RunFinishFunc) {
	return ctx, func() {}
}

func (c *CountingObserver) Batch(ctx context.Context, sourceID string, _ Descriptor, _ Keys) (context.Context, BatchFinishFunc) {
	c.m.Lock()
	c.total++
	c.perSource[sourceID]++
	c.m.Unlock()

	return ctx, func(ResultMap, error) {}
}

// RoundTrips returns the total number of batch fetches issued so far
func (c *CountingObserver) RoundTrips() int {
	c.m.Lock()
	defer c.m.Unlock()

	return c.total
}

// RoundTripsFor returns the number of batch fetches issued against one source
func (c *CountingObserver) RoundTripsFor(sourceID string) int {
	c.m.Lock()
	defer c.m.Unlock()

	return c.perSource[sourceID]
}

// ====================================== open tracing implementation =========================================

// NewOpenTracingObserver returns an instance of an observer conforming to the open tracing standard
func NewOpenTracingObserver() Observer {
	return &openTracingObserver{}
}

type openTracingObserver struct{}

func (*openTracingObserver) Run(ctx context.Context) (context.Context, RunFinishFunc) {
	span, spanCtx := opentracing.StartSpanFromContext(ctx, "Grouploader: run")

	return spanCtx, func() { span.Finish() }
}

func (*openTracingObserver) Batch(
	ctx context.Context,
	sourceID string,
	descriptor Descriptor,
	keys Keys,
) (context.Context, BatchFinishFunc) {
	span, spanCtx := opentracing.StartSpanFromContext(ctx, "Grouploader: batch")
	span.SetTag("grouploader.source", sourceID)
	span.SetTag("grouploader.kind", descriptor.Kind)

	ids := make([]string, 0, keys.Length())
	for _, k := range keys.Keys() {
		ids = append(ids, k.String())
	}
	span.SetTag("grouploader.keys", fmt.Sprintf("[%s]", strings.Join(ids, ", ")))

	return spanCtx, func(_ ResultMap, err error) {
		if err != nil {
			span.SetTag("error", true)
			span.SetTag("grouploader.error", err.Error())
		}
		span.Finish()
	}
}
