/*
Package grouploader implements a request batching and caching engine for the
N+1 query problem.

Callers accumulate load requests against registered sources without triggering
any I/O, then resolve everything with a single Run: the engine partitions the
pending requests by (source, descriptor) and issues exactly one backend round
trip per partition, concurrently. Results are read back with Get.

Every mutating operation returns a new Loader value which the caller threads
explicitly. A Loader value itself must not be mutated from multiple goroutines;
derived values are independent.
*/
package grouploader

import (
	"context"
	"errors"

	"github.com/go-log/log"
	"golang.org/x/sync/errgroup"
)

// Loader is the identifying handle for one loader state: the registered
// sources plus the request ledger. Load, LoadMany and Run return derived
// Loader values; the receiver is never visibly mutated.
type Loader struct {
	sources     map[string]Source
	concurrency int
	logger      log.Logger
	observer    Observer

	ledger ledger
}

// Option accepts the loader configuration and sets an option on it.
type Option func(*Loader)

// WithSource registers a source under the provided id. Registration happens at
// construction only; there is no process-wide registry.
func WithSource(sourceID string, source Source) Option {
	return func(l *Loader) {
		l.sources[sourceID] = source
	}
}

// WithConcurrency bounds how many batch fetches Run executes at once. Use it to
// keep a run from exhausting the backend connection pool.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLogger adds a logger to the loader. Default is a no op logger.
func WithLogger(logger log.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithObserver adds a run/batch observer to the loader. Default is a no op
// observer.
func WithObserver(observer Observer) Option {
	return func(l *Loader) {
		l.observer = observer
	}
}

// New returns an empty loader state with the provided configuration.
func New(opts ...Option) *Loader {
	l := &Loader{
		sources:     make(map[string]Source),
		concurrency: defaultConcurrency,
		logger:      log.DefaultLogger,
		observer:    NewNoOpObserver(),
		ledger:      make(ledger),
	}

	for _, apply := range opts {
		apply(l)
	}

	return l
}

const defaultConcurrency = 8

// Load records a request for the key under the source and descriptor and
// returns the derived loader state. Load never touches the backend. Loading a
// key that is already pending or cached for the descriptor is a no-op.
func (l *Loader) Load(sourceID string, descriptor Descriptor, key Key) *Loader {
	return l.LoadMany(sourceID, descriptor, key)
}

// LoadMany records a request for each key under the source and descriptor,
// equivalent to folding Load over the keys. Keys already pending or cached are
// skipped so they are never fetched twice.
func (l *Loader) LoadMany(sourceID string, descriptor Descriptor, keyArr ...Key) *Loader {
	id := descriptor.ID()

	existing := l.batchFor(sourceID, id)

	add := make([]Key, 0, len(keyArr))
	for _, key := range keyArr {
		if key == nil {
			continue
		}
		if existing != nil && existing.tracked(key.String()) {
			continue
		}
		add = append(add, key)
	}
	if len(add) == 0 {
		return l
	}

	next := l.derive()

	b := existing
	if b == nil {
		b = newBatch(descriptor)
	} else {
		b = b.clone()
	}
	for _, key := range add {
		b.pending[key.String()] = key
	}

	if next.ledger[sourceID] == nil {
		next.ledger[sourceID] = make(sourceLedger, 1)
	}
	next.ledger[sourceID][id] = b

	return next
}

// Run resolves every pending request and returns the derived loader state.
// One batch fetch is issued per (source, descriptor) pair holding pending
// keys; all pending keys for a descriptor go into that single fetch. Fetches
// for distinct pairs execute concurrently, bounded by WithConcurrency.
//
// A failed fetch attaches its error to every key in that descriptor's pending
// set and caches no rows for them; sibling batches proceed independently and
// their successes are committed. Calling Run again without intervening loads
// is a no-op and issues no round trips.
func (l *Loader) Run(ctx context.Context) *Loader {
	type job struct {
		sourceID string
		source   Source
		b        *batch
	}

	// pending keys for unregistered sources never resolve; Get reports
	// ErrSourceNotFound for them before consulting the ledger
	pending := 0
	for sourceID, entries := range l.ledger {
		if _, ok := l.sources[sourceID]; !ok {
			continue
		}
		for _, b := range entries {
			pending += len(b.pending)
		}
	}
	if pending == 0 {
		return l
	}

	var jobs []job
	next := l.derive()
	for sourceID, entries := range next.ledger {
		source, ok := l.sources[sourceID]
		if !ok {
			continue
		}
		for id, b := range entries {
			if len(b.pending) == 0 {
				continue
			}
			// clone up front so the goroutine below owns the entry exclusively
			b = b.clone()
			entries[id] = b
			jobs = append(jobs, job{sourceID: sourceID, source: source, b: b})
		}
	}

	runCtx, finishRun := l.observer.Run(ctx)
	defer finishRun()

	group := new(errgroup.Group)
	group.SetLimit(l.concurrency)

	for _, j := range jobs {
		j := j
		group.Go(func() error {
			l.resolve(runCtx, j.sourceID, j.source, j.b)
			// batch failures stay inside their batch, never cancel siblings
			return nil
		})
	}
	_ = group.Wait()

	return next
}

// Get returns the cached result for the key, applying no transform beyond the
// descriptor's declared cardinality (via Result.One/All/Value). It fails with
// ErrSourceNotFound for an unregistered source, ErrNotLoaded when the key was
// never requested or is still pending, and the batch's own error when its
// fetch failed.
func (l *Loader) Get(sourceID string, descriptor Descriptor, key Key) (Result, error) {
	if _, ok := l.sources[sourceID]; !ok {
		return Result{}, ErrSourceNotFound
	}

	b := l.batchFor(sourceID, descriptor.ID())
	if b == nil {
		return Result{}, ErrNotLoaded
	}
	if _, pending := b.pending[key.String()]; pending {
		return Result{}, ErrNotLoaded
	}

	result, ok := b.cache[key.String()]
	if !ok {
		return Result{}, ErrNotLoaded
	}
	if result.Err != nil {
		return result, result.Err
	}
	return result, nil
}

// ============================================== private =============================================

// derive returns a child loader sharing configuration with copied ledger maps.
// Ledger entries are shared until cloned by the mutating operation.
func (l *Loader) derive() *Loader {
	return &Loader{
		sources:     l.sources,
		concurrency: l.concurrency,
		logger:      l.logger,
		observer:    l.observer,
		ledger:      l.ledger.clone(),
	}
}

func (l *Loader) batchFor(sourceID, descriptorID string) *batch {
	source, ok := l.ledger[sourceID]
	if !ok {
		return nil
	}
	return source[descriptorID]
}

// resolve issues the single batch fetch for one descriptor's pending set and
// commits the outcome into the (exclusively owned) ledger entry.
func (l *Loader) resolve(ctx context.Context, sourceID string, source Source, b *batch) {
	keys := b.pendingKeys()

	batchCtx, finish := l.observer.Batch(ctx, sourceID, b.descriptor, keys)
	results, err := source.BatchFetch(batchCtx, b.descriptor, keys)
	finish(results, err)

	if err != nil {
		err = wrapBatchError(sourceID, b.descriptor.Kind, err)
		l.logger.Logf("batch fetch for source %q kind %q failed with %d keys: %v",
			sourceID, b.descriptor.Kind, keys.Length(), err)

		for id := range b.pending {
			b.cache[id] = Result{Cardinality: b.descriptor.Cardinality, Err: err}
		}
		b.pending = make(map[string]Key)
		return
	}

	for id, key := range b.pending {
		result := Result{Rows: []Row{}}
		if results != nil {
			if r, ok := results.GetValue(key); ok {
				result = r
			}
		}
		if result.Rows == nil {
			// zero rows must cache as an empty list, not a missing entry
			result.Rows = []Row{}
		}
		result.Cardinality = b.descriptor.Cardinality
		b.cache[id] = result
	}
	b.pending = make(map[string]Key)
}

// wrapBatchError keeps source-classified errors as-is and wraps anything else
// as a FetchError.
func wrapBatchError(sourceID, kind string, err error) error {
	var invalid *InvalidQueryError
	var fetch *FetchError
	if errors.As(err, &invalid) || errors.As(err, &fetch) {
		return err
	}
	return &FetchError{SourceID: sourceID, Kind: kind, Err: err}
}
