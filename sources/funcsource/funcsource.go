/*
Package funcsource contains a source backed by a caller supplied batch function.

It is the smallest possible source: the batch function receives the descriptor
and the deduplicated pending keys and answers with a result map in whatever way
it likes. Useful for non-relational backends and as a test double for the
engine's batching guarantees.
*/
package funcsource

import (
	"context"

	"github.com/go-log/log"

	"github.com/andy9775/grouploader"
)

// BatchFunction is called with the full set of pending keys for one descriptor
// and must resolve them in a single round trip.
type BatchFunction func(context.Context, grouploader.Descriptor, grouploader.Keys) (grouploader.ResultMap, error)

// Options contains the source configuration
type options struct {
	logger log.Logger
}

// Option accepts the source configuration and sets an option on it.
type Option func(*options)

// WithLogger adds a logger to the source. Default is a no op logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New returns a source which delegates every batch fetch to the provided
// batch function.
func New(batch BatchFunction, opts ...Option) grouploader.Source {
	o := options{logger: log.DefaultLogger}
	for _, apply := range opts {
		apply(&o)
	}

	return &funcSource{
		batchFunc: batch,
		options:   o,
	}
}

type funcSource struct {
	batchFunc BatchFunction

	options options
}

// BatchFetch resolves the keys by calling the configured batch function once.
func (s *funcSource) BatchFetch(
	ctx context.Context,
	descriptor grouploader.Descriptor,
	keys grouploader.Keys,
) (grouploader.ResultMap, error) {
	s.options.logger.Logf("fetching %d keys for kind %q", keys.Length(), descriptor.Kind)

	return s.batchFunc(ctx, descriptor, keys)
}
