package grouploader

import (
	"context"
)

// Source specifies the interface of backend fetch strategies. A source turns the
// full set of pending keys for one descriptor into a key to result mapping using
// exactly one backend round trip, regardless of how many keys are batched.
type Source interface {
	// BatchFetch resolves every provided key for the descriptor. The returned
	// map should contain an entry per key; keys the source omits are backfilled
	// by the engine with an empty result, so a key with zero matching rows is
	// indistinguishable from one the source answered explicitly.
	//
	// A returned error fails the whole batch: the engine attaches it to every
	// key and caches no rows for any of them. Errors from one descriptor's
	// batch never abort batches for other descriptors.
	BatchFetch(ctx context.Context, descriptor Descriptor, keys Keys) (ResultMap, error)
}
