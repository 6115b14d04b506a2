package grouploader

// batch is the ledger entry for one descriptor within a source: the set of keys
// awaiting a run plus the cache of already fetched results. Successfully
// fetched entries are never evicted or overwritten between runs; a failed
// entry holds only the batch error and is replaced when the caller re-loads
// the key and runs again.
type batch struct {
	descriptor Descriptor
	pending    map[string]Key
	cache      map[string]Result
}

func newBatch(descriptor Descriptor) *batch {
	return &batch{
		descriptor: descriptor,
		pending:    make(map[string]Key),
		cache:      make(map[string]Result),
	}
}

// tracked reports whether the key is already pending or successfully cached.
// Loading a tracked key is a no-op, which is what guarantees a key is fetched
// at most once per loader lineage. A cache entry carrying a batch error does
// not count: the key may be loaded again so a later run retries the fetch.
func (b *batch) tracked(id string) bool {
	if _, ok := b.pending[id]; ok {
		return true
	}
	result, ok := b.cache[id]
	return ok && result.Err == nil
}

// clone copies the ledger entry so a derived loader can mutate it without the
// parent observing the change.
func (b *batch) clone() *batch {
	next := &batch{
		descriptor: b.descriptor,
		pending:    make(map[string]Key, len(b.pending)),
		cache:      make(map[string]Result, len(b.cache)),
	}
	for id, key := range b.pending {
		next.pending[id] = key
	}
	for id, result := range b.cache {
		next.cache[id] = result
	}
	return next
}

// pendingKeys snapshots the pending set as a Keys collection for a batch fetch.
func (b *batch) pendingKeys() Keys {
	keys := NewKeys(len(b.pending))
	for _, key := range b.pending {
		keys.Append(key)
	}
	return keys
}

// sourceLedger maps descriptor identities to their ledger entries for one source.
type sourceLedger map[string]*batch

func (s sourceLedger) clone() sourceLedger {
	next := make(sourceLedger, len(s))
	for id, b := range s {
		next[id] = b
	}
	return next
}

// ledger is the full request ledger: per-source descriptor batches.
type ledger map[string]sourceLedger

func (l ledger) clone() ledger {
	next := make(ledger, len(l))
	for sourceID, s := range l {
		next[sourceID] = s.clone()
	}
	return next
}
