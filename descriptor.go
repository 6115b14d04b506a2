package grouploader

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Cardinality declares the shape of a descriptor's per-key result.
type Cardinality int

const (
	// OneToMany results carry the full ordered row list for each key
	OneToMany Cardinality = iota
	// OneToOne results collapse to a single row (or nil) for each key
	OneToOne
)

func (c Cardinality) String() string {
	if c == OneToOne {
		return "one"
	}
	return "many"
}

// Order is a single order-by term applied within each grouping-column partition.
type Order struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

// Options carries the fetch options a descriptor batches under. Two requests
// merge into one backend round trip only when every option matches.
type Options struct {
	// Limit caps the number of rows returned per key, not globally across the
	// batch. nil means unlimited, zero is legal and yields empty results.
	Limit *int `json:"limit,omitempty"`
	// OrderBy orders rows within each key's partition and decides which rows
	// survive the limit
	OrderBy []Order `json:"order_by,omitempty"`
	// Filters are equality predicates on the target relation's columns
	Filters map[string]interface{} `json:"filters,omitempty"`
}

// Descriptor identifies how to fetch: which association or relation (Kind), the
// declared result shape, and the fetch options. Requests sharing an equal
// descriptor are always merged into one backend call; requests with differing
// descriptors never are, even against the same relation, since their
// limit/order/filter semantics differ.
type Descriptor struct {
	Kind        string      `json:"kind"`
	Cardinality Cardinality `json:"cardinality"`
	Options     Options     `json:"options"`
}

// Limit returns the per-key row limit and whether one is set.
func (d Descriptor) Limit() (int, bool) {
	if d.Options.Limit == nil {
		return 0, false
	}
	return *d.Options.Limit, true
}

// ID returns the canonical identity for the descriptor used to partition
// pending requests. JSON encoding keeps it deterministic: struct fields encode
// in declaration order and map keys are sorted.
func (d Descriptor) ID() string {
	b, err := json.Marshal(d)
	if err != nil {
		// Options hold scalar filter values in practice. A non-encodable value
		// still needs a stable identity, fall back to the verbose formatter.
		return fmt.Sprintf("%#v", d)
	}
	return string(b)
}

// LimitTo is a helper for building Options literals with a set limit.
func LimitTo(n int) *int { return &n }
