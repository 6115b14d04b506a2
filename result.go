package grouploader

// Row is a single fetched record, keyed by column name.
type Row map[string]interface{}

// Result holds the rows resolved for a single key by a batch fetch, or the
// error the whole batch failed with. Row order follows the descriptor's
// order-by.
type Result struct {
	Rows        []Row
	Cardinality Cardinality
	Err         error
}

// One collapses the result to its first row, or nil when the key matched no
// rows. Used for belongs-to style descriptors.
func (r Result) One() Row {
	if len(r.Rows) == 0 {
		return nil
	}
	return r.Rows[0]
}

// All returns the full ordered row list. Never nil for a successfully fetched
// key, a key with no matching rows yields an empty list.
func (r Result) All() []Row {
	if r.Rows == nil {
		return []Row{}
	}
	return r.Rows
}

// Value applies the declared cardinality transform: a single Row (or nil) for
// one-to-one descriptors, the ordered []Row for one-to-many.
func (r Result) Value() interface{} {
	if r.Cardinality == OneToOne {
		return r.One()
	}
	return r.All()
}

// ResultMap maps each requested key's Result against the key's unique identifier
type ResultMap interface {
	Set(string, Result)
	GetValue(Key) (Result, bool)
	// Keys returns the identifiers of every key present in the map
	Keys() []string
	Length() int
}

type resultMap struct {
	r map[string]Result
}

// NewResultMap returns a new instance of the result map with the provided capacity.
func NewResultMap(capacity int) ResultMap {
	return &resultMap{r: make(map[string]Result, capacity)}
}

// Set adds the value to the result set.
func (r *resultMap) Set(identifier string, value Result) {
	r.r[identifier] = value
}

// GetValue returns the value from the results for the provided key.
func (r *resultMap) GetValue(key Key) (Result, bool) {
	result, ok := r.r[key.String()]
	return result, ok
}

func (r *resultMap) Keys() []string {
	result := make([]string, 0, len(r.r))
	for k := range r.r {
		result = append(result, k)
	}
	return result
}

func (r *resultMap) Length() int {
	return len(r.r)
}
