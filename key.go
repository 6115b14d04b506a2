package grouploader

import (
	"strconv"
	"sync"
)

// Key is an interface each item key must implement in order to be tracked in the
// pending set and cached in the ResultMap
type Key interface {
	// String should return a guaranteed unique string that can be used to identify
	// the owner of the requested rows. It's purpose is to identify each record when
	// storing the results. Records which should be different but share the same key
	// will be overwritten.
	String() string

	// Raw should return real value of the key. The raw value is what gets bound
	// into the backend query as the grouping column value.
	Raw() interface{}
}

// StringKey implements the Key interface for string identifiers
type StringKey string

func (s StringKey) String() string { return string(s) }

func (s StringKey) Raw() interface{} { return string(s) }

// IntKey implements the Key interface for integer identifiers
type IntKey int

func (i IntKey) String() string { return strconv.Itoa(int(i)) }

func (i IntKey) Raw() interface{} { return int(i) }

// Keys wraps an array of keys and contains accessor methods
type Keys interface {
	Append(...Key)
	Length() int
	// Keys returns an array of unique keys. Duplicates (by String()) are dropped
	// keeping the first occurrence so a key never produces two grouping-column
	// predicates in one batch.
	Keys() []Key
	// Raws returns an array of unique raw key values, same order as Keys
	Raws() []interface{}
	IsEmpty() bool
}

type keys struct {
	k []Key
	m *sync.RWMutex
}

// NewKeys returns a new instance of the Keys array with the provided capacity.
func NewKeys(capacity int) Keys {
	return &keys{
		k: make([]Key, 0, capacity),
		m: &sync.RWMutex{},
	}
}

// NewKeysWith is a helper method for returning a new keys array which includes the
// the provided keys
func NewKeysWith(key ...Key) Keys {
	return &keys{
		k: key,
		m: &sync.RWMutex{},
	}
}

// ================================== public methods ==================================

func (k *keys) Append(keys ...Key) {
	k.m.Lock()
	defer k.m.Unlock()

	for _, key := range keys {
		if key != nil { // don't track nil keys
			k.k = append(k.k, key)
		}
	}
}

func (k *keys) Length() int {
	k.m.RLock()
	defer k.m.RUnlock()

	return len(k.k)
}

func (k *keys) Keys() []Key {
	k.m.RLock()
	defer k.m.RUnlock()

	result := make([]Key, 0, len(k.k))
	seen := make(map[string]bool, len(k.k))

	for _, val := range k.k {
		if !seen[val.String()] {
			seen[val.String()] = true
			result = append(result, val)
		}
	}

	return result
}

func (k *keys) Raws() []interface{} {
	unique := k.Keys()

	result := make([]interface{}, 0, len(unique))
	for _, val := range unique {
		result = append(result, val.Raw())
	}

	return result
}

func (k *keys) IsEmpty() bool {
	k.m.RLock()
	defer k.m.RUnlock()

	return len(k.k) == 0
}
