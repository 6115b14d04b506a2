package grouploader_test

import (
	"testing"

	"github.com/andy9775/grouploader"
	"github.com/stretchr/testify/assert"
)

// ================================================== tests ==================================================

// TestKeysDeduplicate ensures duplicate keys collapse to one entry keeping the
// first occurrence.
func TestKeysDeduplicate(t *testing.T) {
	// setup
	keys := grouploader.NewKeys(4)
	keys.Append(grouploader.IntKey(1), grouploader.IntKey(2), grouploader.IntKey(1), grouploader.IntKey(2))

	// invoke/assert
	assert.Equal(t, 4, keys.Length(), "Expected every appended key to be tracked")
	assert.Equal(t, 2, len(keys.Keys()), "Expected duplicates to be dropped")
	assert.Equal(t, []interface{}{1, 2}, keys.Raws(), "Expected unique raw values in first-seen order")
}

// TestKeysIgnoreNil ensures nil keys are never tracked.
func TestKeysIgnoreNil(t *testing.T) {
	// setup
	keys := grouploader.NewKeys(2)
	keys.Append(nil, grouploader.StringKey("a"))

	// invoke/assert
	assert.Equal(t, 1, keys.Length(), "Expected the nil key to be dropped")
	assert.False(t, keys.IsEmpty(), "Expected the valid key to be tracked")
}

// TestKeyTypes checks the provided key implementations.
func TestKeyTypes(t *testing.T) {
	// invoke/assert
	assert.Equal(t, "7", grouploader.IntKey(7).String(), "Expected the decimal form")
	assert.Equal(t, 7, grouploader.IntKey(7).Raw(), "Expected the raw int")
	assert.Equal(t, "abc", grouploader.StringKey("abc").String(), "Expected the string form")
	assert.Equal(t, "abc", grouploader.StringKey("abc").Raw(), "Expected the raw string")
}
