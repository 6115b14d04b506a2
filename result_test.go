package grouploader_test

import (
	"testing"

	"github.com/andy9775/grouploader"
	"github.com/stretchr/testify/assert"
)

// ================================================== tests ==================================================

// TestEnsureOKForResult tests getting the result value with a valid key expecting a valid value
func TestEnsureOKForResult(t *testing.T) {
	// setup
	rmap := grouploader.NewResultMap(2)
	key := grouploader.IntKey(1)
	value := grouploader.Result{Rows: []grouploader.Row{{"id": 1}}}
	rmap.Set(key.String(), value)

	// invoke/assert
	result, ok := rmap.GetValue(key)
	assert.True(t, ok, "Expected valid result to have been found")
	assert.Equal(t, value, result, "Expected result")
}

// TestEnsureNotOKForResult tests getting a result for a key that was never set
func TestEnsureNotOKForResult(t *testing.T) {
	// setup
	rmap := grouploader.NewResultMap(2)
	rmap.Set(grouploader.IntKey(1).String(), grouploader.Result{Rows: []grouploader.Row{{"id": 1}}})

	// invoke/assert
	result, ok := rmap.GetValue(grouploader.IntKey(2))
	assert.False(t, ok, "Expected no result to have been found")
	assert.Nil(t, result.Rows, "Expected no rows")
}

// TestResultCardinality checks the one and many accessors for populated and
// empty results.
func TestResultCardinality(t *testing.T) {
	// setup
	many := grouploader.Result{
		Rows:        []grouploader.Row{{"id": 1}, {"id": 2}},
		Cardinality: grouploader.OneToMany,
	}
	one := grouploader.Result{
		Rows:        []grouploader.Row{{"id": 1}},
		Cardinality: grouploader.OneToOne,
	}
	empty := grouploader.Result{Cardinality: grouploader.OneToOne}

	// invoke/assert
	assert.Equal(t, 2, len(many.All()), "Expected the full row list")
	assert.Equal(t, 1, many.One()["id"], "Expected the first row")
	assert.Equal(t, 2, len(many.Value().([]grouploader.Row)), "Expected Value to keep the list")

	assert.Equal(t, 1, one.One()["id"], "Expected the single row")
	assert.Equal(t, 1, one.Value().(grouploader.Row)["id"], "Expected Value to collapse to the row")

	assert.Nil(t, empty.One(), "Expected nil for an empty one-to-one result")
	assert.NotNil(t, empty.All(), "Expected an empty list, not nil")
	assert.Equal(t, 0, len(empty.All()), "Expected no rows")
}
