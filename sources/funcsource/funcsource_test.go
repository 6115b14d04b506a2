package funcsource_test

import (
	"context"
	"errors"
	"testing"

	"github.com/andy9775/grouploader"
	"github.com/andy9775/grouploader/sources/funcsource"
	"github.com/stretchr/testify/assert"
)

// ================================================== tests ==================================================

// TestBatchFetchDelegates ensures the source hands the descriptor and keys to the
// batch function untouched and returns its result map.
func TestBatchFetchDelegates(t *testing.T) {
	// setup
	callCount := 0
	batch := func(ctx context.Context, d grouploader.Descriptor, keys grouploader.Keys) (grouploader.ResultMap, error) {
		callCount++
		assert.Equal(t, "user_posts", d.Kind, "Expected the descriptor to pass through")
		assert.Equal(t, 2, len(keys.Keys()), "Expected the keys to pass through")

		m := grouploader.NewResultMap(keys.Length())
		m.Set("1", grouploader.Result{Rows: []grouploader.Row{{"id": 1}}})
		return m, nil
	}
	source := funcsource.New(batch)

	// invoke
	results, err := source.BatchFetch(
		context.Background(),
		grouploader.Descriptor{Kind: "user_posts"},
		grouploader.NewKeysWith(grouploader.IntKey(1), grouploader.IntKey(2)),
	)

	// assert
	assert.NoError(t, err, "Expected the batch to succeed")
	assert.Equal(t, 1, callCount, "Expected a single call to the batch function")

	result, ok := results.GetValue(grouploader.IntKey(1))
	assert.True(t, ok, "Expected the batch function's entry")
	assert.Equal(t, 1, result.Rows[0]["id"], "Expected the batch function's rows")
}

// TestBatchFetchSurfacesErrors ensures batch function errors surface unwrapped.
func TestBatchFetchSurfacesErrors(t *testing.T) {
	// setup
	expected := errors.New("backend down")
	source := funcsource.New(func(context.Context, grouploader.Descriptor, grouploader.Keys) (grouploader.ResultMap, error) {
		return nil, expected
	})

	// invoke
	_, err := source.BatchFetch(
		context.Background(),
		grouploader.Descriptor{Kind: "user_posts"},
		grouploader.NewKeysWith(grouploader.IntKey(1)),
	)

	// assert
	assert.ErrorIs(t, err, expected, "Expected the batch function's error")
}
