package grouploader_test

import (
	"testing"

	"github.com/andy9775/grouploader"
	"github.com/stretchr/testify/assert"
)

// ================================================== tests ==================================================

// TestDescriptorIdentityStable ensures two descriptors built independently with the
// same kind and options share an identity and are eligible to merge.
func TestDescriptorIdentityStable(t *testing.T) {
	// setup
	a := grouploader.Descriptor{
		Kind:        "user_posts",
		Cardinality: grouploader.OneToMany,
		Options: grouploader.Options{
			Limit:   grouploader.LimitTo(2),
			OrderBy: []grouploader.Order{{Column: "title"}},
			Filters: map[string]interface{}{"published": 1, "author": "ann"},
		},
	}
	b := grouploader.Descriptor{
		Kind:        "user_posts",
		Cardinality: grouploader.OneToMany,
		Options: grouploader.Options{
			Limit:   grouploader.LimitTo(2),
			OrderBy: []grouploader.Order{{Column: "title"}},
			Filters: map[string]interface{}{"author": "ann", "published": 1},
		},
	}

	// invoke/assert
	assert.Equal(t, a.ID(), b.ID(), "Expected equal descriptors to share an identity")
}

// TestDescriptorIdentityDiffers ensures descriptors with differing options never
// share an identity, even against the same kind.
func TestDescriptorIdentityDiffers(t *testing.T) {
	// setup
	base := grouploader.Descriptor{Kind: "user_posts", Cardinality: grouploader.OneToMany}

	limited := base
	limited.Options.Limit = grouploader.LimitTo(1)

	ordered := base
	ordered.Options.OrderBy = []grouploader.Order{{Column: "title", Desc: true}}

	other := base
	other.Kind = "user_likes"

	// invoke/assert
	assert.NotEqual(t, base.ID(), limited.ID(), "Expected a limit to change the identity")
	assert.NotEqual(t, base.ID(), ordered.ID(), "Expected an order-by to change the identity")
	assert.NotEqual(t, base.ID(), other.ID(), "Expected the kind to change the identity")
	assert.NotEqual(t, limited.ID(), ordered.ID(), "Expected differing options to differ")
}

// TestDescriptorLimit checks the limit accessor for set, zero and absent limits.
func TestDescriptorLimit(t *testing.T) {
	// setup
	unlimited := grouploader.Descriptor{Kind: "user_posts"}
	capped := grouploader.Descriptor{Kind: "user_posts", Options: grouploader.Options{Limit: grouploader.LimitTo(3)}}
	zero := grouploader.Descriptor{Kind: "user_posts", Options: grouploader.Options{Limit: grouploader.LimitTo(0)}}

	// invoke/assert
	_, ok := unlimited.Limit()
	assert.False(t, ok, "Expected no limit")

	limit, ok := capped.Limit()
	assert.True(t, ok, "Expected a limit")
	assert.Equal(t, 3, limit, "Expected the set limit")

	limit, ok = zero.Limit()
	assert.True(t, ok, "Expected a zero limit to be set")
	assert.Equal(t, 0, limit, "Expected the zero limit")
}
