package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/towerstats/analyzer-cli/internal/quantity"
)

func TestDefault_EveryKeyResolves(t *testing.T) {
	reg := Default()
	require.NotZero(t, reg.Len())
	for _, key := range reg.Keys() {
		d, err := reg.DefinitionOf(key)
		require.NoError(t, err, key)
		assert.Equal(t, key, d.Key)
		assert.NotEmpty(t, d.Category, key)
		assert.NotEmpty(t, d.GroupDims, key)
	}
}

func TestDefinitionOf_NotFound(t *testing.T) {
	_, err := Default().DefinitionOf("no_such_metric")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "no_such_metric", nf.Key)
	assert.False(t, Default().Has("no_such_metric"))
}

func TestNew_DuplicateKeyRejected(t *testing.T) {
	_, err := New([]Definition{
		{Key: "a", Unit: quantity.UnitCount, Category: CategoryUtility, GroupDims: []GroupDim{GroupByTime}},
		{Key: "a", Unit: quantity.UnitCount, Category: CategoryUtility, GroupDims: []GroupDim{GroupByTime}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNew_EmptyKeyRejected(t *testing.T) {
	_, err := New([]Definition{{Key: ""}})
	require.Error(t, err)
}

func TestMustNew_PanicsOnBadTable(t *testing.T) {
	assert.Panics(t, func() {
		MustNew([]Definition{{Key: "a"}, {Key: "a"}})
	})
}

func TestSupportsGrouping(t *testing.T) {
	d, err := Default().DefinitionOf("coins_earned")
	require.NoError(t, err)
	assert.True(t, d.SupportsGrouping(GroupByTier))
	assert.False(t, d.SupportsGrouping(GroupByEntity))

	d, err = Default().DefinitionOf("uptime_percent")
	require.NoError(t, err)
	assert.True(t, d.SupportsGrouping(GroupByEntity))
}

func TestNewSeries_TypedEmpty(t *testing.T) {
	s := NewSeries("coins_earned", SeriesContext{Tier: "10"})
	assert.NotNil(t, s.Points)
	assert.Empty(t, s.Points)
	assert.Equal(t, "10", s.Context.Tier)
}
