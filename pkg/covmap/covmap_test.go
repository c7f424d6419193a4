package covmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEdgeLifecycle(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	require.False(t, c.HasNewEdge())

	c.hits[10] = 1
	c.hits[20] = 3
	require.True(t, c.HasNewEdge())

	var edges []int
	n := c.CollectNewEdges(&edges)
	require.Equal(t, 2, n)
	require.ElementsMatch(t, []int{10, 20}, edges)

	c.Merge()
	require.False(t, c.HasNewEdge())

	c.Reset()
	require.Equal(t, byte(0), c.hits[10])
	require.False(t, c.HasNewEdge())

	// Re-hitting an already-merged edge is not "new" anymore.
	c.hits[10] = 5
	require.False(t, c.HasNewEdge())
}

func TestDistinctWorkersGetDistinctNames(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	defer a.Close()
	b, err := New()
	require.NoError(t, err)
	defer b.Close()
	require.NotEqual(t, a.ShmName(), b.ShmName())
}
