package corpus

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDirEmptyFallsBackToSeedLiteral(t *testing.T) {
	dir := t.TempDir()
	c := New(4096, 0)
	require.True(t, c.LoadDir(dir))
	require.Equal(t, 1, c.Size())

	got := c.Pick(rand.New(rand.NewSource(1)))
	require.Equal(t, "seed", string(got))
}

func TestLoadDirSkipsEmptyTruncatesOversized(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big"), []byte("0123456789"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok"), []byte("hi"), 0644))

	c := New(4, 0)
	require.True(t, c.LoadDir(dir))
	require.Equal(t, 2, c.Size())
	// os.ReadDir sorts by name, so "big" is the first entry loaded.
	require.Equal(t, "0123", string(c.items[0].data))
}

func TestAddRespectsCapacity(t *testing.T) {
	c := New(1024, 2)
	c.Add([]byte("a"), 1)
	c.Add([]byte("b"), 1)
	c.Add([]byte("c"), 1) // dropped, at cap
	require.Equal(t, 2, c.Size())
}

func TestAddCoercesZeroScore(t *testing.T) {
	c := New(1024, 0)
	c.Add([]byte("x"), 0)
	require.Equal(t, uint32(1), c.items[0].score)
	r := rand.New(rand.NewSource(1))
	require.Equal(t, "x", string(c.Pick(r)))
}

func TestPickEmptyReturnsNil(t *testing.T) {
	c := New(1024, 0)
	require.Nil(t, c.Pick(rand.New(rand.NewSource(1))))
}

func TestPickIncrementsPicksMonotonically(t *testing.T) {
	c := New(1024, 0)
	c.Add([]byte("only"), 1)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		c.Pick(r)
	}
	require.Equal(t, uint64(10), c.items[0].picks)
}
