package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
target: "./target @@"
iterations: 500
threads: 4
allowed_exits: [2, 3]
`), 0644))

	f, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "./target @@", f.Target)
	require.Equal(t, 500, f.Iterations)
	require.Equal(t, 4, f.Threads)
	require.Equal(t, []int{2, 3}, f.AllowedExits)
}

func TestMergeStringPrefersFlag(t *testing.T) {
	require.Equal(t, "flag", MergeString("flag", "file"))
	require.Equal(t, "file", MergeString("", "file"))
}

func TestMergeIntPrefersNonDefaultFlag(t *testing.T) {
	require.Equal(t, 7, MergeInt(7, 3, 1))
	require.Equal(t, 3, MergeInt(1, 3, 1))
	require.Equal(t, 1, MergeInt(1, 0, 1))
}
