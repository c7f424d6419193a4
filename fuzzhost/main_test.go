package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAllowedExits(t *testing.T) {
	m, err := parseAllowedExits("1, 2,3")
	require.NoError(t, err)
	require.Equal(t, map[int]bool{1: true, 2: true, 3: true}, m)

	m, err = parseAllowedExits("")
	require.NoError(t, err)
	require.Empty(t, m)

	_, err = parseAllowedExits("nope")
	require.Error(t, err)
}

func TestPreflightTargetPathQualified(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "prog")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, preflightTarget(exe))

	notExec := filepath.Join(dir, "data")
	require.NoError(t, os.WriteFile(notExec, []byte("x"), 0644))
	require.Error(t, preflightTarget(notExec))
}

func TestPreflightTargetViaPATH(t *testing.T) {
	require.NoError(t, preflightTarget("sh"))
	require.Error(t, preflightTarget("no-such-binary-xyz-123"))
}

func TestRunFailsWithMissingArgs(t *testing.T) {
	require.Equal(t, 1, run([]string{"--target", "true"}))
}

func TestRunEndToEnd(t *testing.T) {
	seeds := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(seeds, "s"), []byte("x"), 0644))
	out := t.TempDir()

	code := run([]string{
		"--target", "true",
		"--seeds", seeds,
		"--out", out,
		"--iterations", "5",
	})
	require.Equal(t, 0, code)
}
