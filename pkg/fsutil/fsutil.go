// Package fsutil collects small OS-facing primitives shared by the
// executor, the orchestrator, and crash persistence: timestamps, temp
// files, and process seed derivation.
package fsutil

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

// NowISO8601 renders the current local time with millisecond precision,
// e.g. "2026-07-31T08:15:23.456".
func NowISO8601() string {
	return time.Now().Format("2006-01-02T15:04:05.000")
}

// SeedFromOS derives a 64-bit seed from OS entropy XORed with the
// wall-clock time in nanoseconds (not a monotonic clock reading), for use
// when the user does not pin --seed.
func SeedFromOS() uint64 {
	var buf [8]byte
	var seed uint64
	if _, err := rand.Read(buf[:]); err == nil {
		seed = binary.LittleEndian.Uint64(buf[:])
	}
	return seed ^ uint64(time.Now().UnixNano())
}

// WorkerSeed derives a per-worker seed from a global seed using the same
// golden-ratio/LCG mixing the original fuzzer used, so that distinct
// workers explore distinct mutation sequences deterministically.
func WorkerSeed(global uint64, worker int) uint64 {
	const golden = 0x9e3779b97f4a7c15
	const lcgMul = 0x5851f42d4c957f2d
	return global ^ (golden + uint64(worker)*lcgMul)
}

// TempFile creates a 0600 temp file under dir (os.TempDir() if empty) with
// the given prefix, writes data to it (retrying on short writes), and
// returns its path. The caller is responsible for removing it.
func TempFile(dir, prefix string, data []byte) (path string, err error) {
	f, err := os.CreateTemp(dir, prefix+"-*")
	if err != nil {
		return "", fmt.Errorf("fsutil: create temp file: %w", err)
	}
	defer f.Close()
	if err := f.Chmod(0600); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("fsutil: chmod temp file: %w", err)
	}
	if err := writeAll(f, data); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("fsutil: write temp file: %w", err)
	}
	return f.Name(), nil
}

func writeAll(f *os.File, data []byte) error {
	for len(data) > 0 {
		n, err := f.Write(data)
		if n > 0 {
			data = data[n:]
		}
		if err != nil {
			return err
		}
	}
	return nil
}
