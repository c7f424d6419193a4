// Package covmap implements the host side of the edge-coverage channel:
// a fixed-size shared-memory region, written by an instrumented target's
// runtime (see runtime/cov_runtime.c) and read by the fuzzer
// after each execution.
package covmap

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/w2807/fuzz/pkg/osutil"
)

// Size is the coverage map length in bytes, L in the design notes.
// Must match runtime/cov_runtime.h's kCovMapSize.
const Size = 1 << 17

var shmCounter int64

// Coverage owns one shared-memory edge-hit map plus the cumulative
// total-coverage bitmap of everything ever seen through it. Not safe for
// concurrent use by multiple goroutines; callers give each worker its own
// Coverage.
type Coverage struct {
	name  string
	f     *os.File
	hits  []byte // per-execution hit counts, zeroed by Reset
	total []byte // union of edges ever seen, only grown by Merge
}

// New creates a new named shared-memory coverage map. The name is derived
// from the process id and a monotonic counter so that multiple workers in
// the same process never collide.
func New() (*Coverage, error) {
	n := atomic.AddInt64(&shmCounter, 1)
	name := fmt.Sprintf("/fuzz_%d_%d", os.Getpid(), n)
	// osutil takes the bare object name, without the leading slash.
	f, mem, err := osutil.CreateNamedMemMappedFile(name[1:], Size)
	if err != nil {
		return nil, fmt.Errorf("covmap: setup %v: %w", name, err)
	}
	return &Coverage{
		name:  name,
		f:     f,
		hits:  mem,
		total: make([]byte, Size),
	}, nil
}

// ShmName returns the shared-memory object name, to be passed to the
// target process via the __FUZZ_SHARE environment variable.
func (c *Coverage) ShmName() string {
	return c.name
}

// Reset zeroes the per-execution hit map. Call before every execution.
func (c *Coverage) Reset() {
	for i := range c.hits {
		c.hits[i] = 0
	}
}

// HasNewEdge reports whether any index is non-zero in hits but zero in the
// cumulative total map.
func (c *Coverage) HasNewEdge() bool {
	for i, v := range c.hits {
		if v != 0 && c.total[i] == 0 {
			return true
		}
	}
	return false
}

// CollectNewEdges appends every index satisfying HasNewEdge's condition to
// out and returns the number appended.
func (c *Coverage) CollectNewEdges(out *[]int) int {
	n := 0
	for i, v := range c.hits {
		if v != 0 && c.total[i] == 0 {
			*out = append(*out, i)
			n++
		}
	}
	return n
}

// Merge folds the current hit map into the cumulative total map.
func (c *Coverage) Merge() {
	for i, v := range c.hits {
		if v != 0 {
			c.total[i] = 1
		}
	}
}

// Close unmaps and unlinks the shared-memory region.
func (c *Coverage) Close() error {
	return osutil.CloseNamedMemMappedFile(c.f, c.hits, true)
}
