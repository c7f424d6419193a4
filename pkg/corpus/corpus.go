// Package corpus holds the pool of byte-string inputs the fuzzer mutates
// from, with thread-safe weighted sampling that favors seeds that have
// been picked less often relative to their score.
package corpus

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"github.com/w2807/fuzz/pkg/hostlog"
)

type entry struct {
	data  []byte
	score uint32
	picks uint64
}

// Corpus is a bounded, mutex-protected collection of seed entries.
type Corpus struct {
	mu      sync.Mutex
	items   []entry
	maxSize int
	cap     int
}

// New creates an empty corpus. maxSize bounds each entry's data length;
// cap bounds the number of entries (0 means use the default of 10000).
func New(maxSize, cap int) *Corpus {
	if cap <= 0 {
		cap = 10000
	}
	return &Corpus{maxSize: maxSize, cap: cap}
}

// LoadDir reads every regular file under dir as a seed, skipping empty
// files and truncating oversized ones to maxSize. If the directory yields
// no seeds at all, the literal seed "seed" is injected so the corpus is
// never empty. Returns true iff the corpus ends up non-empty.
func (c *Corpus) LoadDir(dir string) bool {
	var loaded, skipped int
	entries, _ := os.ReadDir(dir)
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, de.Name()))
		if err != nil || len(data) == 0 {
			skipped++
			continue
		}
		c.Add(data, 1)
		loaded++
	}
	hostlog.Logf(1, "loaded seeds: %d skipped: %d", loaded, skipped)
	if c.Size() == 0 {
		c.Add([]byte("seed"), 1)
	}
	return c.Size() > 0
}

// Add appends a new entry, truncating data to maxSize and coercing a zero
// score to 1. Silently drops the entry once the corpus is at capacity.
func (c *Corpus) Add(data []byte, score uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) >= c.cap {
		return
	}
	if score == 0 {
		score = 1
	}
	if c.maxSize > 0 && len(data) > c.maxSize {
		data = data[:c.maxSize]
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.items = append(c.items, entry{data: cp, score: score})
}

// Pick performs a weighted random selection: weight(e) =
// max(1, score/(1+picks/8)). The chosen entry's pick count is incremented
// before its data is returned (as a copy, so callers may mutate freely).
// Returns nil if the corpus is empty.
func (c *Corpus) Pick(r *rand.Rand) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return nil
	}

	weights := make([]float64, len(c.items))
	var total float64
	for i, e := range c.items {
		decay := 1.0 + float64(e.picks)/8.0
		w := float64(e.score) / decay
		if w < 1.0 {
			w = 1.0
		}
		weights[i] = w
		total += w
	}

	cut := r.Float64() * total
	for i, w := range weights {
		if cut <= w {
			c.items[i].picks++
			out := make([]byte, len(c.items[i].data))
			copy(out, c.items[i].data)
			return out
		}
		cut -= w
	}
	last := len(c.items) - 1
	c.items[last].picks++
	out := make([]byte, len(c.items[last].data))
	copy(out, c.items[last].data)
	return out
}

// Size returns the current entry count.
func (c *Corpus) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// String renders a brief summary, handy for startup/progress logging.
func (c *Corpus) String() string {
	return fmt.Sprintf("corpus(size=%d, cap=%d)", c.Size(), c.cap)
}
