// Package mutator implements the byte-level mutation engine: eight
// mutation operators plus crossover, dictionary-assisted, bounded by a
// maximum input size.
package mutator

import (
	"bufio"
	"math/rand"
	"os"
	"strings"
)

// Dict is a set of byte-string tokens used by the dict-insert operator.
type Dict struct {
	Tokens [][]byte
}

// defaultDict is used when the caller supplied no dictionary (or an empty
// one): a handful of tokens likely to trip parsers and format strings.
var defaultDict = Dict{Tokens: [][]byte{
	[]byte("{}"),
	[]byte("[]"),
	[]byte("GET"),
	[]byte("SET"),
	[]byte("POST"),
	[]byte("%x%n"),
}}

// LoadDict reads one token per line from path; empty lines and lines
// starting with '#' are skipped. Returns an error only for I/O failures,
// never for an empty result (an empty dictionary is a valid, if useless,
// outcome).
func LoadDict(path string) (Dict, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dict{}, err
	}
	defer f.Close()
	var d Dict
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		d.Tokens = append(d.Tokens, []byte(line))
	}
	return d, sc.Err()
}

// Mutator applies bounded, seeded byte-level mutations to inputs.
type Mutator struct {
	rng     *rand.Rand
	maxSize int
	dict    Dict
}

// New builds a Mutator. A nil or empty dict falls back to defaultDict at
// use time inside dict-insert, per the spec's "built-in fallback" rule.
func New(seed uint64, maxSize int, dict Dict) *Mutator {
	return &Mutator{
		rng:     rand.New(rand.NewSource(int64(seed))),
		maxSize: maxSize,
		dict:    dict,
	}
}

type opFunc func(*Mutator, []byte) []byte

var ops = []opFunc{
	(*Mutator).flipBit,
	(*Mutator).insertBytes,
	(*Mutator).deleteBytes,
	(*Mutator).replaceBytes,
	(*Mutator).insertDict,
	(*Mutator).arith,
	(*Mutator).interesting,
	(*Mutator).fillRun,
}

// Mutate applies k in [1,4] successive operators chosen uniformly at
// random, then clamps the result to maxSize and guarantees a non-empty
// output.
func (m *Mutator) Mutate(in []byte) []byte {
	cur := append([]byte(nil), in...)
	k := m.rng.Intn(4) + 1
	for i := 0; i < k; i++ {
		cur = ops[m.rng.Intn(len(ops))](m, cur)
	}
	if m.maxSize > 0 && len(cur) > m.maxSize {
		cur = cur[:m.maxSize]
	}
	if len(cur) == 0 {
		cur = append(cur, byte(m.rng.Intn(256)))
	}
	return cur
}

// Crossover splices a and b at random cut points, clamps to maxSize, and
// guarantees a non-empty output for non-empty inputs.
func (m *Mutator) Crossover(a, b []byte) []byte {
	if len(a) == 0 {
		return append([]byte(nil), b...)
	}
	if len(b) == 0 {
		return append([]byte(nil), a...)
	}
	i := m.rng.Intn(len(a) + 1)
	j := m.rng.Intn(len(b) + 1)
	out := make([]byte, 0, i+len(b)-j)
	out = append(out, a[:i]...)
	out = append(out, b[j:]...)
	if m.maxSize > 0 && len(out) > m.maxSize {
		out = out[:m.maxSize]
	}
	if len(out) == 0 {
		out = append(out, byte(m.rng.Intn(256)))
	}
	return out
}

func (m *Mutator) randBytes(n int) []byte {
	r := make([]byte, n)
	for i := range r {
		r[i] = byte(m.rng.Intn(256))
	}
	return r
}

func (m *Mutator) flipBit(d []byte) []byte {
	if len(d) == 0 {
		return []byte{0}
	}
	out := append([]byte(nil), d...)
	idx := m.rng.Intn(len(out))
	bit := m.rng.Intn(8)
	out[idx] ^= 1 << uint(bit)
	return out
}

func (m *Mutator) insertBytes(d []byte) []byte {
	ins := m.rng.Intn(32) + 1
	r := m.randBytes(ins)
	pos := m.rng.Intn(len(d) + 1)
	out := make([]byte, 0, len(d)+len(r))
	out = append(out, d[:pos]...)
	out = append(out, r...)
	out = append(out, d[pos:]...)
	if m.maxSize > 0 && len(out) > m.maxSize {
		out = out[:m.maxSize]
	}
	return out
}

func (m *Mutator) deleteBytes(d []byte) []byte {
	if len(d) == 0 {
		return d
	}
	s := m.rng.Intn(len(d))
	maxLen := len(d) - s
	if maxLen > 16 {
		maxLen = 16
	}
	n := m.rng.Intn(maxLen) + 1
	out := make([]byte, 0, len(d)-n)
	out = append(out, d[:s]...)
	out = append(out, d[s+n:]...)
	return out
}

func (m *Mutator) replaceBytes(d []byte) []byte {
	if len(d) == 0 {
		return m.randBytes(1)
	}
	out := append([]byte(nil), d...)
	s := m.rng.Intn(len(out))
	maxLen := len(out) - s
	if maxLen > 16 {
		maxLen = 16
	}
	n := m.rng.Intn(maxLen) + 1
	copy(out[s:s+n], m.randBytes(n))
	return out
}

func (m *Mutator) insertDict(d []byte) []byte {
	dict := m.dict
	if len(dict.Tokens) == 0 {
		dict = defaultDict
	}
	tok := dict.Tokens[m.rng.Intn(len(dict.Tokens))]
	pos := m.rng.Intn(len(d) + 1)
	out := make([]byte, 0, len(d)+len(tok))
	out = append(out, d[:pos]...)
	out = append(out, tok...)
	out = append(out, d[pos:]...)
	if m.maxSize > 0 && len(out) > m.maxSize {
		out = out[:m.maxSize]
	}
	return out
}

// arith adds a small delta in [-2, 2] to one byte.
func (m *Mutator) arith(d []byte) []byte {
	if len(d) == 0 {
		return []byte{0}
	}
	out := append([]byte(nil), d...)
	idx := m.rng.Intn(len(out))
	delta := m.rng.Intn(5) - 2
	out[idx] = byte(int(out[idx]) + delta)
	return out
}

var interestingValues = []uint32{0x00000000, 0x00000001, 0x7fffffff, 0xdeadbeef}

// interesting overwrites a little-endian 8/16/32-bit value at a random
// position with a value known to trip boundary checks.
func (m *Mutator) interesting(d []byte) []byte {
	if len(d) == 0 {
		return []byte{0}
	}
	out := append([]byte(nil), d...)
	v := interestingValues[m.rng.Intn(len(interestingValues))]
	width := []int{1, 2, 4}[m.rng.Intn(3)]
	if width > len(out) {
		width = 1
	}
	pos := m.rng.Intn(len(out) - width + 1)
	for i := 0; i < width; i++ {
		out[pos+i] = byte(v >> uint(8*i))
	}
	return out
}

// fillRun overwrites 1-16 consecutive bytes with one repeated value.
func (m *Mutator) fillRun(d []byte) []byte {
	if len(d) == 0 {
		return []byte{0}
	}
	out := append([]byte(nil), d...)
	s := m.rng.Intn(len(out))
	maxLen := len(out) - s
	if maxLen > 16 {
		maxLen = 16
	}
	n := m.rng.Intn(maxLen) + 1
	v := byte(m.rng.Intn(256))
	for i := s; i < s+n; i++ {
		out[i] = v
	}
	return out
}
