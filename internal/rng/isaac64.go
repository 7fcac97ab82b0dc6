// Package rng implements the ISAAC64 generator used by the reference engine
// together with the bounded draw helpers the game logic is written against.
package rng

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

const (
	sizeLog = 8
	size    = 1 << sizeLog
	// MaxSeedBytes is the largest seed that contributes to the initial state.
	MaxSeedBytes = size << 3

	golden = 0x9E3779B97F4A7C13
)

var mixShift = [8]uint{9, 9, 23, 15, 14, 20, 17, 14}

// Isaac64 is a 64-bit ISAAC generator. The zero value is not usable; build
// one with New or NewFromBytes.
//
// An Isaac64 is not safe for concurrent use. Each session owns its own.
type Isaac64 struct {
	n       int
	r       [size]uint64
	m       [size]uint64
	a, b, c uint64

	calls   uint64
	seq     uint64
	tracing bool
	site    string
	trace   []TraceEntry
}

// State is a value copy of the generator's internal state.
type State struct {
	N       int
	R       [size]uint64
	M       [size]uint64
	A, B, C uint64
	Calls   uint64
}

// New seeds a generator from the little-endian bytes of seed, the way the
// reference engine seeds its core RNG.
func New(seed uint64) *Isaac64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	return NewFromBytes(b[:])
}

// NewFromBytes seeds a generator from an arbitrary byte string. Bytes past
// MaxSeedBytes are ignored.
func NewFromBytes(seed []byte) *Isaac64 {
	g := &Isaac64{}
	g.Reseed(seed)
	return g
}

// Reseed folds seed into the current result buffer and rescrambles the
// whole state. On a fresh generator this is the ISAAC64 initialisation.
func (g *Isaac64) Reseed(seed []byte) {
	if len(seed) > MaxSeedBytes {
		seed = seed[:MaxSeedBytes]
	}

	i := 0
	for ; i < len(seed)>>3; i++ {
		g.r[i] ^= binary.LittleEndian.Uint64(seed[i<<3:])
	}
	if rest := seed[i<<3:]; len(rest) > 0 {
		var ri uint64
		for j, b := range rest {
			ri |= uint64(b) << (uint(j) << 3)
		}
		g.r[i] ^= ri
	}

	var x [8]uint64
	for j := range x {
		x[j] = golden
	}
	for j := 0; j < 4; j++ {
		mix(&x)
	}
	for i := 0; i < size; i += 8 {
		for j := 0; j < 8; j++ {
			x[j] += g.r[i+j]
		}
		mix(&x)
		copy(g.m[i:i+8], x[:])
	}
	for i := 0; i < size; i += 8 {
		for j := 0; j < 8; j++ {
			x[j] += g.m[i+j]
		}
		mix(&x)
		copy(g.m[i:i+8], x[:])
	}

	g.update()
}

func mix(x *[8]uint64) {
	for i := 0; i < 8; i += 2 {
		x[i] -= x[(i+4)&7]
		x[(i+5)&7] ^= x[(i+7)&7] >> mixShift[i]
		x[(i+7)&7] += x[i]

		j := i + 1
		x[j] -= x[(j+4)&7]
		x[(j+5)&7] ^= x[(j+7)&7] << mixShift[j]
		x[(j+7)&7] += x[j]
	}
}

func lowerBits(x uint64) uint64 { return (x & ((size - 1) << 3)) >> 3 }

func upperBits(y uint64) uint64 { return (y >> (sizeLog + 3)) & (size - 1) }

// update refills r with the next 256 results.
func (g *Isaac64) update() {
	m := &g.m
	r := &g.r
	a := g.a
	g.c++
	b := g.b + g.c

	step := func(i int, mixed uint64, other int) {
		x := m[i]
		a = mixed + m[other]
		y := m[lowerBits(x)] + a + b
		m[i] = y
		b = m[upperBits(y)] + x
		r[i] = b
	}

	const half = size / 2
	for i := 0; i < half; i += 4 {
		step(i, ^(a ^ a<<21), i+half)
		step(i+1, a^a>>5, i+1+half)
		step(i+2, a^a<<12, i+2+half)
		step(i+3, a^a>>33, i+3+half)
	}
	for i := half; i < size; i += 4 {
		step(i, ^(a ^ a<<21), i-half)
		step(i+1, a^a>>5, i+1-half)
		step(i+2, a^a<<12, i+2-half)
		step(i+3, a^a>>33, i+3-half)
	}

	g.a = a
	g.b = b
	g.n = size
}

func (g *Isaac64) raw() uint64 {
	if g.n == 0 {
		g.update()
	}
	g.n--
	g.calls++
	return g.r[g.n]
}

// Next returns the next 64-bit output.
func (g *Isaac64) Next() uint64 {
	v := g.raw()
	g.record("u64", 0, int64(v), v)
	return v
}

// TraceNext returns the next output together with the trace entry describing
// the draw, whether or not tracing is enabled.
func (g *Isaac64) TraceNext(tag string) (uint64, TraceEntry) {
	v := g.raw()
	g.seq++
	e := TraceEntry{
		Seq:      g.seq,
		Site:     tag,
		Func:     "u64",
		Result:   int64(v),
		Raw:      v,
		Checksum: g.Checksum(),
	}
	if g.tracing {
		g.trace = append(g.trace, e)
	}
	return v, e
}

// NextUint returns a uniformly distributed value in [0, n). Biased raw
// outputs are rejected and redrawn exactly like isaac64_next_uint, so a single
// call may consume more than one raw output. n must be non-zero.
func (g *Isaac64) NextUint(n uint64) uint64 {
	for {
		r := g.raw()
		v := r % n
		d := r - v
		if d+n-1 >= d {
			return v
		}
	}
}

// Calls reports how many raw 64-bit outputs have been consumed.
func (g *Isaac64) Calls() uint64 { return g.calls }

// Checksum hashes the complete generator state.
func (g *Isaac64) Checksum() uint64 {
	buf := make([]byte, 0, 8*(4+2*size))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(g.n))
	buf = binary.LittleEndian.AppendUint64(buf, g.a)
	buf = binary.LittleEndian.AppendUint64(buf, g.b)
	buf = binary.LittleEndian.AppendUint64(buf, g.c)
	for _, v := range g.r {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	for _, v := range g.m {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	return xxhash.Sum64(buf)
}

// State returns a copy of the generator state.
func (g *Isaac64) State() State {
	return State{N: g.n, R: g.r, M: g.m, A: g.a, B: g.b, C: g.c, Calls: g.calls}
}

// Restore replaces the generator state. Tracing settings are kept.
func (g *Isaac64) Restore(s State) {
	g.n, g.r, g.m = s.N, s.R, s.M
	g.a, g.b, g.c = s.A, s.B, s.C
	g.calls = s.Calls
}

// Clone returns an independent copy, including any buffered trace.
func (g *Isaac64) Clone() *Isaac64 {
	c := *g
	if g.trace != nil {
		c.trace = append([]TraceEntry(nil), g.trace...)
	}
	return &c
}
