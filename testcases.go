package sortnet

import (
	"errors"
	"fmt"
)

var (
	ErrInputSpaceTooLarge = errors.New("input space too large")
	ErrValueRangeTooSmall = errors.New("value range too small")
)

// Vector is one test input: a value per network line.
type Vector []int

func (v Vector) Clone() Vector {
	clone := make(Vector, len(v))
	copy(clone, v)
	return clone
}

// SampledCases draws count vectors, each holding n distinct values taken
// in random order from [0, valueRange).
func SampledCases(rng Source, n, valueRange, count int) ([]Vector, error) {
	if valueRange < n {
		return nil, fmt.Errorf("%w: cannot draw %d distinct values from [0, %d)", ErrValueRangeTooSmall, n, valueRange)
	}
	cases := make([]Vector, count)
	pool := make([]int, valueRange)
	for c := range cases {
		cases[c] = samplePermutation(rng, pool, n)
	}
	return cases, nil
}

// samplePermutation runs a partial Fisher-Yates shuffle over pool and
// returns its first n entries.
func samplePermutation(rng Source, pool []int, n int) Vector {
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return Vector(pool[:n]).Clone()
}

// ExhaustiveBinary returns all 2^n vectors of 0s and 1s in lexicographic
// order. Widths above limit, or above MaxExhaustiveWidthCeiling whatever
// the limit, fail with ErrInputSpaceTooLarge.
func ExhaustiveBinary(n, limit int) ([]Vector, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative width %d", n)
	}
	limit = min(limit, MaxExhaustiveWidthCeiling)
	if n > limit {
		return nil, fmt.Errorf("%w: 2^%d binary vectors exceeds the width limit of %d", ErrInputSpaceTooLarge, n, limit)
	}
	cases := make([]Vector, 1<<n)
	for k := range cases {
		cases[k] = binaryVector(k, n)
	}
	return cases, nil
}

func binaryVector(k, n int) Vector {
	v := make(Vector, n)
	fillBinary(v, k)
	return v
}

func fillBinary(v Vector, k int) {
	n := len(v)
	for i := range v {
		v[i] = (k >> (n - 1 - i)) & 1
	}
}

// Cases is a test set prepared for evaluation. When every value is 0 or 1
// the vectors are also bit-sliced: lane b*width+i holds line i of vectors
// 64b..64b+63, which lets the evaluator run 64 vectors per comparator.
type Cases struct {
	Width   int
	Vectors []Vector

	lanes  []uint64
	blocks int
}

func NewCases(width int, vectors []Vector) (*Cases, error) {
	binary := true
	for k, v := range vectors {
		if len(v) != width {
			return nil, fmt.Errorf("test vector %d has %d values, expected %d", k, len(v), width)
		}
		for _, x := range v {
			if x != 0 && x != 1 {
				binary = false
			}
		}
	}
	cases := &Cases{Width: width, Vectors: vectors}
	if binary && width > 0 {
		cases.pack()
	}
	return cases, nil
}

func (c *Cases) Len() int {
	return len(c.Vectors)
}

func (c *Cases) Binary() bool {
	return c.lanes != nil
}

func (c *Cases) pack() {
	c.blocks = (len(c.Vectors) + 63) / 64
	c.lanes = make([]uint64, c.blocks*c.Width)
	for k, v := range c.Vectors {
		block, bit := k/64, uint(k%64)
		for i, x := range v {
			if x == 1 {
				c.lanes[block*c.Width+i] |= 1 << bit
			}
		}
	}
}

// blockMask marks the vectors actually present in block b.
func (c *Cases) blockMask(b int) uint64 {
	if b < c.blocks-1 || len(c.Vectors)%64 == 0 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(len(c.Vectors)%64)) - 1
}

// TestCaseSource produces the test set for one generation.
type TestCaseSource interface {
	Cases() (*Cases, error)
}

// SampledSource draws a fresh batch of random permutations on every call,
// so fitness is only comparable within one generation.
type SampledSource struct {
	Rand       Source
	Width      int
	ValueRange int
	Count      int
}

func NewSampledSource(rng Source, width, valueRange, count int) *SampledSource {
	return &SampledSource{Rand: rng, Width: width, ValueRange: valueRange, Count: count}
}

func (s *SampledSource) Cases() (*Cases, error) {
	vectors, err := SampledCases(s.Rand, s.Width, s.ValueRange, s.Count)
	if err != nil {
		return nil, err
	}
	return NewCases(s.Width, vectors)
}

// ExhaustiveSource builds the full 0/1 set once and returns it every call.
type ExhaustiveSource struct {
	Width int
	Limit int

	cases *Cases
}

func NewExhaustiveSource(width, limit int) *ExhaustiveSource {
	return &ExhaustiveSource{Width: width, Limit: limit}
}

func (s *ExhaustiveSource) Cases() (*Cases, error) {
	if s.cases != nil {
		return s.cases, nil
	}
	vectors, err := ExhaustiveBinary(s.Width, s.Limit)
	if err != nil {
		return nil, err
	}
	if s.cases, err = NewCases(s.Width, vectors); err != nil {
		return nil, err
	}
	return s.cases, nil
}
