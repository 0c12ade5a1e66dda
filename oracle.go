package sortnet

import (
	"fmt"
	"math/bits"
	"sort"

	"nickandperla.net/sortnet/network"
)

// lanePatterns[s] has bit t set when bit s of t is set. Within one block of
// 64 consecutive 0/1 vectors these are the lanes of the low six bit
// positions.
var lanePatterns = [6]uint64{
	0xAAAAAAAAAAAAAAAA,
	0xCCCCCCCCCCCCCCCC,
	0xF0F0F0F0F0F0F0F0,
	0xFF00FF00FF00FF00,
	0xFFFF0000FFFF0000,
	0xFFFFFFFF00000000,
}

// Oracle decides whether a network sorts. Widths up to MaxExhaustiveWidth
// are checked against every 0/1 input, which is a proof by the zero-one
// principle. Wider networks get Samples random permutations and only a
// statistical verdict.
type Oracle struct {
	MaxExhaustiveWidth int
	Samples            int
	ValueRange         int
	Rand               Source
}

func NewOracle(rng Source, ec *EvaluatorConfig) *Oracle {
	o := &Oracle{
		MaxExhaustiveWidth: DefaultMaxExhaustiveWidth,
		Samples:            DefaultVerifySamples,
		ValueRange:         DefaultValueRange,
		Rand:               rng,
	}
	if ec != nil {
		if ec.MaxExhaustiveWidth > 0 {
			o.MaxExhaustiveWidth = min(int(ec.MaxExhaustiveWidth), MaxExhaustiveWidthCeiling)
		}
		if ec.VerifySamples > 0 {
			o.Samples = int(ec.VerifySamples)
		}
		if ec.ValueRange > 0 {
			o.ValueRange = int(ec.ValueRange)
		}
	}
	return o
}

// Exhaustive reports whether Verify on width n is a proof. Widths above
// MaxExhaustiveWidthCeiling are always sampled.
func (o *Oracle) Exhaustive(n int) bool {
	return n <= min(o.MaxExhaustiveWidth, MaxExhaustiveWidthCeiling)
}

// Verify scores net on width n. Perfect fitness from an exhaustive check
// means net is a sorting network.
func (o *Oracle) Verify(net network.Network, n int) (Fitness, error) {
	fit, _, err := o.scan(net, n, false)
	return fit, err
}

// Counterexample returns the first input net fails to sort, if any.
func (o *Oracle) Counterexample(net network.Network, n int) (Vector, bool, error) {
	_, v, err := o.scan(net, n, true)
	if err != nil {
		return nil, false, err
	}
	return v, v != nil, nil
}

func (o *Oracle) scan(net network.Network, n int, stop bool) (Fitness, Vector, error) {
	if n < 0 {
		return Fitness{}, nil, fmt.Errorf("negative width %d", n)
	}
	if err := net.Validate(n); err != nil {
		return Fitness{}, nil, fmt.Errorf("cannot verify network: %w", err)
	}
	if o.Exhaustive(n) {
		fit, v := scanExhaustive(net, n, stop)
		return fit, v, nil
	}
	if o.Rand == nil {
		return Fitness{}, nil, fmt.Errorf("sampled verification of width %d needs a random source", n)
	}
	fit, v := o.scanSampled(net, n, stop)
	return fit, v, nil
}

// scanExhaustive walks all 2^n 0/1 vectors 64 at a time, generating each
// block's lanes directly from the block index.
func scanExhaustive(net network.Network, n int, stop bool) (Fitness, Vector) {
	total := uint64(1) << uint(n)
	blocks := max(total/64, 1)
	mask := ^uint64(0)
	if total < 64 {
		mask = (uint64(1) << total) - 1
	}

	fit := Fitness{Total: uint(total)}
	lines := make([]uint64, n)
	for b := uint64(0); b < blocks; b++ {
		for i := range lines {
			s := uint(n - 1 - i)
			switch {
			case s < 6:
				lines[i] = lanePatterns[s]
			case (b<<6)>>s&1 == 1:
				lines[i] = ^uint64(0)
			default:
				lines[i] = 0
			}
		}
		fail := sortLanes(net, lines) & mask
		fit.Passed += uint(bits.OnesCount64(mask &^ fail))
		if stop && fail != 0 {
			k := b<<6 | uint64(bits.TrailingZeros64(fail))
			return fit, binaryVector(int(k), n)
		}
	}
	return fit, nil
}

func (o *Oracle) scanSampled(net network.Network, n int, stop bool) (Fitness, Vector) {
	pool := make([]int, max(o.ValueRange, n))
	fit := Fitness{Total: uint(o.Samples)}
	scratch := make(Vector, n)
	for s := 0; s < o.Samples; s++ {
		v := samplePermutation(o.Rand, pool, n)
		copy(scratch, v)
		if network.IsSorted(network.Apply(scratch, net)) {
			fit.Passed++
		} else if stop {
			return fit, v
		}
	}
	return fit, nil
}

// Reference is the known-correct network the oracle compares sizes
// against: Batcher's recursive construction for powers of two, merge
// exchange otherwise.
func (o *Oracle) Reference(n int) network.Network {
	if network.IsPowerOfTwo(n) {
		return network.Recursive(n)
	}
	return network.MergeExchange(n)
}

// ValidateAgainstSort checks net on one concrete array by comparing its
// output with sort.Ints. v is not modified.
func ValidateAgainstSort(net network.Network, v []int) bool {
	got := network.Apply(append([]int(nil), v...), net)
	want := append([]int(nil), v...)
	sort.Ints(want)
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// LiftBinary turns a 0/1 vector into a permutation of [0, n) with the same
// order pattern: zeros get the low values, ones the high values, each in
// position order. A network fails on the result whenever it fails on v.
func LiftBinary(v Vector) Vector {
	zeros := 0
	for _, x := range v {
		if x == 0 {
			zeros++
		}
	}
	lifted := make(Vector, len(v))
	lo, hi := 0, zeros
	for i, x := range v {
		if x == 0 {
			lifted[i] = lo
			lo++
		} else {
			lifted[i] = hi
			hi++
		}
	}
	return lifted
}

// BinaryCounterexample thresholds a vector net fails on into a 0/1 vector
// net also fails on. One always exists by the zero-one principle; ok is
// false only when net actually sorts v.
func BinaryCounterexample(net network.Network, v Vector) (Vector, bool) {
	thresholds := append([]int(nil), v...)
	sort.Ints(thresholds)
	b := make(Vector, len(v))
	for _, t := range thresholds {
		for i, x := range v {
			b[i] = 0
			if x >= t {
				b[i] = 1
			}
		}
		if !network.Sorts(net, b) {
			return b, true
		}
	}
	return nil, false
}

func isBinaryVector(v Vector) bool {
	for _, x := range v {
		if x != 0 && x != 1 {
			return false
		}
	}
	return true
}
