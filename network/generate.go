package network

// Source is the pseudorandom source used by the generator and the mutation
// operator. *math/rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
	Float64() float64
}

// RandomComparator draws two distinct lines uniformly from [0, n) and orders
// them. n must be at least 2.
func RandomComparator(rng Source, n int) Comparator {
	i := rng.Intn(n)
	j := rng.Intn(n - 1)
	if j >= i {
		j++
	}
	return NewComparator(i, j)
}

// Random builds a network of exactly maxComparators random comparators.
// Duplicates are allowed. With fewer than two lines there is no valid
// comparator and the network is empty.
func Random(rng Source, n, maxComparators int) Network {
	if n < 2 || maxComparators <= 0 {
		return Network{}
	}
	net := make(Network, 0, maxComparators)
	for k := 0; k < maxComparators; k++ {
		net = append(net, RandomComparator(rng, n))
	}
	return net
}

type builder struct {
	net Network
}

func (b *builder) emit(i, j int) {
	b.net = append(b.net, Comparator{I: i, J: j})
}

// Recursive builds Batcher's odd-even merge sorting network over n lines.
// It is correct when n is a power of two. Other widths run the same scheme
// on n directly: every comparator stays in range but the result is not
// guaranteed to sort. Use MergeExchange for a correct network of any width.
func Recursive(n int) Network {
	b := &builder{net: Network{}}
	if n < 2 {
		return b.net
	}
	b.sortRange(0, n)
	return b.net
}

func (b *builder) sortRange(lo, count int) {
	if count <= 1 {
		return
	}
	half := count / 2
	b.sortRange(lo, half)
	b.sortRange(lo+half, count-half)
	b.mergeStage(lo, lo+count, 1)
}

// mergeStage merges the sorted halves of [lo, hi) viewed at stride step.
func (b *builder) mergeStage(lo, hi, step int) {
	double := step * 2
	if double < hi-lo {
		b.mergeStage(lo, hi, double)
		b.mergeStage(lo+step, hi, double)
		for i := lo + step; i+step < hi; i += double {
			b.emit(i, i+step)
		}
		return
	}
	if lo+step < hi {
		b.emit(lo, lo+step)
	}
}

// MergeExchange builds Batcher's merge exchange network (Knuth, TAOCP vol. 3,
// 5.2.2 Algorithm M), which sorts for every width.
func MergeExchange(n int) Network {
	b := &builder{net: Network{}}
	if n < 2 {
		return b.net
	}
	t := 0
	for 1<<t < n {
		t++
	}
	for p := 1 << (t - 1); p > 0; p >>= 1 {
		q, r, d := 1<<(t-1), 0, p
		for {
			for i := 0; i < n-d; i++ {
				if i&p == r {
					b.emit(i, i+d)
				}
			}
			if q == p {
				break
			}
			d, q, r = q-p, q>>1, p
		}
	}
	return b.net
}

func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
