package network

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidComparator = errors.New("invalid comparator")

// A Comparator conditionally swaps the values on lines I and J so that the
// smaller one ends up on line I. I is always strictly less than J.
type Comparator struct {
	I int `json:"i"`
	J int `json:"j"`
}

func NewComparator(a, b int) Comparator {
	if a > b {
		a, b = b, a
	}
	return Comparator{I: a, J: b}
}

func (c Comparator) String() string {
	return fmt.Sprintf("%d:%d", c.I, c.J)
}

// Network is an ordered sequence of comparators. Order matters: the same
// comparators applied in a different order can sort differently.
type Network []Comparator

func (net Network) Len() int {
	return len(net)
}

func (net Network) Clone() Network {
	if net == nil {
		return Network{}
	}
	clone := make(Network, len(net))
	copy(clone, net)
	return clone
}

func (net Network) Equal(other Network) bool {
	if len(net) != len(other) {
		return false
	}
	for i := range net {
		if net[i] != other[i] {
			return false
		}
	}
	return true
}

// Validate checks every comparator against a width of n lines.
func (net Network) Validate(n int) error {
	for pos, c := range net {
		if c.I == c.J {
			return fmt.Errorf("%w: comparator %d (%v) joins a line to itself", ErrInvalidComparator, pos, c)
		}
		if c.I > c.J {
			return fmt.Errorf("%w: comparator %d (%v) is not ordered", ErrInvalidComparator, pos, c)
		}
		if c.I < 0 || c.J >= n {
			return fmt.Errorf("%w: comparator %d (%v) is outside [0, %d)", ErrInvalidComparator, pos, c, n)
		}
	}
	return nil
}

// Depth reports how many parallel layers the network would need if
// independent comparators were batched greedily. Apply never batches.
func (net Network) Depth() int {
	if len(net) == 0 {
		return 0
	}
	lineDepth := map[int]int{}
	depth := 0
	for _, c := range net {
		d := max(lineDepth[c.I], lineDepth[c.J]) + 1
		lineDepth[c.I] = d
		lineDepth[c.J] = d
		depth = max(depth, d)
	}
	return depth
}

func (net Network) String() string {
	var sb strings.Builder
	for i, c := range net {
		if i > 0 {
			sb.WriteRune(' ')
		}
		sb.WriteString(c.String())
	}
	return sb.String()
}

// Parse reads the format produced by Network.String: whitespace or comma
// separated "i:j" pairs.
func Parse(s string) (Network, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})
	net := make(Network, 0, len(fields))
	for _, f := range fields {
		left, right, ok := strings.Cut(f, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not of the form i:j", ErrInvalidComparator, f)
		}
		i, err := strconv.Atoi(left)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidComparator, f, err)
		}
		j, err := strconv.Atoi(right)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidComparator, f, err)
		}
		if i == j {
			return nil, fmt.Errorf("%w: %q joins a line to itself", ErrInvalidComparator, f)
		}
		net = append(net, NewComparator(i, j))
	}
	return net, nil
}

// Apply runs every comparator of net over v, strictly in network order,
// swapping in place. The same slice is returned for convenience.
func Apply[T cmp.Ordered](v []T, net Network) []T {
	for _, c := range net {
		if v[c.I] > v[c.J] {
			v[c.I], v[c.J] = v[c.J], v[c.I]
		}
	}
	return v
}

func IsSorted[T cmp.Ordered](v []T) bool {
	for k := 0; k+1 < len(v); k++ {
		if v[k] > v[k+1] {
			return false
		}
	}
	return true
}

// Sorts reports whether net sorts a copy of v. v is left untouched.
func Sorts[T cmp.Ordered](net Network, v []T) bool {
	scratch := make([]T, len(v))
	copy(scratch, v)
	return IsSorted(Apply(scratch, net))
}
