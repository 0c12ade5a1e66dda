package sortnet

// VECTOR_OP is a mutation applied to a parasite test vector.
type VECTOR_OP int

const (
	FLIP_OP = VECTOR_OP(iota)
	SWAP_OP
	REPLACE_OP
)

var BINARY_OP_SET = []VECTOR_OP{FLIP_OP}

var PERMUTATION_OP_SET = []VECTOR_OP{SWAP_OP, REPLACE_OP}

func (op VECTOR_OP) String() string {
	switch op {
	case FLIP_OP:
		return "flip"
	case SWAP_OP:
		return "swap"
	case REPLACE_OP:
		return "replace"
	}
	return "unknown"
}

// VectorMutation describes one change made to a parasite.
type VectorMutation struct {
	Positions []int
	Op        VECTOR_OP
}

// MutateBinary returns a copy of v with each position flipped with
// probability chance. At least one position always flips.
func MutateBinary(rng Source, v Vector, chance float64) (Vector, []VectorMutation) {
	child := v.Clone()
	if len(child) == 0 {
		return child, nil
	}
	var mutations []VectorMutation
	for i := range child {
		if rng.Float64() < chance {
			child[i] ^= 1
			mutations = append(mutations, VectorMutation{Positions: []int{i}, Op: FLIP_OP})
		}
	}
	if len(mutations) == 0 {
		i := rng.Intn(len(child))
		child[i] ^= 1
		mutations = append(mutations, VectorMutation{Positions: []int{i}, Op: FLIP_OP})
	}
	return child, mutations
}

// MutatePermutation returns a copy of v changed by one swap of two positions
// or by replacing one value with a value from [0, valueRange) not already
// in v. Values stay distinct.
func MutatePermutation(rng Source, v Vector, valueRange int) (Vector, VectorMutation) {
	child := v.Clone()
	n := len(child)
	if n == 0 {
		return child, VectorMutation{}
	}

	op := PERMUTATION_OP_SET[rng.Intn(len(PERMUTATION_OP_SET))]
	if op == REPLACE_OP && valueRange <= n {
		op = SWAP_OP
	}
	if op == SWAP_OP && n < 2 {
		return child, VectorMutation{}
	}

	switch op {
	case SWAP_OP:
		i := rng.Intn(n)
		j := rng.Intn(n - 1)
		if j >= i {
			j++
		}
		child[i], child[j] = child[j], child[i]
		return child, VectorMutation{Positions: []int{i, j}, Op: SWAP_OP}
	default:
		used := make(map[int]struct{}, n)
		for _, x := range child {
			used[x] = struct{}{}
		}
		// Pick the k-th unused value so every free value is equally likely.
		k := rng.Intn(valueRange - len(used))
		value := 0
		for ; ; value++ {
			if _, ok := used[value]; ok {
				continue
			}
			if k == 0 {
				break
			}
			k--
		}
		i := rng.Intn(n)
		child[i] = value
		return child, VectorMutation{Positions: []int{i}, Op: REPLACE_OP}
	}
}
