package network

// RemoveChance is the probability that Mutate removes a comparator instead
// of appending one.
const RemoveChance = 0.5

// Mutate returns a copy of net with exactly one structural change: with
// probability RemoveChance one comparator at a uniform position is removed,
// otherwise one random comparator is appended. An empty network always grows.
// With fewer than two lines no comparator exists, so an unchanged copy is
// returned. net itself is never modified.
func Mutate(rng Source, net Network, n int) Network {
	child := net.Clone()
	MutateInPlace(rng, &child, n)
	return child
}

// MutateInPlace applies the same change as Mutate directly to *net, drawing
// from rng in the same order. The caller must own the backing array.
func MutateInPlace(rng Source, net *Network, n int) {
	if n < 2 {
		return
	}
	if rng.Float64() < RemoveChance && len(*net) > 0 {
		pos := rng.Intn(len(*net))
		*net = append((*net)[:pos], (*net)[pos+1:]...)
		return
	}
	*net = append(*net, RandomComparator(rng, n))
}

// Remove returns a copy of net without the comparator at pos.
func Remove(net Network, pos int) Network {
	child := make(Network, 0, len(net)-1)
	child = append(child, net[:pos]...)
	return append(child, net[pos+1:]...)
}

// Append returns a copy of net with c added at the end.
func Append(net Network, c Comparator) Network {
	child := make(Network, len(net), len(net)+1)
	copy(child, net)
	return append(child, c)
}
