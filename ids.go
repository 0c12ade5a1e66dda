package sortnet

import "sync/atomic"

// IDGenerator hands out increasing individual IDs. Safe for concurrent use.
type IDGenerator struct {
	last atomic.Uint64
}

// NewIDGenerator returns a generator whose first ID is start+1.
func NewIDGenerator(start uint) *IDGenerator {
	g := &IDGenerator{}
	g.last.Store(uint64(start))
	return g
}

func (g *IDGenerator) Next() uint {
	return uint(g.last.Add(1))
}
