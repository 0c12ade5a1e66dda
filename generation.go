package sortnet

import (
	"context"

	"nickandperla.net/sortnet/network"
)

// GenerationReport summarises one generation, taken after ranking and
// before culling.
type GenerationReport struct {
	Mode          string
	Width         uint
	Generation    uint
	Best          network.Network
	BestFitness   Fitness
	MeanFitness   float64
	BestSize      uint
	Diversity     float64
	Cases         uint
	Evaluations   uint64
	ParasiteCount uint
	Culled        uint
	Offspring     uint

	// ParasiteMutations counts operators applied while breeding the next
	// parasite generation. Nil without parasites.
	ParasiteMutations map[VECTOR_OP]uint
}

// GenerationObserver is notified once per generation. An error aborts the run.
type GenerationObserver interface {
	ObserveGeneration(ctx context.Context, report *GenerationReport) error
}

// ObserverFunc adapts a function to GenerationObserver.
type ObserverFunc func(ctx context.Context, report *GenerationReport) error

func (f ObserverFunc) ObserveGeneration(ctx context.Context, report *GenerationReport) error {
	return f(ctx, report)
}
