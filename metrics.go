package sortnet

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xrash/smetrics"

	"nickandperla.net/sortnet/network"
)

// PopulationMetrics holds aggregate metrics for a ranked population.
type PopulationMetrics struct {
	Size        uint
	BestFitness Fitness
	BestSize    uint
	MeanFitness float64
	MeanSize    float64
	Diversity   float64
}

// QueryMetrics summarises a population that has already been ranked.
func (p *Population) QueryMetrics() *PopulationMetrics {
	m := &PopulationMetrics{Size: uint(len(p.Individuals))}
	if len(p.Individuals) == 0 {
		return m
	}
	best := p.Best()
	m.BestFitness = best.Fitness
	m.BestSize = uint(best.Network.Len())
	m.MeanFitness = p.MeanFitness()

	var comparators int
	for _, ind := range p.Individuals {
		comparators += ind.Network.Len()
	}
	m.MeanSize = float64(comparators) / float64(len(p.Individuals))
	m.Diversity = Diversity(p, int(p.PopulationConfig.Width))
	return m
}

// Diversity is the mean edit distance, in comparators, between the first
// member and every other member of pop.
func Diversity(pop *Population, width int) float64 {
	if len(pop.Individuals) < 2 {
		return 0
	}
	best, unit := diversityKey(pop.Individuals[0].Network, width)
	var sum int
	for _, ind := range pop.Individuals[1:] {
		other, _ := diversityKey(ind.Network, width)
		sum += smetrics.WagnerFischer(best, other, 1, 1, 2)
	}
	return float64(sum) / float64(unit*(len(pop.Individuals)-1))
}

// diversityKey encodes each comparator as its index among the n(n-1)/2
// possible pairs, one byte each while that fits and two otherwise. The
// second result is the number of bytes per comparator. With two bytes the
// distance is an approximation, since substitutions can split a symbol.
func diversityKey(net network.Network, width int) (string, int) {
	pairs := width * (width - 1) / 2
	unit := 1
	if pairs > 256 {
		unit = 2
	}
	key := make([]byte, 0, unit*len(net))
	for _, c := range net {
		idx := c.I*(2*width-c.I-1)/2 + (c.J - c.I - 1)
		if unit == 2 {
			key = append(key, byte(idx>>8))
		}
		key = append(key, byte(idx))
	}
	return string(key), unit
}

// Collector exports generation reports as prometheus metrics. It is a
// GenerationObserver.
type Collector struct {
	BestFitness prometheus.Gauge
	MeanFitness prometheus.Gauge
	BestSize    prometheus.Gauge
	Diversity   prometheus.Gauge
	Parasites   prometheus.Gauge
	Generations prometheus.Counter
	Evaluations prometheus.Counter

	ParasiteMutations *prometheus.CounterVec
}

// NewCollector builds a collector labelled with mode and width and
// registers it with reg. A nil reg skips registration.
func NewCollector(reg prometheus.Registerer, mode string, width uint) (*Collector, error) {
	labels := prometheus.Labels{"mode": mode, "width": strconv.FormatUint(uint64(width), 10)}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sortnet", Name: name, Help: help, ConstLabels: labels,
		})
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sortnet", Name: name, Help: help, ConstLabels: labels,
		})
	}
	c := &Collector{
		BestFitness: gauge("best_fitness", "Fraction of test cases the current champion sorts."),
		MeanFitness: gauge("mean_fitness", "Mean fitness fraction of the population."),
		BestSize:    gauge("best_size", "Comparator count of the current champion."),
		Diversity:   gauge("diversity", "Mean edit distance from the champion to the population."),
		Parasites:   gauge("parasites", "Size of the adversarial test population."),
		Generations: counter("generations_total", "Generations completed."),
		Evaluations: counter("evaluations_total", "Network applications to test vectors."),
	}
	c.ParasiteMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sortnet", Name: "parasite_mutations_total", ConstLabels: labels,
		Help: "Mutation operators applied to bred parasites.",
	}, []string{"op"})
	if reg != nil {
		for _, m := range []prometheus.Collector{
			c.BestFitness, c.MeanFitness, c.BestSize, c.Diversity, c.Parasites, c.Generations, c.Evaluations,
			c.ParasiteMutations,
		} {
			if err := reg.Register(m); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Collector) ObserveGeneration(_ context.Context, report *GenerationReport) error {
	c.BestFitness.Set(report.BestFitness.Fraction())
	c.MeanFitness.Set(report.MeanFitness)
	c.BestSize.Set(float64(report.BestSize))
	c.Diversity.Set(report.Diversity)
	c.Parasites.Set(float64(report.ParasiteCount))
	c.Generations.Inc()
	c.Evaluations.Add(float64(report.Evaluations))
	for op, n := range report.ParasiteMutations {
		c.ParasiteMutations.WithLabelValues(op.String()).Add(float64(n))
	}
	return nil
}
