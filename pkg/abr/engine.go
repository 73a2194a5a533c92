package abr

import "math"

// Decision records one quality selection together with the statistics
// that produced it, so hosts and tests can observe the adaptation
// behavior without parsing log output.
type Decision struct {
	Mean        float64
	Variance    float64
	Probability float64
	Tau         float64
	Theta       float64
	Index       int
}

// Observer receives every decision the engine makes.
type Observer func(Decision)

// Engine selects the quality level index for the next segment from a
// window of recent throughput samples. The heuristic pulls the current
// index toward its lower neighbor weighted by throughput instability
// (tau) and toward its upper neighbor weighted by stability (theta).
//
// Distances are computed on level indices, not on the bitrates behind
// them; with adjacent neighbors each pull term is at most one step.
type Engine struct {
	observer Observer
}

// NewEngine creates an engine. observer may be nil.
func NewEngine(observer Observer) *Engine {
	return &Engine{observer: observer}
}

// Decide computes the quality index for the next segment given the
// throughput samples, the current index and the number of selectable
// levels. When levelCount is zero the current index is returned
// unchanged. The result is always clamped to [0, levelCount-1]
// otherwise. Decide is pure with respect to its inputs.
func (e *Engine) Decide(samples []float64, currentIndex, levelCount int) Decision {
	mean, variance := meanAndVariance(samples)

	var p float64
	if mean+variance != 0 {
		p = mean / (mean + variance)
	}

	d := Decision{
		Mean:        mean,
		Variance:    variance,
		Probability: p,
		Index:       currentIndex,
	}

	if levelCount > 0 {
		prev := max(0, currentIndex-1)
		next := min(levelCount-1, currentIndex+1)

		d.Tau = (1 - p) * float64(currentIndex-prev)
		d.Theta = p * float64(next-currentIndex)

		raw := int(math.Round(float64(currentIndex) - d.Tau + d.Theta))
		d.Index = max(0, min(levelCount-1, raw))
	}

	if e.observer != nil {
		e.observer(d)
	}
	return d
}

// meanAndVariance returns the arithmetic mean and population variance
// of the samples, or zeros for an empty slice.
func meanAndVariance(samples []float64) (mean, variance float64) {
	if len(samples) == 0 {
		return 0, 0
	}

	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))

	for _, s := range samples {
		dev := s - mean
		variance += dev * dev
	}
	variance /= float64(len(samples))

	return mean, variance
}
