package sweep

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes one full revolution of samples.
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min_mm"`
	Max    float64 `json:"max_mm"`
	Mean   float64 `json:"mean_mm"`
	StdDev float64 `json:"stddev_mm"`
}

// Summarize computes the summary of samples. An empty slice gives a zero
// Summary.
func Summarize(samples []uint32) Summary {
	if len(samples) == 0 {
		return Summary{}
	}
	xs := make([]float64, len(samples))
	for i, v := range samples {
		xs[i] = float64(v)
	}
	s := Summary{
		Count: len(xs),
		Min:   floats.Min(xs),
		Max:   floats.Max(xs),
	}
	if len(xs) == 1 {
		s.Mean = xs[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(xs, nil)
	return s
}
