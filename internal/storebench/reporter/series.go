package reporter

import (
	"math"
	"sort"
)

// SeriesStats summarises a latency sample. Valid is false when the sample was empty.
type SeriesStats struct {
	Valid  bool
	Min    float64
	Max    float64
	Avg    float64
	StdDev float64
	Median float64
	Pctile float64
}

func newSeriesStats(sample []float64, pctile float64) SeriesStats {
	if len(sample) == 0 {
		return SeriesStats{}
	}
	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)

	avg, stdDev := meanStdDev(sorted)
	return SeriesStats{
		Valid:  true,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Avg:    avg,
		StdDev: stdDev,
		Median: Percentile(sorted, 50),
		Pctile: Percentile(sorted, pctile),
	}
}

// Percentile picks the p-th percentile (0-100) of a sorted, non-empty sample. When n*p/100 lands
// exactly on an element boundary the two neighbouring elements are averaged.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	rank := float64(n) * p / 100
	if rank == math.Trunc(rank) {
		r := int(rank)
		switch {
		case r <= 0:
			return sorted[0]
		case r >= n:
			return sorted[n-1]
		}
		return (sorted[r-1] + sorted[r]) / 2
	}
	i := int(math.Ceil(rank)) - 1
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return sorted[i]
}

// meanStdDev is the mean and population standard deviation of values.
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}
