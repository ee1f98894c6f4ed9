package reporter

import "math"

// TimeSeries counts completed requests per whole second, Counts[0] being second Start.
type TimeSeries struct {
	Start  int64
	Counts []int
}

type timeSeriesBuilder struct {
	seconds map[int64]int
	min     int64
	max     int64
}

func (b *timeSeriesBuilder) add(completedAt float64) {
	second := int64(math.Floor(completedAt))
	if b.seconds == nil {
		b.seconds = map[int64]int{}
		b.min, b.max = second, second
	}
	b.seconds[second]++
	if second < b.min {
		b.min = second
	}
	if second > b.max {
		b.max = second
	}
}

// build fills seconds without completions with zero.
func (b *timeSeriesBuilder) build() TimeSeries {
	if b.seconds == nil {
		return TimeSeries{}
	}
	counts := make([]int, b.max-b.min+1)
	for second, n := range b.seconds {
		counts[second-b.min] = n
	}
	return TimeSeries{Start: b.min, Counts: counts}
}
