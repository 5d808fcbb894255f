// Package align maps sparse higher-timeframe series onto a denser timeframe
// index: for each target timestamp, take the most recent source value at or
// before it. This is the explicit form of a forward-fill reindex and is what
// keeps H1/H4 filters well-defined on the M15 evaluation grid.
package align

import (
	"math"
	"time"
)

// Floats aligns values (parallel to srcTimes, ascending) onto the target
// timestamps. Targets earlier than the first source timestamp get NaN.
func Floats(srcTimes []time.Time, values []float64, onto []time.Time) []float64 {
	out := make([]float64, len(onto))
	j := -1
	for i, t := range onto {
		for j+1 < len(srcTimes) && !srcTimes[j+1].After(t) {
			j++
		}
		if j < 0 {
			out[i] = math.NaN()
		} else {
			out[i] = values[j]
		}
	}
	return out
}

// Bools aligns a boolean series the same way; targets before the first
// source timestamp are false.
func Bools(srcTimes []time.Time, values []bool, onto []time.Time) []bool {
	out := make([]bool, len(onto))
	j := -1
	for i, t := range onto {
		for j+1 < len(srcTimes) && !srcTimes[j+1].After(t) {
			j++
		}
		if j >= 0 {
			out[i] = values[j]
		}
	}
	return out
}
