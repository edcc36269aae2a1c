package shared

import "math"

// PercentChange computes the growth of current vs previous as a whole
// percentage. A zero previous window yields 0, never NaN or Inf.
func PercentChange(current, previous int64) float64 {
	if previous == 0 {
		return 0
	}
	return math.Round(float64(current-previous) / float64(previous) * 100)
}

// Share computes part/total as a percentage rounded to one decimal place,
// with a zero floor for an empty total.
func Share(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
