// Package analytics computes summary statistics over a run's equity curve.
package analytics

import "math"

// Returns converts an equity curve into simple per-period returns. The
// result has one fewer element than the curve; periods starting from a
// zero value yield a zero return.
func Returns(curve []float64) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1] != 0 {
			out[i-1] = curve[i]/curve[i-1] - 1
		}
	}
	return out
}

// SharpeRatio is the annualized mean excess return over its sample
// standard deviation. riskFreeRate is annual and deflated to the period.
// Returns 0 when fewer than two returns exist or the deviation is zero.
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0
	}

	rf := riskFreeRate / float64(periodsPerYear)

	mean := 0.0
	for _, r := range returns {
		mean += r - rf
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := (r - rf) - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}

	return math.Sqrt(float64(periodsPerYear)) * mean / std
}

// MaxDrawdown is the largest peak-to-trough decline of the curve, as a
// fraction of the peak. Zero for flat or rising curves.
func MaxDrawdown(curve []float64) float64 {
	peak := math.Inf(-1)
	maxDD := 0.0
	for _, v := range curve {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
