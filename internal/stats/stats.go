// Package stats reduces measured samples to summary statistics and ranks
// commands against each other.
package stats

import (
	"errors"
	"math"
	"time"

	moremath "github.com/aclements/go-moremath/stats"

	"github.com/antoninbas/cmdbench/internal/runner"
)

// DefaultOutlierSigma is the distance from the median, in robust standard
// deviations, beyond which a sample counts as an outlier.
const DefaultOutlierSigma = 3.0

// Scale factors turning the median absolute deviation, and the mean
// absolute deviation around the median, into estimates of the standard
// deviation of normally distributed data.
const (
	madScale    = 1.4826
	meanADScale = 1.2533
)

// ErrEmptyStatistics is returned when a sample set has no successful
// sample. Zero-valued statistics would look like a very fast command.
var ErrEmptyStatistics = errors.New("no successful samples to summarize")

// Statistics summarizes the successful samples of one command. Failed
// samples only contribute to Failures.
type Statistics struct {
	Runs     int
	Failures int
	Mean     time.Duration
	// StdDev is the population standard deviation.
	StdDev time.Duration
	Median time.Duration
	Min    time.Duration
	Max    time.Duration
	User   time.Duration
	System time.Duration
	// Outliers are counted but kept in Mean and StdDev. See countOutliers.
	Outliers int
}

// FailureRate is the fraction of all samples that failed.
func (s Statistics) FailureRate() float64 {
	total := s.Runs + s.Failures
	if total == 0 {
		return 0
	}
	return float64(s.Failures) / float64(total)
}

// Summarize computes Statistics over the successful samples of set.
// outlierSigma <= 0 selects DefaultOutlierSigma.
func Summarize(set *runner.SampleSet, outlierSigma float64) (Statistics, error) {
	if outlierSigma <= 0 {
		outlierSigma = DefaultOutlierSigma
	}
	ok := set.Successful()
	if len(ok) == 0 {
		return Statistics{}, ErrEmptyStatistics
	}

	xs := make([]float64, len(ok))
	var user, system float64
	for i, s := range ok {
		xs[i] = float64(s.Duration)
		user += float64(s.User)
		system += float64(s.System)
	}
	sample := moremath.Sample{Xs: xs}
	sample.Sort()
	mean := sample.Mean()
	sd := populationStdDev(xs, mean)
	lo, hi := sample.Bounds()
	median := sample.Quantile(0.5)

	n := float64(len(xs))
	return Statistics{
		Runs:     len(ok),
		Failures: len(set.Samples) - len(ok),
		Mean:     time.Duration(mean),
		StdDev:   time.Duration(sd),
		Median:   time.Duration(median),
		Min:      time.Duration(lo),
		Max:      time.Duration(hi),
		User:     time.Duration(user / n),
		System:   time.Duration(system / n),
		Outliers: countOutliers(xs, median, outlierSigma),
	}, nil
}

// countOutliers counts the values further than sigma robust standard
// deviations from the median. The robust deviation is the scaled median
// absolute deviation, or the scaled mean absolute deviation when more than
// half of the values equal the median.
func countOutliers(xs []float64, median, sigma float64) int {
	dev := make([]float64, len(xs))
	var total float64
	for i, x := range xs {
		dev[i] = math.Abs(x - median)
		total += dev[i]
	}
	deviations := moremath.Sample{Xs: dev}
	deviations.Sort()
	scale := madScale * deviations.Quantile(0.5)
	if scale == 0 {
		scale = meanADScale * total / float64(len(xs))
	}
	if scale == 0 {
		return 0
	}
	n := 0
	for _, d := range dev {
		if d > sigma*scale {
			n++
		}
	}
	return n
}

// RelativeStandardError is the standard error of the mean divided by the
// mean. It is +Inf when fewer than two values are given or the mean is
// zero, so callers waiting for it to drop keep sampling.
func RelativeStandardError(xs []float64) float64 {
	if len(xs) < 2 {
		return math.Inf(1)
	}
	mean := moremath.Mean(xs)
	if mean == 0 {
		return math.Inf(1)
	}
	se := populationStdDev(xs, mean) / math.Sqrt(float64(len(xs)))
	return se / math.Abs(mean)
}

func populationStdDev(xs []float64, mean float64) float64 {
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
