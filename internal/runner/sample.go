package runner

import "time"

// Sample is the outcome of one measured execution.
type Sample struct {
	// Duration is the wall-clock time between start and exit, taken from the
	// monotonic clock. For timed out runs it is the timeout.
	Duration time.Duration
	User     time.Duration
	System   time.Duration
	ExitCode int
	Success  bool
	// Err is a *TimeoutError or *NonZeroExit for failed samples.
	Err error
}

// SampleSet is the ordered sequence of samples taken for one command.
// Order is execution order.
type SampleSet struct {
	Samples []Sample
	Warmups int
}

func (s *SampleSet) Len() int { return len(s.Samples) }

// Successful returns the samples with a zero exit code.
func (s *SampleSet) Successful() []Sample {
	var ok []Sample
	for _, sample := range s.Samples {
		if sample.Success {
			ok = append(ok, sample)
		}
	}
	return ok
}

func (s *SampleSet) Failures() int {
	return len(s.Samples) - len(s.Successful())
}

// Elapsed is the cumulative measured time of every sample, failed or not.
func (s *SampleSet) Elapsed() time.Duration {
	var total time.Duration
	for _, sample := range s.Samples {
		total += sample.Duration
	}
	return total
}
