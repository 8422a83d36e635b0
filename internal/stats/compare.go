package stats

import (
	"errors"
	"math"
	"sort"
)

// ErrNoData is returned when there is nothing to compare.
var ErrNoData = errors.New("no statistics to compare")

type Named struct {
	Name  string
	Stats Statistics
}

type Entry struct {
	Name  string
	Stats Statistics
	// Ratio is Mean divided by the fastest mean; exactly 1 for the fastest.
	Ratio float64
}

// ComparisonResult lists entries by ascending mean.
type ComparisonResult struct {
	Entries []Entry
}

func (c *ComparisonResult) Fastest() Entry { return c.Entries[0] }

// Compare ranks in by mean. Equal means keep their input order.
func Compare(in []Named) (*ComparisonResult, error) {
	if len(in) == 0 {
		return nil, ErrNoData
	}
	entries := make([]Entry, len(in))
	for i, n := range in {
		entries[i] = Entry{Name: n.Name, Stats: n.Stats}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Stats.Mean < entries[j].Stats.Mean
	})

	fastest := float64(entries[0].Stats.Mean)
	for i := range entries {
		mean := float64(entries[i].Stats.Mean)
		switch {
		case i == 0 || mean == fastest:
			entries[i].Ratio = 1
		case fastest == 0:
			entries[i].Ratio = math.Inf(1)
		default:
			entries[i].Ratio = mean / fastest
		}
	}
	return &ComparisonResult{Entries: entries}, nil
}
