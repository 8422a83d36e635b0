package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/antoninbas/cmdbench/internal/bench"
	"github.com/antoninbas/cmdbench/internal/stats"
)

// Record is the machine-readable form of one compared command. Durations
// are in seconds. Field order is part of the output format.
type Record struct {
	Name   string
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Ratio  float64
}

type jsonRecord struct {
	Name   string   `json:"name"`
	Mean   float64  `json:"mean"`
	StdDev float64  `json:"stddev"`
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
	Ratio  *float64 `json:"ratio"`
	User   float64  `json:"user"`
	System float64  `json:"system"`
	Runs   int      `json:"runs"`
	Failed int      `json:"failed"`
}

type jsonFailure struct {
	Name   string `json:"name"`
	State  string `json:"state"`
	Reason string `json:"reason"`
}

type jsonDocument struct {
	Metadata Metadata      `json:"metadata"`
	Results  []jsonRecord  `json:"results"`
	Failures []jsonFailure `json:"failures,omitempty"`
}

func Records(c *stats.ComparisonResult) []Record {
	if c == nil {
		return nil
	}
	records := make([]Record, len(c.Entries))
	for i, e := range c.Entries {
		records[i] = Record{
			Name:   e.Name,
			Mean:   e.Stats.Mean.Seconds(),
			StdDev: e.Stats.StdDev.Seconds(),
			Min:    e.Stats.Min.Seconds(),
			Max:    e.Stats.Max.Seconds(),
			Ratio:  e.Ratio,
		}
	}
	return records
}

// WriteJSON writes the comparison and failures of result as one JSON
// document. A non-finite ratio is written as null.
func WriteJSON(w io.Writer, meta Metadata, result *bench.Result) error {
	doc := jsonDocument{Metadata: meta, Results: []jsonRecord{}}
	if result.Comparison != nil {
		for i, r := range Records(result.Comparison) {
			st := result.Comparison.Entries[i].Stats
			jr := jsonRecord{
				Name: r.Name, Mean: r.Mean, StdDev: r.StdDev, Min: r.Min, Max: r.Max,
				User: st.User.Seconds(), System: st.System.Seconds(),
				Runs: st.Runs, Failed: st.Failures,
			}
			if !math.IsInf(r.Ratio, 0) && !math.IsNaN(r.Ratio) {
				ratio := r.Ratio
				jr.Ratio = &ratio
			}
			doc.Results = append(doc.Results, jr)
		}
	}
	for _, o := range result.Outcomes {
		if o.Fatal() {
			doc.Failures = append(doc.Failures, jsonFailure{Name: o.Name, State: o.State.String(), Reason: o.Err.Error()})
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteCSV writes a header and one row per record.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "mean", "stddev", "min", "max", "ratio"}); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{r.Name, formatFloat(r.Mean), formatFloat(r.StdDev), formatFloat(r.Min), formatFloat(r.Max), formatFloat(r.Ratio)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
