package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/tools/benchmark/parse"

	"github.com/antoninbas/cmdbench/internal/stats"
)

// BenchmarkName maps a command name to a Go benchmark name, so exports can
// be fed to benchstat and read back as a baseline.
func BenchmarkName(name string) string {
	return "Benchmark" + strings.Join(strings.Fields(name), "_")
}

// WriteGoBench writes one Go benchmark line per command: the number of
// successful runs and the mean in ns/op.
func WriteGoBench(w io.Writer, c *stats.ComparisonResult) error {
	for _, e := range c.Entries {
		b := parse.Benchmark{
			Name:     BenchmarkName(e.Name),
			N:        e.Stats.Runs,
			NsPerOp:  float64(e.Stats.Mean),
			Measured: parse.NsPerOp,
		}
		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

func LoadBaseline(path string) (parse.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	set, err := parse.ParseSet(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse baseline '%s': %w", path, err)
	}
	return set, nil
}

// Delta is the relative change of a command's mean against a baseline.
type Delta struct {
	Name     string
	NsPerOp  float64
	Baseline float64
	Ratio    float64
	// Missing is set when the baseline has no entry for the command.
	Missing bool
}

func CompareBaseline(c *stats.ComparisonResult, baseline parse.Set) []Delta {
	var deltas []Delta
	for _, e := range c.Entries {
		d := Delta{Name: e.Name, NsPerOp: float64(e.Stats.Mean)}
		prev, ok := baseline[BenchmarkName(e.Name)]
		if !ok || len(prev) == 0 {
			d.Missing = true
			deltas = append(deltas, d)
			continue
		}
		d.Baseline = prev[len(prev)-1].NsPerOp
		if d.Baseline != 0 {
			d.Ratio = (d.NsPerOp - d.Baseline) / d.Baseline
		}
		deltas = append(deltas, d)
	}
	return deltas
}

// ShowBaseline prints the deltas and reports whether any of them is a
// regression beyond threshold.
func ShowBaseline(w io.Writer, deltas []Delta, threshold float64, onlyRegression, colour bool) bool {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetRowLine(true)
	table.SetHeader([]string{"Name", "Mean", "Baseline", "Change"})

	var regression bool
	for _, d := range deltas {
		if d.Missing {
			if !onlyRegression {
				table.Append([]string{d.Name, fmt.Sprintf("%.2f ns/op", d.NsPerOp), "-", "-"})
			}
			continue
		}
		if threshold < d.Ratio {
			regression = true
		} else if onlyRegression {
			continue
		}
		change, changeColour := changeCell(d.Ratio, threshold)
		row := []string{d.Name, fmt.Sprintf("%.2f ns/op", d.NsPerOp), fmt.Sprintf("%.2f ns/op", d.Baseline), change}
		if colour {
			table.Rich(row, []tablewriter.Colors{{}, {}, {}, changeColour})
		} else {
			table.Append(row)
		}
	}
	if table.NumLines() > 0 {
		heading(w, "Baseline")
		table.Render()
		fmt.Fprintln(w)
	}
	return regression
}

// changeCell formats a relative change and marks it when it is larger
// than threshold in either direction.
func changeCell(ratio, threshold float64) (string, tablewriter.Colors) {
	if math.Abs(ratio) < 0.0001 {
		ratio = 0
	}
	text := fmt.Sprintf("%+.2f%%", 100*ratio)
	switch {
	case ratio > threshold:
		return text + " regressed", tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiRedColor}
	case ratio < -threshold:
		return text + " improved", tablewriter.Colors{tablewriter.Bold, tablewriter.FgGreenColor}
	}
	return text, tablewriter.Colors{}
}
