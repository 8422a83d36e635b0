// Package report renders benchmark results for people and for tools.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/antoninbas/cmdbench/internal/bench"
	"github.com/antoninbas/cmdbench/internal/stats"
)

// shortRun is the duration below which process start-up noise dominates.
const shortRun = 5 * time.Millisecond

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", title)
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", len(title)))
}

// Table prints the comparison sorted by mean, fastest first.
func Table(w io.Writer, c *stats.ComparisonResult, colour bool) {
	heading(w, "Result")

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeader([]string{"Name", "Mean", "StdDev", "Min", "Max", "Ratio"})
	for i, e := range c.Entries {
		row := []string{
			e.Name,
			formatDuration(e.Stats.Mean),
			formatDuration(e.Stats.StdDev),
			formatDuration(e.Stats.Min),
			formatDuration(e.Stats.Max),
			formatRatio(e.Ratio),
		}
		if !colour {
			table.Append(row)
			continue
		}
		ratioColor := tablewriter.Colors{}
		if i == 0 {
			ratioColor = tablewriter.Colors{tablewriter.Bold, tablewriter.FgGreenColor}
		}
		table.Rich(row, []tablewriter.Colors{{tablewriter.Bold}, {}, {}, {}, {}, ratioColor})
	}
	table.Render()

	if len(c.Entries) > 1 {
		fmt.Fprintf(w, "\n'%s' ran fastest\n", c.Fastest().Name)
		for _, e := range c.Entries[1:] {
			fmt.Fprintf(w, "  %s times faster than '%s'\n", formatRatio(e.Ratio), e.Name)
		}
	}
}

// Failures lists the commands that produced no statistics, with the reason.
// It prints nothing when every command succeeded.
func Failures(w io.Writer, outcomes []*bench.Outcome) {
	var rows [][]string
	for _, o := range outcomes {
		if o.Fatal() {
			rows = append(rows, []string{o.Name, o.State.String(), o.Err.Error()})
		}
	}
	if len(rows) == 0 {
		return
	}
	heading(w, "Failures")

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Name", "State", "Reason"})
	table.AppendBulk(rows)
	table.Render()
}

// Warnings prints one line per questionable measurement.
func Warnings(w io.Writer, outcomes []*bench.Outcome) {
	for _, o := range outcomes {
		if o.Stats == nil {
			continue
		}
		st := o.Stats
		if st.Failures > 0 {
			fmt.Fprintf(w, "Warning: '%s' failed %d of %d timed runs (%.1f%%); failed runs are excluded from the statistics.\n",
				o.Name, st.Failures, st.Runs+st.Failures, 100*st.FailureRate())
		}
		if st.Outliers > 0 {
			fmt.Fprintf(w, "Warning: '%s' has %d statistical outliers. Consider re-running on a quiet system or with more warmup runs.\n",
				o.Name, st.Outliers)
		}
		if st.Min < shortRun {
			fmt.Fprintf(w, "Warning: '%s' took less than %s; results might be inaccurate.\n", o.Name, shortRun)
		}
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.3f s", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.2f ms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.1f µs", float64(d)/float64(time.Microsecond))
}

func formatRatio(r float64) string {
	if math.IsInf(r, 0) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", r)
}
