package report

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/antoninbas/cmdbench/internal/bench"
)

// WritePrometheus writes the results in the Prometheus text format, for the
// node exporter textfile collector.
func WritePrometheus(path string, meta Metadata, result *bench.Result) error {
	reg := prometheus.NewRegistry()
	command := []string{"command"}
	gauge := func(name, help string) *prometheus.GaugeVec {
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cmdbench",
			Name:      name,
			Help:      help,
		}, command)
		reg.MustRegister(g)
		return g
	}
	mean := gauge("mean_seconds", "Mean wall-clock time of successful runs.")
	stddev := gauge("stddev_seconds", "Population standard deviation of successful runs.")
	median := gauge("median_seconds", "Median wall-clock time of successful runs.")
	minimum := gauge("min_seconds", "Fastest successful run.")
	maximum := gauge("max_seconds", "Slowest successful run.")
	ratio := gauge("ratio", "Mean divided by the fastest command's mean.")
	runs := gauge("runs", "Successful timed runs.")
	failed := gauge("failed_runs", "Timed runs that failed or timed out.")
	outliers := gauge("outliers", "Successful runs beyond the outlier threshold.")

	fatal := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cmdbench",
		Name:      "fatal_failures",
		Help:      "Commands that produced no statistics.",
	})
	info := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cmdbench",
		Name:      "run_info",
		Help:      "Identifies the benchmark run.",
	}, []string{"run_id", "version", "revision"})
	reg.MustRegister(fatal, info)

	info.WithLabelValues(meta.RunID, meta.Version, meta.Revision).Set(1)
	fatal.Set(float64(result.FatalCount()))
	if result.Comparison != nil {
		for _, e := range result.Comparison.Entries {
			st := e.Stats
			mean.WithLabelValues(e.Name).Set(st.Mean.Seconds())
			stddev.WithLabelValues(e.Name).Set(st.StdDev.Seconds())
			median.WithLabelValues(e.Name).Set(st.Median.Seconds())
			minimum.WithLabelValues(e.Name).Set(st.Min.Seconds())
			maximum.WithLabelValues(e.Name).Set(st.Max.Seconds())
			ratio.WithLabelValues(e.Name).Set(e.Ratio)
			runs.WithLabelValues(e.Name).Set(float64(st.Runs))
			failed.WithLabelValues(e.Name).Set(float64(st.Failures))
			outliers.WithLabelValues(e.Name).Set(float64(st.Outliers))
		}
	}
	return prometheus.WriteToTextfile(path, reg)
}
