package telemetry

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// SeriesSummary describes the distribution of one sampled series.
type SeriesSummary struct {
	Mean  float64 `json:"mean"`
	Stdev float64 `json:"stdev"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
}

// MetricsSummary aggregates recent resource samples for one device.
type MetricsSummary struct {
	Samples  int            `json:"samples"`
	From     time.Time      `json:"from,omitempty"`
	To       time.Time      `json:"to,omitempty"`
	CPU      *SeriesSummary `json:"cpu_percent,omitempty"`
	MemoryMB *SeriesSummary `json:"memory_used_mb,omitempty"`
	DiskGB   *SeriesSummary `json:"disk_used_gb,omitempty"`
}

// Summarize computes distribution summaries over the given samples. Sample
// order does not matter. An empty slice yields a summary with zero samples
// and no series.
func Summarize(samples []*Metric) MetricsSummary {
	out := MetricsSummary{Samples: len(samples)}
	if len(samples) == 0 {
		return out
	}

	cpu := make([]float64, len(samples))
	mem := make([]float64, len(samples))
	disk := make([]float64, len(samples))
	out.From = samples[0].RecordedAt
	out.To = samples[0].RecordedAt

	for i, m := range samples {
		cpu[i] = m.CPUPercent
		mem[i] = m.MemoryUsedMB
		disk[i] = m.DiskUsedGB
		if m.RecordedAt.Before(out.From) {
			out.From = m.RecordedAt
		}
		if m.RecordedAt.After(out.To) {
			out.To = m.RecordedAt
		}
	}

	out.CPU = summarizeSeries(cpu)
	out.MemoryMB = summarizeSeries(mem)
	out.DiskGB = summarizeSeries(disk)
	return out
}

func summarizeSeries(values []float64) *SeriesSummary {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	s := &SeriesSummary{
		Mean: stat.Mean(values, nil),
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		P50:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
	if len(values) > 1 {
		s.Stdev = math.Sqrt(stat.Variance(values, nil))
	}
	return s
}
