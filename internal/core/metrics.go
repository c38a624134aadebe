package core

import (
	"github.com/hashicorp/go-metrics"
)

// Metric keys emitted by the reduction drivers. The core itself stays off
// the telemetry hot path; drivers flush per-run aggregates.
var (
	MetricRewriteCount = []string{"hvmx", "rewrite", "count"}
	MetricRedexPending = []string{"hvmx", "redex", "pending"}
	MetricArenaUsed    = []string{"hvmx", "arena", "used", "words"}
	MetricArenaCap     = []string{"hvmx", "arena", "capacity", "words"}
	MetricDerefMiss    = []string{"hvmx", "deref", "miss", "count"}
	MetricBookReloads  = []string{"hvmx", "book", "reload", "count"}
)

// TelemetryLabel is a metric label key.
type TelemetryLabel string

const (
	LabelRule    TelemetryLabel = "rule"
	LabelBackend TelemetryLabel = "backend"
	LabelRun     TelemetryLabel = "run_id"
)

// M builds a go-metrics label from the key.
func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}
