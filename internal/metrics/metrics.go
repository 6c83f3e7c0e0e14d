// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pair outcome labels for PairsEvaluated.
const (
	OutcomeAccepted     = "accepted"
	OutcomeRejected     = "rejected"
	OutcomeInsufficient = "insufficient_data"
	OutcomeDegenerate   = "degenerate"
	OutcomeFailed       = "failed"
)

// ============ Scanner ============

// PairsEvaluated counts scanned pairs by outcome
var PairsEvaluated = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pairlab",
		Subsystem: "scanner",
		Name:      "pairs_evaluated_total",
		Help:      "Pairs evaluated by the cointegration scanner, by outcome",
	},
	[]string{"outcome"},
)

// ScanDuration - wall time of one full scan
var ScanDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "pairlab",
		Subsystem: "scanner",
		Name:      "scan_duration_seconds",
		Help:      "Duration of a full pair scan in seconds",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	},
)

// ============ Backtest ============

// TradesClosed counts closed round trips by direction
var TradesClosed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pairlab",
		Subsystem: "backtest",
		Name:      "trades_closed_total",
		Help:      "Round trips closed by the backtest engine, by direction",
	},
	[]string{"direction"},
)

// ============ Pipeline ============

// PipelineRuns counts research pipeline runs by outcome
var PipelineRuns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "pairlab",
		Subsystem: "research",
		Name:      "pipeline_runs_total",
		Help:      "Research pipeline runs, by outcome",
	},
	[]string{"outcome"},
)

// PipelineDuration - wall time of one pipeline run
var PipelineDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "pairlab",
		Subsystem: "research",
		Name:      "pipeline_duration_seconds",
		Help:      "Duration of a research pipeline run in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	},
)

// LastReturnPct - return of the most recent completed backtest
var LastReturnPct = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "pairlab",
		Subsystem: "research",
		Name:      "last_return_percent",
		Help:      "Return in percent of the most recent completed backtest",
	},
)
