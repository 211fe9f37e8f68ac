package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "bookletpress"

// Registry holds the collectors of one batch run. It is separate from the
// default registry so exports carry only booklet metrics.
var Registry = prometheus.NewRegistry()

var (
	pagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages in the final booklet by result (printed, failed)",
		},
		[]string{"result"},
	)

	spreadsSplit = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spreads_split_total",
			Help:      "Double-page scans split into two pages",
		},
	)

	blankPages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blank_pages_total",
			Help:      "Blank pages inserted by position (head, tail)",
		},
		[]string{"where"},
	)

	pagesRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_removed_total",
			Help:      "Pages dropped from the end to reach a multiple of four",
		},
	)

	pagesTrimmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_trimmed_total",
			Help:      "Pages cropped to the common height",
		},
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Runs by result (success, config_error, naming_error, binding_error, error)",
		},
		[]string{"result"},
	)

	initOnce sync.Once
)

// Init registers collectors.
func Init() {
	initOnce.Do(func() {
		Registry.MustRegister(pagesTotal, spreadsSplit, blankPages, pagesRemoved, pagesTrimmed, stageDuration, runsTotal)
	})
}

func AddPages(result string, n int) { pagesTotal.WithLabelValues(result).Add(float64(n)) }
func AddSpreads(n int)              { spreadsSplit.Add(float64(n)) }
func AddBlanks(where string, n int) { blankPages.WithLabelValues(where).Add(float64(n)) }
func AddRemoved(n int)              { pagesRemoved.Add(float64(n)) }
func AddTrimmed(n int)              { pagesTrimmed.Add(float64(n)) }
func IncRun(result string)          { runsTotal.WithLabelValues(result).Inc() }

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Push sends the registry to a Prometheus pushgateway, grouped by run id.
func Push(ctx context.Context, url, job, runID string) error {
	p := push.New(url, job).Gatherer(Registry)
	if runID != "" {
		p = p.Grouping("run", runID)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
