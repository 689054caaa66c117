// Package metrics exposes pipeline counters and timings to prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"degpredict/domain/deg"
	"degpredict/domain/prediction"
)

const namespace = "degpredict"

// Recorder holds the pipeline collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	stageDuration  *prometheus.HistogramVec
	featuresScored prometheus.Counter
	degenerate     prometheus.Counter
	regulation     *prometheus.CounterVec
	predictions    *prometheus.CounterVec
	runs           *prometheus.CounterVec
	artifactErrors *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		featuresScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_scored_total",
			Help:      "Features tested for differential expression.",
		}),
		degenerate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_degenerate_total",
			Help:      "Features whose t-test was undefined (p forced to 1).",
		}),
		regulation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_regulation_total",
			Help:      "Features by regulation label.",
		}, []string{"regulation"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions by confidence tier.",
		}, []string{"confidence"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		artifactErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_write_errors_total",
			Help:      "Failed artifact writes by artifact.",
		}, []string{"artifact"}),
	}
	for _, c := range []prometheus.Collector{
		r.stageDuration, r.featuresScored, r.degenerate, r.regulation, r.predictions, r.runs, r.artifactErrors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordDEG counts scored features and their labels.
func (r *Recorder) RecordDEG(s deg.Summary) {
	if r == nil {
		return
	}
	r.featuresScored.Add(float64(s.Total))
	r.degenerate.Add(float64(s.Degenerate))
	r.regulation.WithLabelValues(string(deg.Upregulated)).Add(float64(s.Upregulated))
	r.regulation.WithLabelValues(string(deg.Downregulated)).Add(float64(s.Downregulated))
	r.regulation.WithLabelValues(string(deg.NotSignificant)).Add(float64(s.NotSignificant))
}

// RecordPredictions counts records by confidence.
func (r *Recorder) RecordPredictions(records []prediction.Record) {
	if r == nil {
		return
	}
	for _, rec := range records {
		r.predictions.WithLabelValues(string(rec.Confidence)).Inc()
	}
}

// RecordRun counts a finished run; outcome is "success" or "failure".
func (r *Recorder) RecordRun(outcome string) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome).Inc()
}

// RecordArtifactError counts a failed artifact write.
func (r *Recorder) RecordArtifactError(artifact string) {
	if r == nil {
		return
	}
	r.artifactErrors.WithLabelValues(artifact).Inc()
}
