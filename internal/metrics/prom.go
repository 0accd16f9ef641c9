// Package metrics exports reconciliation run statistics to Prometheus.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/DeliverySync/internal/core"
)

// Outcome label values for deliverysync_runs_total.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// Recorder implements core.Recorder on Prometheus collectors.
type Recorder struct {
	runs          *prometheus.CounterVec
	records       *prometheus.CounterVec
	issues        *prometheus.CounterVec
	notifications prometheus.Counter
	duration      *prometheus.HistogramVec
	gatherer      prometheus.Gatherer
}

// NewRecorder registers the run metrics on reg. A nil reg uses the default
// registry. Collectors that are already registered are reused.
func NewRecorder(reg *prometheus.Registry) (*Recorder, error) {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deliverysync_runs_total",
		Help: "Reconciliation runs by outcome",
	}, []string{"outcome", "dry_run"})
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deliverysync_records_total",
		Help: "Records classified by reconciliation",
	}, []string{"class"})
	issues := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deliverysync_issues_total",
		Help: "Isolated failures recorded during runs",
	}, []string{"kind"})
	notifications := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deliverysync_notifications_sent_total",
		Help: "Notifications delivered to customers",
	})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deliverysync_run_duration_seconds",
		Help:    "Wall time of a reconciliation run",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	var err error
	if runs, err = register(registerer, runs); err != nil {
		return nil, err
	}
	if records, err = register(registerer, records); err != nil {
		return nil, err
	}
	if issues, err = register(registerer, issues); err != nil {
		return nil, err
	}
	if notifications, err = register(registerer, notifications); err != nil {
		return nil, err
	}
	if duration, err = register(registerer, duration); err != nil {
		return nil, err
	}

	return &Recorder{
		runs:          runs,
		records:       records,
		issues:        issues,
		notifications: notifications,
		duration:      duration,
		gatherer:      gatherer,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveRun records one finished run.
func (r *Recorder) ObserveRun(report *core.Report, err error) {
	outcome := Outcome(err)
	dry := "false"
	if report != nil && report.DryRun {
		dry = "true"
	}
	r.runs.WithLabelValues(outcome, dry).Inc()

	if report == nil {
		return
	}
	r.duration.WithLabelValues(outcome).Observe(report.Duration.Seconds())
	r.records.WithLabelValues("new").Add(float64(report.New))
	r.records.WithLabelValues("updated").Add(float64(report.Updated))
	r.records.WithLabelValues("unchanged").Add(float64(report.Unchanged))
	r.records.WithLabelValues("duplicate").Add(float64(report.Duplicates))
	for _, issue := range report.Issues {
		r.issues.WithLabelValues(string(issue.Kind)).Inc()
	}
	r.notifications.Add(float64(report.NotificationsSent))
}

// Outcome maps a Process error to a run outcome label.
func Outcome(err error) string {
	var pe *core.PersistError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &pe):
		return OutcomePartial
	default:
		return OutcomeFailed
	}
}

// Handler serves the registry the recorder was registered on.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
