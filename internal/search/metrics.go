package search

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Trial outcome label values.
const (
	OutcomeScored   = "scored"
	OutcomeUnscored = "unscored"
)

// Metrics exposes search progress as Prometheus collectors. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Trials          *prometheus.CounterVec
	FoldEvaluations prometheus.Counter
	BestAccuracy    prometheus.Gauge
}

// NewMetrics registers the search collectors on reg. A nil registerer
// disables metrics and returns nil. Registering twice on the same
// registerer reuses the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	trials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rssi_search_trials_total",
		Help: "Bandwidth configurations evaluated, by outcome.",
	}, []string{"outcome"})
	trials, err := registerCounterVec(reg, trials, "rssi_search_trials_total")
	if err != nil {
		return nil, err
	}

	folds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rssi_search_fold_evaluations_total",
		Help: "Single-fold fit and score evaluations completed.",
	})
	folds, err = registerCounter(reg, folds, "rssi_search_fold_evaluations_total")
	if err != nil {
		return nil, err
	}

	best := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rssi_search_best_accuracy",
		Help: "Mean cross-validated accuracy of the best configuration of the last search.",
	})
	best, err = registerGauge(reg, best, "rssi_search_best_accuracy")
	if err != nil {
		return nil, err
	}

	return &Metrics{Trials: trials, FoldEvaluations: folds, BestAccuracy: best}, nil
}

func (m *Metrics) observeFold() {
	if m == nil {
		return
	}
	m.FoldEvaluations.Inc()
}

func (m *Metrics) observeTrial(scored bool) {
	if m == nil {
		return
	}
	outcome := OutcomeScored
	if !scored {
		outcome = OutcomeUnscored
	}
	m.Trials.WithLabelValues(outcome).Inc()
}

func (m *Metrics) setBest(acc float64) {
	if m == nil {
		return
	}
	m.BestAccuracy.Set(acc)
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return g, nil
}
