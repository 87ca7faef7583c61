package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
)

var (
	httpBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

	// Remote installs and image pulls run for minutes, so the deployment
	// buckets stretch far past the HTTP ones.
	stepBuckets   = []float64{1, 5, 15, 30, 60, 120, 300, 600}
	deployBuckets = []float64{5, 15, 30, 60, 120, 300, 600, 900}
)

// stepMark remembers when a deployment entered its current step.
type stepMark struct {
	step domain.DeploymentStep
	at   time.Time
}

// Metrics records HTTP and deployment metrics. It satisfies
// workers.Observer so the deploy runner can report outcomes.
type Metrics struct {
	once        sync.Once
	initialized bool

	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	deployTotal    *prometheus.CounterVec
	deployDuration *prometheus.HistogramVec
	stepDuration   *prometheus.HistogramVec

	mu    sync.Mutex
	steps map[string]stepMark
}

// NewMetrics creates and registers the metric set. Collectors already
// registered by an earlier instance are adopted instead of duplicated.
func NewMetrics() *Metrics {
	m := &Metrics{steps: make(map[string]stepMark)}
	m.init()
	return m
}

func (m *Metrics) init() {
	m.once.Do(func() {
		m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clara",
			Subsystem: "deployd",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"})

		m.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clara",
			Subsystem: "deployd",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   httpBuckets,
		}, []string{"method", "route", "status"})

		m.deployTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clara",
			Subsystem: "deployd",
			Name:      "deployments_total",
			Help:      "Resolved deployments by outcome and detected accelerator",
		}, []string{"outcome", "accelerator"})

		m.deployDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clara",
			Subsystem: "deployd",
			Name:      "deployment_duration_seconds",
			Help:      "Whole state machine run time by outcome",
			Buckets:   deployBuckets,
		}, []string{"outcome"})

		m.stepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clara",
			Subsystem: "deployd",
			Name:      "deployment_step_duration_seconds",
			Help:      "Time spent in each deployment step",
			Buckets:   stepBuckets,
		}, []string{"step"})

		collectors := []prometheus.Collector{
			m.requestTotal, m.requestLatency, m.deployTotal, m.deployDuration, m.stepDuration,
		}
		for _, collector := range collectors {
			if err := prometheus.Register(collector); err != nil {
				if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
					switch v := are.ExistingCollector.(type) {
					case *prometheus.CounterVec:
						if collector == m.requestTotal {
							m.requestTotal = v
						} else if collector == m.deployTotal {
							m.deployTotal = v
						}
					case *prometheus.HistogramVec:
						if collector == m.requestLatency {
							m.requestLatency = v
						} else if collector == m.deployDuration {
							m.deployDuration = v
						} else if collector == m.stepDuration {
							m.stepDuration = v
						}
					}
				}
			}
		}
		m.initialized = true
	})
}

// Middleware records request count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		m.recordRequest(r.Method, route, ww.Status(), time.Since(start))
	})
}

func (m *Metrics) recordRequest(method, route string, status int, duration time.Duration) {
	if !m.initialized {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	m.requestTotal.With(labels).Inc()
	m.requestLatency.With(labels).Observe(duration.Seconds())
}

// ObserveDeployment records one resolved deployment. Satisfies
// workers.Observer.
func (m *Metrics) ObserveDeployment(result domain.DeploymentResult) {
	if !m.initialized {
		return
	}

	outcome := "failure"
	if result.Success {
		outcome = "success"
	}
	accelerator := "unknown"
	if result.Profile != nil {
		accelerator = string(result.Profile.Accelerator)
	}

	m.deployTotal.With(prometheus.Labels{"outcome": outcome, "accelerator": accelerator}).Inc()
	if !result.FinishedAt.Before(result.StartedAt) {
		m.deployDuration.With(prometheus.Labels{"outcome": outcome}).
			Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
	}
}

// ObserveEvent tracks step transitions from the progress stream. The gap
// between the first event of one step and the first event of the next is
// that step's duration. Terminal steps end the tracking for their
// deployment.
func (m *Metrics) ObserveEvent(ev domain.LogEvent) {
	if !m.initialized || ev.Step == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.steps[ev.DeploymentID]
	if ok && prev.step == ev.Step {
		return
	}
	if ok && ev.Timestamp.After(prev.at) {
		m.stepDuration.With(prometheus.Labels{"step": string(prev.step)}).
			Observe(ev.Timestamp.Sub(prev.at).Seconds())
	}

	if ev.Step.IsTerminal() {
		delete(m.steps, ev.DeploymentID)
		return
	}
	m.steps[ev.DeploymentID] = stepMark{step: ev.Step, at: ev.Timestamp}
}
