package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ssbdragonalt/Estimify/internal/llm"
	"github.com/ssbdragonalt/Estimify/internal/problemgen"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	FailedAttempts *prometheus.CounterVec
	Generations    *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	LLMLatency     *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the instruments with reg. A nil reg uses the
// default registry.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	f := promauto.With(reg)

	return &Metrics{
		FailedAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failed_attempts_total",
			Help:      "Failed question generation attempts by error kind.",
		}, []string{"kind"}),
		Generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Question generation requests by outcome.",
		}, []string{"outcome"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		LLMLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Model request latency by purpose and outcome.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"purpose", "outcome"}),
		gatherer: gatherer,
	}
}

// Observe implements problemgen.Observer.
func (m *Metrics) Observe(e problemgen.Event) {
	switch e.To {
	case problemgen.StateRetrying:
		m.FailedAttempts.WithLabelValues(string(problemgen.KindOf(e.Err))).Inc()
	case problemgen.StateDone:
		m.Generations.WithLabelValues("success").Inc()
	case problemgen.StateFailed:
		if errors.Is(e.Err, problemgen.ErrMaxRetriesExceeded) {
			var mre *problemgen.MaxRetriesError
			if errors.As(e.Err, &mre) {
				m.FailedAttempts.WithLabelValues(string(problemgen.KindOf(mre.Last))).Inc()
			}
			m.Generations.WithLabelValues("max_retries").Inc()
		} else {
			m.Generations.WithLabelValues("fatal").Inc()
		}
	}
}

// Middleware counts requests by matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
	})
}

// Handler serves the registry the metrics were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// InstrumentProvider records latency of every request made through p.
func (m *Metrics) InstrumentProvider(p llm.Provider) llm.Provider {
	return &instrumentedProvider{inner: p, latency: m.LLMLatency}
}

type instrumentedProvider struct {
	inner   llm.Provider
	latency *prometheus.HistogramVec
}

func (p *instrumentedProvider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	start := time.Now()
	resp, err := p.inner.Generate(ctx, req)

	purpose := llm.PurposeFrom(ctx)
	if purpose == "" {
		purpose = "unknown"
	}
	p.latency.WithLabelValues(purpose, outcome(err)).Observe(time.Since(start).Seconds())
	return resp, err
}

func (p *instrumentedProvider) ModelID() string {
	return p.inner.ModelID()
}

func outcome(err error) string {
	var (
		rl      *llm.ErrRateLimit
		unavail *llm.ErrProviderUnavailable
		invalid *llm.ErrInvalidResponse
		maxTok  *llm.ErrMaxTokensExceeded
		cfgErr  *llm.ErrConfiguration
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &rl):
		return "rate_limited"
	case errors.As(err, &unavail):
		return "unavailable"
	case errors.As(err, &invalid):
		return "invalid_response"
	case errors.As(err, &maxTok):
		return "truncated"
	case errors.As(err, &cfgErr):
		return "misconfigured"
	default:
		return "error"
	}
}
