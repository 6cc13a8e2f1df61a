package metrics

import "github.com/prometheus/client_golang/prometheus"

// GatewayMetrics exposes counters/histograms for the research gateway.
type GatewayMetrics struct {
	proxyRequests     *prometheus.CounterVec
	sentimentFallback *prometheus.CounterVec
	pollDuration      *prometheus.HistogramVec
	pollTicks         *prometheus.CounterVec
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		proxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "axwise",
			Subsystem: "proxy",
			Name:      "backend_requests_total",
			Help:      "Total requests forwarded to the analysis backend",
		}, []string{"route", "method", "status"}),
		sentimentFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "axwise",
			Subsystem: "analysis",
			Name:      "sentiment_fallback_total",
			Help:      "Times the heuristic sentiment classifier replaced backend results",
		}, []string{"reason"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "axwise",
			Subsystem: "simulation",
			Name:      "poll_duration_seconds",
			Help:      "Wall time from simulation start to terminal poll state",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
		pollTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "axwise",
			Subsystem: "simulation",
			Name:      "poll_ticks_total",
			Help:      "Individual progress poll attempts",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.proxyRequests, m.sentimentFallback, m.pollDuration, m.pollTicks)
	return m
}

func (m *GatewayMetrics) ObserveProxyRequest(route, method, status string) {
	if m == nil {
		return
	}
	m.proxyRequests.WithLabelValues(route, method, status).Inc()
}

func (m *GatewayMetrics) ObserveSentimentFallback(reason string) {
	if m == nil {
		return
	}
	m.sentimentFallback.WithLabelValues(reason).Inc()
}

func (m *GatewayMetrics) ObservePollDuration(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.pollDuration.WithLabelValues(outcome).Observe(seconds)
}

func (m *GatewayMetrics) ObservePollTick(result string) {
	if m == nil {
		return
	}
	m.pollTicks.WithLabelValues(result).Inc()
}
