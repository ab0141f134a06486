// Package metrics provides Prometheus instrumentation for the moderation
// pipeline: request outcomes, oracle latency, enforcement results and audit
// writes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_requests_total",
	Help: "Moderation requests handled, by outcome",
}, []string{"outcome"})

var oracleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "modbot_oracle_duration_seconds",
	Help:    "Duration of classification oracle calls",
	Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 30},
})

var verdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_verdicts_total",
	Help: "Parsed verdicts, by label",
}, []string{"label"})

var enforcementTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_enforcement_actions_total",
	Help: "Enforcement sub-actions attempted, by action and result",
}, []string{"action", "result"})

var auditWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_audit_writes_total",
	Help: "Audit records written, by mode and result",
}, []string{"mode", "result"})

var verdictCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_verdict_cache_lookups_total",
	Help: "Verdict cache lookups, by result",
}, []string{"result"})

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func ObserveRequest(outcome string) {
	requestsTotal.WithLabelValues(outcome).Inc()
}

func ObserveOracle(seconds float64) {
	oracleDuration.Observe(seconds)
}

func ObserveVerdict(label string) {
	verdictsTotal.WithLabelValues(label).Inc()
}

func ObserveEnforcement(action string, ok bool) {
	enforcementTotal.WithLabelValues(action, result(ok)).Inc()
}

func ObserveAudit(mode string, ok bool) {
	auditWritesTotal.WithLabelValues(mode, result(ok)).Inc()
}

func ObserveCache(hit bool) {
	if hit {
		verdictCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	verdictCacheTotal.WithLabelValues("miss").Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
