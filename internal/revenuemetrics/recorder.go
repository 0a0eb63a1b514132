package revenuemetrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts signed wills and the revenue they generate, in minor units,
// on a registry of its own so the set can be pushed independently of /metrics.
type Recorder struct {
	registry        *prometheus.Registry
	signedWills     *prometheus.CounterVec
	brokerRevenue   *prometheus.CounterVec
	platformRevenue *prometheus.CounterVec
}

func New() *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{
		registry: registry,
		signedWills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mywill_signed_wills_total",
			Help: "Wills that completed attestation.",
		}, []string{"tenant_id", "will_type"}),
		brokerRevenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mywill_broker_revenue_minor_total",
			Help: "Broker share of signed will revenue in minor currency units.",
		}, []string{"tenant_id", "currency"}),
		platformRevenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mywill_platform_revenue_minor_total",
			Help: "Platform share of signed will revenue in minor currency units.",
		}, []string{"tenant_id", "currency"}),
	}
	registry.MustRegister(r.signedWills, r.brokerRevenue, r.platformRevenue)
	return r
}

// Gatherer exposes the recorder's registry for scraping and pushing.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

func (r *Recorder) RecordSignedWill(tenantID, willType, currency string, brokerShare, platformShare int64) {
	if r == nil {
		return
	}
	tenantID = normalizeLabel(tenantID)
	currency = normalizeLabel(currency)
	r.signedWills.WithLabelValues(tenantID, normalizeLabel(willType)).Inc()
	if brokerShare > 0 {
		r.brokerRevenue.WithLabelValues(tenantID, currency).Add(float64(brokerShare))
	}
	if platformShare > 0 {
		r.platformRevenue.WithLabelValues(tenantID, currency).Add(float64(platformShare))
	}
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
