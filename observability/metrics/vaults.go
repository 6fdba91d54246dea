package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// VaultMetrics records engine evaluations served by vaultd and vaultctl.
type VaultMetrics struct {
	evaluations   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	riskLevels    *prometheus.CounterVec
	validation    *prometheus.CounterVec
	chainReads    *prometheus.CounterVec
	debtCeilingUt *prometheus.GaugeVec
}

var (
	vaultsOnce     sync.Once
	vaultsRegistry *VaultMetrics
)

// Vaults returns the metrics registered on the prometheus default registry.
func Vaults() *VaultMetrics {
	vaultsOnce.Do(func() {
		vaultsRegistry = NewVaultMetrics(prometheus.DefaultRegisterer)
	})
	return vaultsRegistry
}

// NewVaultMetrics creates the collectors and registers them on reg.
func NewVaultMetrics(reg prometheus.Registerer) *VaultMetrics {
	m := &VaultMetrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaultrisk",
			Subsystem: "engine",
			Name:      "evaluations_total",
			Help:      "Count of engine evaluations segmented by operation.",
		}, []string{"operation"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vaultrisk",
			Subsystem: "engine",
			Name:      "evaluation_duration_seconds",
			Help:      "Latency distribution of engine evaluations.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"operation"}),
		riskLevels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaultrisk",
			Subsystem: "engine",
			Name:      "risk_level_total",
			Help:      "Count of vault evaluations by resulting risk level.",
		}, []string{"level"}),
		validation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaultrisk",
			Subsystem: "engine",
			Name:      "validation_failures_total",
			Help:      "Count of simulated positions rejected by validation code.",
		}, []string{"code"}),
		chainReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaultrisk",
			Subsystem: "chain",
			Name:      "reads_total",
			Help:      "Count of on-chain reads segmented by call and outcome.",
		}, []string{"call", "outcome"}),
		debtCeilingUt: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vaultrisk",
			Subsystem: "chain",
			Name:      "debt_ceiling_utilization",
			Help:      "Last observed debt ceiling utilization per ilk.",
		}, []string{"ilk"}),
	}
	if reg != nil {
		reg.MustRegister(m.evaluations, m.latency, m.riskLevels, m.validation, m.chainReads, m.debtCeilingUt)
	}
	return m
}

// ObserveEvaluation records one engine call and how long it took.
func (m *VaultMetrics) ObserveEvaluation(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	op := normalize(operation)
	m.evaluations.WithLabelValues(op).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordRiskLevel counts a vault that evaluated to level.
func (m *VaultMetrics) RecordRiskLevel(level string) {
	if m == nil {
		return
	}
	m.riskLevels.WithLabelValues(normalize(level)).Inc()
}

// RecordValidationFailure counts a rejected simulation.
func (m *VaultMetrics) RecordValidationFailure(code string) {
	if m == nil {
		return
	}
	m.validation.WithLabelValues(normalize(code)).Inc()
}

// RecordChainRead counts an RPC read and whether it succeeded.
func (m *VaultMetrics) RecordChainRead(call string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.chainReads.WithLabelValues(normalize(call), outcome).Inc()
}

// SetDebtCeilingUtilization stores the latest utilization for ilk.
func (m *VaultMetrics) SetDebtCeilingUtilization(ilk string, value float64) {
	if m == nil {
		return
	}
	m.debtCeilingUt.WithLabelValues(strings.TrimSpace(ilk)).Set(value)
}

func normalize(label string) string {
	trimmed := strings.ToLower(strings.TrimSpace(label))
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
