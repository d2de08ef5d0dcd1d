// Package metrics holds Prometheus instruments that are used across the
// backend.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveTenantPools = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_tenant_pools",
			Help: "Number of per-schema connection pools currently cached.",
		})

	TenantPoolOpenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_pool_open_total",
			Help: "Cumulative number of per-schema pools opened.",
		})

	TenantPoolOpenErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_pool_open_errors_total",
			Help: "Cumulative number of per-schema pool open errors.",
		})

	TenantPoolEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_pool_evict_total",
			Help: "Cumulative number of per-schema pools evicted from the cache.",
		})

	ProvisionTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admission_provision_total",
			Help: "Cumulative number of admission cycles provisioned.",
		})

	ProvisionFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admission_provision_failures_total",
			Help: "Cumulative number of failed admission provisioning runs.",
		})
)

func init() {
	prometheus.MustRegister(
		ActiveTenantPools,
		TenantPoolOpenTotal,
		TenantPoolOpenErrorsTotal,
		TenantPoolEvictTotal,
		ProvisionTotal,
		ProvisionFailuresTotal,
	)
}
