// Package metrics holds process level Prometheus metrics and the scrape handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics describes the running process and its dependencies.
type Metrics struct {
	BuildInfo    *prometheus.GaugeVec
	DependencyUp *prometheus.GaugeVec
	StoreBackend *prometheus.GaugeVec
}

// New registers the process metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BuildInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "xs2acms_build_info",
			Help: "Constant 1, labelled with the running version and environment",
		}, []string{"version", "environment"}),
		DependencyUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "xs2acms_dependency_up",
			Help: "1 when the last readiness check of the dependency passed",
		}, []string{"dependency"}),
		StoreBackend: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "xs2acms_store_backend",
			Help: "Constant 1 for the storage backend selected per entity",
		}, []string{"entity", "backend"}),
	}
}

func (m *Metrics) SetBuildInfo(version, environment string) {
	m.BuildInfo.WithLabelValues(version, environment).Set(1)
}

func (m *Metrics) SetDependencyUp(dependency string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.DependencyUp.WithLabelValues(dependency).Set(v)
}

func (m *Metrics) SetStoreBackend(entity, backend string) {
	m.StoreBackend.WithLabelValues(entity, backend).Set(1)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
