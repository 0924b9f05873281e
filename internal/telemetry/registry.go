package telemetry

import "github.com/prometheus/client_golang/prometheus"

// NewMetricsRegistry builds a fresh Prometheus registry carrying the Go
// runtime/process collectors plus every OpenIntent metric and any extra
// collectors the caller supplies.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	for _, c := range All() {
		reg.MustRegister(c)
	}
	for _, c := range extra {
		reg.MustRegister(c)
	}

	return reg
}
