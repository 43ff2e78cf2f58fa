// Package metrics runs the Prometheus-compatible metrics endpoint shared by
// the fedshard service binaries.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

// MetricsServer serves the process metrics set on a dedicated address,
// separate from the service API so scrapes never compete with share
// traffic.
type MetricsServer struct {
	namespace string
	srv       *http.Server
}

// New creates a metrics server for the given namespace. An empty addr
// produces a server that never listens; counters still accumulate.
func New(namespace, addr string) (*MetricsServer, error) {
	if namespace == "" {
		return nil, fmt.Errorf("metrics namespace cannot be empty")
	}

	m := &MetricsServer{namespace: namespace}
	if addr == "" {
		return m, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	m.srv = &http.Server{Addr: addr, Handler: mux}
	return m, nil
}

// ListenAndServe serves the metrics endpoint until Shutdown. Returns
// immediately when no address was configured.
func (m *MetricsServer) ListenAndServe() error {
	if m.srv == nil {
		return nil
	}
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}

// Counter returns the named counter in this server's namespace, creating
// it on first use.
func (m *MetricsServer) Counter(name string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf("%s_%s", m.namespace, name))
}

// RequestCounter returns the counter tracking requests to the given route.
func (m *MetricsServer) RequestCounter(route string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`%s_http_requests_total{route=%q}`, m.namespace, route))
}
