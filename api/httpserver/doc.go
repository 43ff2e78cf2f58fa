// Package httpserver provides the shared HTTP server shell for the
// fedshard service binaries, plus the read-only results API served by the
// aggregator.
//
// BaseServer wraps a chi router with the lifecycle every binary needs:
//
//  1. Initialization: configure HTTP settings and mount route registrars
//  2. Startup: run the API and metrics servers in background goroutines
//  3. Readiness control: drain/undrain for load balancers
//  4. Graceful shutdown: wait for in-flight requests to complete
//
// Every server built on BaseServer serves /livez, /readyz, /drain and
// /undrain, optional pprof under /debug, and a Prometheus-compatible
// metrics endpoint on a separate address.
//
// ResultsHandler exposes reconstructed rounds and their privacy telemetry
// (per-client epsilons and noise sigmas) to downstream consumers. It reads
// from any ResultSource; the aggregator's in-memory store and the postgres
// round archive both qualify.
//
// Usage:
//
//	handler := httpserver.NewResultsHandler(source, nil)
//	srv, err := httpserver.New(cfg, aggregatorService, handler)
//	if err != nil {
//		return err
//	}
//	srv.RunInBackground()
//	defer srv.Shutdown()
package httpserver
