// Package cmd provides the CLI commands for fedshard services.
//
// # Commands
//
// registry: Central configuration distribution and service discovery.
// Holds the round parameters every participant must share.
//
//	go run ./cmd/registry --addr=:7999 --t=3 --n=5 --dimension=1000
//
// server: A share server, identified by its evaluation point in [1, n].
// Verifies incoming shares against commitments and serves them to the
// aggregator.
//
//	go run ./cmd/server --registry=http://localhost:7999 --id=1 --addr=:8081
//
// aggregator: Collects share quorums, reconstructs round updates, and
// serves results plus privacy telemetry. Optionally archives rounds to
// postgres.
//
//	go run ./cmd/aggregator --registry=http://localhost:7999 --addr=:8091
//
// client: Submits noised, quantized, secret-shared synthetic updates once
// per round.
//
//	go run ./cmd/client --registry=http://localhost:7999 --rounds=10
//
// demo: Runs the whole network in one process and drives a few rounds.
//
//	go run ./cmd/demo --clients=4 --rounds=3
//
// # Configuration
//
// The service commands support YAML configuration files via the --config
// flag. Command-line flags override config file values:
//
//	http_addr: ":8081"
//	metrics_addr: ":9090"
//	registry_url: "http://localhost:7999"
//	server:
//	  id: 1
//	  public_endpoint: "http://server-1.internal:8081"
//	aggregator:
//	  database_dsn: "host=localhost user=fedshard dbname=rounds"
//	client:
//	  sensitivity: 25.0
package cmd
