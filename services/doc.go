// Package services provides HTTP-based deployments of the fedshard roles.
//
// It wraps the core role implementations (client, server, aggregator) with
// chi routers and JSON message envelopes so they can run as independent
// processes:
//
//   - HTTPShareServer wraps server.Server: accepts signed shares from
//     clients and serves stored shares back to the aggregator.
//   - HTTPAggregator wraps aggregator.Aggregator: fetches share quorums
//     from the servers over HTTP, reconstructs, and exposes round results
//     and telemetry.
//   - HTTPClient wraps client.Client: fans a sharing event out to the n
//     servers concurrently.
//   - HTTPRegistry is a minimal discovery and configuration service: it
//     maps server ids and the aggregator to their endpoints and serves
//     the shared round parameters.
//   - Orchestrator deploys a full in-process network (used by the demo and
//     the end-to-end tests).
//   - RoundArchive persists round results to PostgreSQL.
//
// All cross-role messages are Ed25519-signed protocol envelopes; the
// arithmetic core never appears on the wire unauthenticated.
package services
