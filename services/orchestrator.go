package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/privfl/fedshard/aggregator"
	"github.com/privfl/fedshard/dp"
	"github.com/privfl/fedshard/protocol"
)

// OrchestratorConfig describes an in-process deployment.
type OrchestratorConfig struct {
	RoundConfig *protocol.RoundConfig
	NumClients  int

	// ListenHost for the deployed services; defaults to 127.0.0.1 with
	// ephemeral ports.
	ListenHost string
}

// Orchestrator deploys a complete fedshard network in one process: n share
// servers, one aggregator, and a set of clients, all talking real HTTP.
// Used by the demo binary and the end-to-end tests; production deployments
// run the cmd binaries separately and wire them through the registry.
type Orchestrator struct {
	config *OrchestratorConfig

	servers    []*HTTPShareServer
	aggregator *HTTPAggregator
	clients    []*HTTPClient

	serverEndpoints    map[int]string
	aggregatorEndpoint string

	httpServers []*http.Server
}

// NewOrchestrator creates a deployment orchestrator.
func NewOrchestrator(config *OrchestratorConfig) (*Orchestrator, error) {
	if config.RoundConfig == nil {
		return nil, errors.New("round config cannot be nil")
	}
	if err := config.RoundConfig.Validate(); err != nil {
		return nil, err
	}
	if config.NumClients < 1 {
		return nil, errors.New("deployment needs at least one client")
	}
	if config.ListenHost == "" {
		config.ListenHost = "127.0.0.1"
	}

	return &Orchestrator{config: config}, nil
}

// Clients returns the deployed clients. Valid after Start.
func (o *Orchestrator) Clients() []*HTTPClient {
	return o.clients
}

// Aggregator returns the deployed aggregator. Valid after Start.
func (o *Orchestrator) Aggregator() *HTTPAggregator {
	return o.aggregator
}

// AggregatorEndpoint returns the deployed aggregator's base URL. Valid
// after Start.
func (o *Orchestrator) AggregatorEndpoint() string {
	return o.aggregatorEndpoint
}

// ServerEndpoints returns the base URL of every deployed share server,
// keyed by server id. Valid after Start.
func (o *Orchestrator) ServerEndpoints() map[int]string {
	return o.serverEndpoints
}

// Start deploys servers, aggregator and clients, and wires the endpoints.
func (o *Orchestrator) Start(ctx context.Context) error {
	rc := o.config.RoundConfig

	endpoints := make(map[int]string, rc.N)
	for id := 1; id <= rc.N; id++ {
		srv, err := NewHTTPShareServer(&ServiceConfig{RoundConfig: rc}, id)
		if err != nil {
			return fmt.Errorf("creating server %d: %w", id, err)
		}

		endpoint, err := o.serve(ctx, srv.RegisterRoutes)
		if err != nil {
			return fmt.Errorf("starting server %d: %w", id, err)
		}

		o.servers = append(o.servers, srv)
		endpoints[id] = endpoint
	}

	agg, err := NewHTTPAggregator(&ServiceConfig{RoundConfig: rc})
	if err != nil {
		return fmt.Errorf("creating aggregator: %w", err)
	}
	for id, endpoint := range endpoints {
		if err := agg.RegisterServerEndpoint(id, endpoint, o.servers[id-1].PublicKey()); err != nil {
			return err
		}
	}
	aggEndpoint, err := o.serve(ctx, agg.RegisterRoutes)
	if err != nil {
		return fmt.Errorf("starting aggregator: %w", err)
	}
	o.aggregator = agg
	o.serverEndpoints = endpoints
	o.aggregatorEndpoint = aggEndpoint

	for i := 0; i < o.config.NumClients; i++ {
		c, err := NewHTTPClient(&ServiceConfig{RoundConfig: rc})
		if err != nil {
			return fmt.Errorf("creating client %d: %w", i, err)
		}
		for id, endpoint := range endpoints {
			if err := c.RegisterServerEndpoint(id, endpoint); err != nil {
				return err
			}
		}
		o.clients = append(o.clients, c)
	}

	return nil
}

// serve starts an HTTP server on an ephemeral port and returns its
// endpoint. The server shuts down when ctx is cancelled.
func (o *Orchestrator) serve(ctx context.Context, register func(chi.Router)) (string, error) {
	listener, err := net.Listen("tcp", net.JoinHostPort(o.config.ListenHost, "0"))
	if err != nil {
		return "", err
	}

	router := chi.NewRouter()
	register(router)

	httpServer := &http.Server{Handler: router}
	o.httpServers = append(o.httpServers, httpServer)

	go httpServer.Serve(listener)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	return fmt.Sprintf("http://%s", listener.Addr().String()), nil
}

// RunRound executes one complete round: allocate the budget from the
// given per-client sensitivities, have every client noise/quantize/share
// its update, then reconstruct all clients at the aggregator. The updates
// slice is indexed like Clients().
func (o *Orchestrator) RunRound(ctx context.Context, round int, updates [][]float64, sensitivities []float64) (*protocol.RoundResult, error) {
	if len(updates) != len(o.clients) || len(sensitivities) != len(o.clients) {
		return nil, fmt.Errorf("deployment has %d clients, got %d updates and %d sensitivities",
			len(o.clients), len(updates), len(sensitivities))
	}

	rc := o.config.RoundConfig

	sensByID := make(map[string]float64, len(o.clients))
	for i, c := range o.clients {
		sensByID[c.ID()] = sensitivities[i]
	}

	budget, err := dp.Allocate(sensByID, rc.EpsilonBase, rc.Delta)
	if err != nil {
		return nil, err
	}
	injector := dp.NewInjector(budget)

	clientIDs := make([]string, len(o.clients))
	sigmas := make(map[string]float64, len(o.clients))
	for i, c := range o.clients {
		if err := c.SubmitRound(ctx, round, updates[i], injector); err != nil {
			return nil, fmt.Errorf("client %s submitting round %d: %w", c.ID(), round, err)
		}
		clientIDs[i] = c.ID()
		sigmas[c.ID()] = c.LastSigma()
	}

	telemetry := &aggregator.RoundTelemetry{
		Epsilons: budget.Epsilons(),
		Sigmas:   sigmas,
	}
	return o.aggregator.ReconstructRound(ctx, round, clientIDs, telemetry)
}
