package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/privfl/fedshard/protocol"
)

// HTTPRegistry is a minimal discovery and configuration service: share
// servers and the aggregator announce their endpoints, every participant
// fetches the shared round parameters. No attestation or admission
// control; deployments that need either should front the registry
// themselves.
type HTTPRegistry struct {
	config *protocol.RoundConfig

	mu          sync.RWMutex
	servers     map[int]*ServerRegistration
	aggregators []*AggregatorRegistration
}

// NewHTTPRegistry creates a registry distributing the given round config.
func NewHTTPRegistry(config *protocol.RoundConfig) (*HTTPRegistry, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &HTTPRegistry{
		config:  config,
		servers: make(map[int]*ServerRegistration),
	}, nil
}

// RegisterServer records a share server's endpoint. Re-registration for
// the same id replaces the previous entry (server restart).
func (reg *HTTPRegistry) RegisterServer(r *ServerRegistration) error {
	if r.ServerID < 1 || r.ServerID > reg.config.N {
		return fmt.Errorf("server id %d out of range [1, %d]", r.ServerID, reg.config.N)
	}
	if r.HTTPEndpoint == "" {
		return fmt.Errorf("server %d registered without endpoint", r.ServerID)
	}

	reg.mu.Lock()
	reg.servers[r.ServerID] = r
	reg.mu.Unlock()
	return nil
}

// RegisterAggregator records the aggregator's endpoint.
func (reg *HTTPRegistry) RegisterAggregator(r *AggregatorRegistration) error {
	if r.HTTPEndpoint == "" {
		return fmt.Errorf("aggregator registered without endpoint")
	}

	reg.mu.Lock()
	reg.aggregators = append(reg.aggregators, r)
	reg.mu.Unlock()
	return nil
}

// Services returns the current registrations, servers ordered by id.
func (reg *HTTPRegistry) Services() *ServiceListResponse {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	servers := make([]*ServerRegistration, 0, len(reg.servers))
	for _, s := range reg.servers {
		servers = append(servers, s)
	}
	sort.Slice(servers, func(i, j int) bool { return servers[i].ServerID < servers[j].ServerID })

	aggregators := make([]*AggregatorRegistration, len(reg.aggregators))
	copy(aggregators, reg.aggregators)

	return &ServiceListResponse{Servers: servers, Aggregators: aggregators}
}

// RegisterRoutes registers the registry endpoints.
func (reg *HTTPRegistry) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/register/server", reg.handleRegisterServer)
	r.Post("/register/aggregator", reg.handleRegisterAggregator)
	r.Get("/services", reg.handleListServices)
	r.Get("/config", reg.handleGetConfig)
}

func (reg *HTTPRegistry) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reg.config)
}

func (reg *HTTPRegistry) handleRegisterServer(w http.ResponseWriter, r *http.Request) {
	var req ServerRegistration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := reg.RegisterServer(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(&RegistrationResponse{Success: true})
}

func (reg *HTTPRegistry) handleRegisterAggregator(w http.ResponseWriter, r *http.Request) {
	var req AggregatorRegistration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := reg.RegisterAggregator(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(&RegistrationResponse{Success: true})
}

func (reg *HTTPRegistry) handleListServices(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(reg.Services())
}
