package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/privfl/fedshard/aggregator"
	"github.com/privfl/fedshard/crypto"
	"github.com/privfl/fedshard/metrics"
	"github.com/privfl/fedshard/protocol"
)

// HTTPAggregator exposes the aggregator role over HTTP and fetches share
// quorums from the registered servers' HTTP endpoints.
type HTTPAggregator struct {
	config     *ServiceConfig
	service    *aggregator.Aggregator
	signingKey crypto.PrivateKey
	publicKey  crypto.PublicKey
	httpClient *http.Client

	mu      sync.RWMutex
	archive *RoundArchive
	metrics *metrics.MetricsServer
}

// NewHTTPAggregator creates the HTTP wrapper around an aggregator with a
// fresh signing identity.
func NewHTTPAggregator(config *ServiceConfig) (*HTTPAggregator, error) {
	svc, err := aggregator.New(config.RoundConfig)
	if err != nil {
		return nil, err
	}

	pub, priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generating aggregator keys: %w", err)
	}

	config.ServiceType = AggregatorService
	return &HTTPAggregator{
		config:     config,
		service:    svc,
		signingKey: priv,
		publicKey:  pub,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// PublicKey returns the aggregator's signing public key.
func (a *HTTPAggregator) PublicKey() crypto.PublicKey {
	return a.publicKey
}

// SetArchive wires an optional persistent round archive. Reconstructed
// rounds are saved best-effort; archive failures do not fail the round.
func (a *HTTPAggregator) SetArchive(archive *RoundArchive) {
	a.mu.Lock()
	a.archive = archive
	a.mu.Unlock()
}

// SetMetrics wires an optional metrics registry for round counters.
func (a *HTTPAggregator) SetMetrics(m *metrics.MetricsServer) {
	a.mu.Lock()
	a.metrics = m
	a.mu.Unlock()
}

func (a *HTTPAggregator) count(name string) {
	a.mu.RLock()
	m := a.metrics
	a.mu.RUnlock()
	if m != nil {
		m.Counter(name).Inc()
	}
}

// RegisterServerEndpoint wires server id to its HTTP endpoint. The
// server's public key pins counter-signatures on fetched shares.
func (a *HTTPAggregator) RegisterServerEndpoint(id int, endpoint string, publicKey crypto.PublicKey) error {
	return a.service.RegisterServer(id, &httpShareSource{
		httpClient: a.httpClient,
		endpoint:   endpoint,
		publicKey:  publicKey,
	})
}

// Result returns the stored result of a round, if any.
func (a *HTTPAggregator) Result(round int) (*protocol.RoundResult, bool) {
	return a.service.Result(round)
}

// LatestRound returns the highest round number with a stored result.
func (a *HTTPAggregator) LatestRound() (int, bool) {
	return a.service.LatestRound()
}

// ReconstructRound drives quorum collection and reconstruction for the
// listed clients.
func (a *HTTPAggregator) ReconstructRound(ctx context.Context, round int, clientIDs []string, telemetry *aggregator.RoundTelemetry) (*protocol.RoundResult, error) {
	result, err := a.service.ReconstructRound(ctx, round, clientIDs, telemetry)
	if err != nil {
		return nil, err
	}
	a.count("rounds_reconstructed_total")

	a.mu.RLock()
	archive := a.archive
	a.mu.RUnlock()
	if archive != nil {
		// Persistence is advisory; the result is already served from memory.
		if err := archive.SaveResult(ctx, result); err != nil {
			log.Printf("archiving round %d: %v", round, err)
		}
	}

	return result, nil
}

// RegisterRoutes registers the reconstruction and result endpoints.
func (a *HTTPAggregator) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/reconstruct", a.handleReconstruct)
	r.Get("/results/{round}", a.handleGetResult)
}

func (a *HTTPAggregator) handleReconstruct(w http.ResponseWriter, r *http.Request) {
	var req ReconstructRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.ClientIDs) == 0 {
		http.Error(w, "no clients listed", http.StatusBadRequest)
		return
	}

	result, err := a.ReconstructRound(r.Context(), req.RoundNumber, req.ClientIDs, req.Telemetry)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(&RoundResultResponse{Result: result})
}

func (a *HTTPAggregator) handleGetResult(w http.ResponseWriter, r *http.Request) {
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil {
		http.Error(w, "invalid round number", http.StatusBadRequest)
		return
	}

	result, ok := a.service.Result(round)
	if !ok {
		http.Error(w, "result not available", http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(&RoundResultResponse{Result: result})
}

// httpShareSource implements aggregator.ShareSource over a server's HTTP
// endpoint.
type httpShareSource struct {
	httpClient *http.Client
	endpoint   string
	publicKey  crypto.PublicKey
}

func (s *httpShareSource) FetchShare(ctx context.Context, round int, clientID string, serverID int) (*protocol.ShareMessage, error) {
	url := fmt.Sprintf("%s/shares/%d/%s", s.endpoint, round, clientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server %d returned status %d", serverID, resp.StatusCode)
	}

	fetched, err := protocol.DecodeMessage[ShareFetchResponse](resp.Body)
	if err != nil {
		return nil, err
	}
	if fetched.Message == nil {
		return nil, fmt.Errorf("server %d returned empty share response", serverID)
	}

	msg, signer, err := fetched.Message.Recover()
	if err != nil {
		return nil, fmt.Errorf("could not recover server signature: %w", err)
	}
	if s.publicKey != nil && signer.String() != s.publicKey.String() {
		return nil, fmt.Errorf("share response not signed by server %d", serverID)
	}

	return msg, nil
}
