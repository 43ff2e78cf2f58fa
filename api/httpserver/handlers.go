package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/privfl/fedshard/metrics"
	"github.com/privfl/fedshard/protocol"
	"github.com/privfl/fedshard/services"
)

// ResultSource supplies reconstructed rounds to the read-only API. Both
// the aggregator's in-memory store and the postgres archive implement it.
type ResultSource interface {
	Result(ctx context.Context, round int) (*protocol.RoundResult, error)
	LatestRound(ctx context.Context) (int, error)
}

// TelemetryResponse carries the privacy accounting of one round without
// the reconstructed updates.
type TelemetryResponse struct {
	RoundNumber int                `json:"round_number"`
	Epsilons    map[string]float64 `json:"epsilons"`
	Sigmas      map[string]float64 `json:"sigmas"`
}

// ResultsHandler serves reconstructed rounds and their privacy telemetry
// to collaborators that consume the pipeline's output, for example the
// federated-averaging step downstream of reconstruction.
type ResultsHandler struct {
	source  ResultSource
	metrics *metrics.MetricsServer
}

// NewResultsHandler creates the read-only results API over a source.
func NewResultsHandler(source ResultSource, m *metrics.MetricsServer) *ResultsHandler {
	return &ResultsHandler{source: source, metrics: m}
}

// RegisterRoutes mounts the results API.
func (h *ResultsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/results/latest", h.handleLatestResult)
	r.Get("/api/v1/results/{round}", h.handleGetResult)
	r.Get("/api/v1/telemetry/{round}", h.handleGetTelemetry)
}

func (h *ResultsHandler) count(route string) {
	if h.metrics != nil {
		h.metrics.RequestCounter(route).Inc()
	}
}

func (h *ResultsHandler) resultForRound(w http.ResponseWriter, r *http.Request) (*protocol.RoundResult, bool) {
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil {
		http.Error(w, "invalid round number", http.StatusBadRequest)
		return nil, false
	}

	result, err := h.source.Result(r.Context(), round)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrResultNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return nil, false
	}
	return result, true
}

func (h *ResultsHandler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	h.count("results")

	result, ok := h.resultForRound(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *ResultsHandler) handleLatestResult(w http.ResponseWriter, r *http.Request) {
	h.count("results_latest")

	round, err := h.source.LatestRound(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrResultNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	result, err := h.source.Result(r.Context(), round)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *ResultsHandler) handleGetTelemetry(w http.ResponseWriter, r *http.Request) {
	h.count("telemetry")

	result, ok := h.resultForRound(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&TelemetryResponse{
		RoundNumber: result.RoundNumber,
		Epsilons:    result.Epsilons,
		Sigmas:      result.Sigmas,
	})
}

// AggregatorSource adapts the aggregator's in-memory result store to the
// ResultSource interface so deployments without postgres still serve the
// results API.
type AggregatorSource struct {
	Aggregator *services.HTTPAggregator
}

func (s *AggregatorSource) Result(ctx context.Context, round int) (*protocol.RoundResult, error) {
	result, ok := s.Aggregator.Result(round)
	if !ok {
		return nil, services.ErrResultNotFound
	}
	return result, nil
}

func (s *AggregatorSource) LatestRound(ctx context.Context) (int, error) {
	round, ok := s.Aggregator.LatestRound()
	if !ok {
		return 0, services.ErrResultNotFound
	}
	return round, nil
}
