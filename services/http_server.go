package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/privfl/fedshard/crypto"
	"github.com/privfl/fedshard/metrics"
	"github.com/privfl/fedshard/protocol"
	"github.com/privfl/fedshard/server"
)

// HTTPShareServer exposes one share server over HTTP.
type HTTPShareServer struct {
	config     *ServiceConfig
	service    *server.Server
	signingKey crypto.PrivateKey
	publicKey  crypto.PublicKey
	metrics    *metrics.MetricsServer
}

// NewHTTPShareServer creates the HTTP wrapper around a share server with a
// fresh signing identity.
func NewHTTPShareServer(config *ServiceConfig, serverID int) (*HTTPShareServer, error) {
	svc, err := server.New(config.RoundConfig, serverID)
	if err != nil {
		return nil, err
	}

	pub, priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generating server keys: %w", err)
	}

	config.ServiceType = ServerService
	return &HTTPShareServer{
		config:     config,
		service:    svc,
		signingKey: priv,
		publicKey:  pub,
	}, nil
}

// SetMetrics wires an optional metrics registry for share counters. Call
// before the server starts handling requests.
func (s *HTTPShareServer) SetMetrics(m *metrics.MetricsServer) {
	s.metrics = m
}

func (s *HTTPShareServer) count(name string) {
	if s.metrics != nil {
		s.metrics.Counter(name).Inc()
	}
}

// ServerID returns the wrapped server's evaluation point.
func (s *HTTPShareServer) ServerID() int {
	return s.service.ID()
}

// PublicKey returns the server's signing public key.
func (s *HTTPShareServer) PublicKey() crypto.PublicKey {
	return s.publicKey
}

// RegisterRoutes registers the share submission and retrieval endpoints.
func (s *HTTPShareServer) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/shares", s.handleSubmitShare)
	r.Get("/shares/{round}/{client}", s.handleGetShare)
}

func (s *HTTPShareServer) handleSubmitShare(w http.ResponseWriter, r *http.Request) {
	var req ShareSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Message == nil {
		http.Error(w, "missing share message", http.StatusBadRequest)
		return
	}

	msg, signer, err := req.Message.Recover()
	if err != nil {
		http.Error(w, fmt.Errorf("could not recover share signature: %w", err).Error(), http.StatusForbidden)
		return
	}
	if signer.ClientID() != msg.ClientID {
		http.Error(w, "signer does not match claimed client id", http.StatusForbidden)
		return
	}

	if err := s.service.ReceiveShare(msg); err != nil {
		s.count("shares_rejected_total")
		status := http.StatusBadRequest
		if errors.Is(err, server.ErrShareRejected) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}

	s.count("shares_accepted_total")
	json.NewEncoder(w).Encode(&ShareSubmitResponse{Accepted: true})
}

func (s *HTTPShareServer) handleGetShare(w http.ResponseWriter, r *http.Request) {
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil {
		http.Error(w, "invalid round number", http.StatusBadRequest)
		return
	}
	clientID := chi.URLParam(r, "client")

	msg, ok := s.service.ShareFor(round, clientID)
	if !ok {
		http.Error(w, "share not available", http.StatusNotFound)
		return
	}

	// Counter-sign so the aggregator can pin responses to this server.
	signed, err := protocol.NewSigned(s.signingKey, msg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(&ShareFetchResponse{Message: signed})
}
