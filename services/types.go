package services

import (
	"github.com/privfl/fedshard/aggregator"
	"github.com/privfl/fedshard/protocol"
)

// ServiceType identifies the type of service.
type ServiceType string

const (
	ClientService     ServiceType = "client"
	AggregatorService ServiceType = "aggregator"
	ServerService     ServiceType = "server"
	RegistryService   ServiceType = "registry"
)

// Valid returns true if the service type is recognized.
func (t ServiceType) Valid() bool {
	switch t {
	case ClientService, AggregatorService, ServerService, RegistryService:
		return true
	}
	return false
}

// ServiceConfig contains configuration for HTTP services.
type ServiceConfig struct {
	RoundConfig *protocol.RoundConfig
	ServiceType ServiceType
	HTTPAddr    string
	RegistryURL string
}

// ShareSubmitRequest wraps a signed share message for HTTP transport.
type ShareSubmitRequest struct {
	Message *protocol.Signed[protocol.ShareMessage] `json:"message"`
}

// ShareSubmitResponse confirms a share was verified and stored.
type ShareSubmitResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}

// ShareFetchResponse returns a stored share, counter-signed by the serving
// server so the aggregator can authenticate its origin.
type ShareFetchResponse struct {
	Message *protocol.Signed[protocol.ShareMessage] `json:"message"`
}

// ReconstructRequest asks the aggregator to reconstruct a round for the
// listed clients.
type ReconstructRequest struct {
	RoundNumber int                        `json:"round_number"`
	ClientIDs   []string                   `json:"client_ids"`
	Telemetry   *aggregator.RoundTelemetry `json:"telemetry,omitempty"`
}

// RoundResultResponse wraps a reconstructed round.
type RoundResultResponse struct {
	Result *protocol.RoundResult `json:"result"`
}

// ServerRegistration announces a share server to the registry.
type ServerRegistration struct {
	ServerID     int    `json:"server_id"`
	HTTPEndpoint string `json:"http_endpoint"`
	PublicKey    string `json:"public_key"`
}

// AggregatorRegistration announces the aggregator to the registry.
type AggregatorRegistration struct {
	HTTPEndpoint string `json:"http_endpoint"`
	PublicKey    string `json:"public_key"`
}

// ServiceListResponse lists the registered services.
type ServiceListResponse struct {
	Servers     []*ServerRegistration     `json:"servers"`
	Aggregators []*AggregatorRegistration `json:"aggregators"`
}

// RegistrationResponse confirms registry registration.
type RegistrationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
