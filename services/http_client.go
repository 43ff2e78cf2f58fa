package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/privfl/fedshard/client"
	"github.com/privfl/fedshard/crypto"
	"github.com/privfl/fedshard/dp"
	"github.com/privfl/fedshard/protocol"
)

// HTTPClient runs the client role against a deployed network: it prepares
// sharing events and fans them out to the n share servers over HTTP.
type HTTPClient struct {
	config     *ServiceConfig
	client     *client.Client
	httpClient *http.Client

	mu        sync.RWMutex
	endpoints map[int]string
	lastSigma float64
}

// NewHTTPClient creates a networked client with a fresh identity.
func NewHTTPClient(config *ServiceConfig) (*HTTPClient, error) {
	c, err := client.New(config.RoundConfig)
	if err != nil {
		return nil, err
	}

	config.ServiceType = ClientService
	return &HTTPClient{
		config:     config,
		client:     c,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoints:  make(map[int]string),
	}, nil
}

// ID returns the client's stable identifier.
func (c *HTTPClient) ID() string {
	return c.client.ID()
}

// PublicKey returns the client's signing public key.
func (c *HTTPClient) PublicKey() crypto.PublicKey {
	return c.client.PublicKey()
}

// RegisterServerEndpoint wires server id to its HTTP endpoint.
func (c *HTTPClient) RegisterServerEndpoint(id int, endpoint string) error {
	if id < 1 || id > c.config.RoundConfig.N {
		return fmt.Errorf("%w: server id %d out of range [1, %d]",
			crypto.ErrInvalidInput, id, c.config.RoundConfig.N)
	}
	c.mu.Lock()
	c.endpoints[id] = endpoint
	c.mu.Unlock()
	return nil
}

// LastSigma returns the sigma of the most recent submission, for
// telemetry.
func (c *HTTPClient) LastSigma() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSigma
}

// RunRounds submits one update per share phase signalled by the
// coordinator. nextUpdate produces the update vector for each submission;
// maxRounds bounds the number of submissions, with 0 meaning until ctx is
// cancelled. Submissions are numbered from the coordinator's round number
// plus one, so a fresh coordinator starts at round 1.
func (c *HTTPClient) RunRounds(ctx context.Context, coord protocol.RoundCoordinator, maxRounds int, injector *dp.Injector, nextUpdate func(round int) []float64) error {
	rounds := coord.SubscribeToRounds(ctx)

	submitted := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-rounds:
			if !ok {
				return nil
			}
			if r.Phase != protocol.SharePhase {
				continue
			}

			round := r.Number + 1
			if err := c.SubmitRound(ctx, round, nextUpdate(round), injector); err != nil {
				return fmt.Errorf("submitting round %d: %w", round, err)
			}
			submitted++
			if maxRounds > 0 && submitted >= maxRounds {
				return nil
			}
		}
	}
}

// SubmitRound prepares the sharing event for the round and delivers each
// share to its server concurrently. The shares are logically independent,
// so delivery order is unspecified. At least t servers must accept for the
// round to remain reconstructible; fewer is an error.
func (c *HTTPClient) SubmitRound(ctx context.Context, round int, update []float64, injector *dp.Injector) error {
	sub, err := c.client.PrepareRound(round, update, injector)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.lastSigma = sub.Sigma
	endpoints := make(map[int]string, len(c.endpoints))
	for id, ep := range c.endpoints {
		endpoints[id] = ep
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	accepted := make([]bool, len(sub.Messages))
	for i, signed := range sub.Messages {
		endpoint, ok := endpoints[i+1]
		if !ok {
			continue
		}

		body, err := json.Marshal(&ShareSubmitRequest{Message: signed})
		if err != nil {
			return fmt.Errorf("marshaling share for server %d: %w", i+1, err)
		}

		wg.Add(1)
		go func(i int, endpoint string, body []byte) {
			defer wg.Done()
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/shares", bytes.NewReader(body))
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, resp.Body)

			accepted[i] = resp.StatusCode == http.StatusOK
		}(i, endpoint, body)
	}
	wg.Wait()

	nAccepted := 0
	for _, ok := range accepted {
		if ok {
			nAccepted++
		}
	}
	if nAccepted < c.config.RoundConfig.T {
		return fmt.Errorf("only %d of %d servers accepted the share, need %d for reconstruction",
			nAccepted, c.config.RoundConfig.N, c.config.RoundConfig.T)
	}

	return nil
}
