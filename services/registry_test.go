package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/privfl/fedshard/crypto"
	"github.com/privfl/fedshard/protocol"
)

func startTestRegistry(t *testing.T, n int) *httptest.Server {
	t.Helper()

	reg, err := NewHTTPRegistry(testRoundConfig(2, n, 2))
	require.NoError(t, err)

	router := chi.NewRouter()
	reg.RegisterRoutes(router)
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func fetchServices(t *testing.T, registryURL string) *ServiceListResponse {
	t.Helper()

	resp, err := http.Get(registryURL + "/services")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list ServiceListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	return &list
}

func TestRegistry_ServerRegistration(t *testing.T) {
	ts := startTestRegistry(t, 3)

	pub, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	// Register out of id order; the listing is sorted.
	for _, id := range []int{2, 1, 3} {
		resp := postJSON(t, ts.URL+"/register/server", &ServerRegistration{
			ServerID:     id,
			HTTPEndpoint: fmt.Sprintf("http://127.0.0.1:90%02d", id),
			PublicKey:    pub.String(),
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var reg RegistrationResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&reg))
		require.True(t, reg.Success)
	}

	list := fetchServices(t, ts.URL)
	require.Len(t, list.Servers, 3)
	for i, s := range list.Servers {
		require.Equal(t, i+1, s.ServerID)
	}
}

func TestRegistry_ReplacesOnRestart(t *testing.T) {
	ts := startTestRegistry(t, 2)

	resp := postJSON(t, ts.URL+"/register/server", &ServerRegistration{
		ServerID: 1, HTTPEndpoint: "http://old:1",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/register/server", &ServerRegistration{
		ServerID: 1, HTTPEndpoint: "http://new:1",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := fetchServices(t, ts.URL)
	require.Len(t, list.Servers, 1)
	require.Equal(t, "http://new:1", list.Servers[0].HTTPEndpoint)
}

func TestRegistry_RejectsInvalidRegistrations(t *testing.T) {
	ts := startTestRegistry(t, 3)

	cases := []*ServerRegistration{
		{ServerID: 0, HTTPEndpoint: "http://x:1"},
		{ServerID: 4, HTTPEndpoint: "http://x:1"},
		{ServerID: 1},
	}
	for _, reg := range cases {
		resp := postJSON(t, ts.URL+"/register/server", reg)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}

	resp := postJSON(t, ts.URL+"/register/aggregator", &AggregatorRegistration{})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.Empty(t, fetchServices(t, ts.URL).Servers)
}

func TestRegistry_ServesRoundConfig(t *testing.T) {
	ts := startTestRegistry(t, 3)

	resp, err := http.Get(ts.URL + "/config")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg protocol.RoundConfig
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	require.Equal(t, 2, cfg.T)
	require.Equal(t, 3, cfg.N)
	require.Equal(t, crypto.TestFieldOrder, cfg.FieldOrder)
	require.NoError(t, cfg.Validate())
}

func TestRegistry_AggregatorRegistration(t *testing.T) {
	ts := startTestRegistry(t, 2)

	resp := postJSON(t, ts.URL+"/register/aggregator", &AggregatorRegistration{
		HTTPEndpoint: "http://127.0.0.1:9100",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := fetchServices(t, ts.URL)
	require.Len(t, list.Aggregators, 1)
	require.Equal(t, "http://127.0.0.1:9100", list.Aggregators[0].HTTPEndpoint)
}
