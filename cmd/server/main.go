// Command server runs a standalone fedshard share server.
//
// A share server holds evaluation point id in [1, n]. It verifies every
// incoming share against the client's published commitment before storing
// it, and serves stored shares to the aggregator counter-signed with its
// own key. Any t servers can jointly reconstruct an update; fewer learn
// nothing beyond the commitment.
//
// # Usage
//
//	go run ./cmd/server --registry=http://localhost:7999 --id=1 --addr=:8081
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/privfl/fedshard/api/httpserver"
	"github.com/privfl/fedshard/cmd/common"
	"github.com/privfl/fedshard/metrics"
	"github.com/privfl/fedshard/services"
)

func main() {
	var (
		configPath     = flag.String("config", "", "Path to YAML config file")
		addr           = flag.String("addr", ":8081", "HTTP listen address")
		metricsAddr    = flag.String("metrics-addr", "", "Metrics listen address (disabled if empty)")
		registryURL    = flag.String("registry", "", "Registry URL for config and discovery")
		serverID       = flag.Int("id", 0, "Server id, the share evaluation point in [1, n]")
		publicEndpoint = flag.String("public-endpoint", "", "Endpoint advertised to the registry")
	)
	flag.Parse()

	if *configPath != "" {
		cfg, err := common.LoadConfig(*configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if cfg.HTTPAddr != "" {
			*addr = cfg.HTTPAddr
		}
		if cfg.MetricsAddr != "" {
			*metricsAddr = cfg.MetricsAddr
		}
		if cfg.RegistryURL != "" {
			*registryURL = cfg.RegistryURL
		}
		if cfg.Server.ID != 0 {
			*serverID = cfg.Server.ID
		}
		if cfg.Server.PublicEndpoint != "" {
			*publicEndpoint = cfg.Server.PublicEndpoint
		}
	}

	if *registryURL == "" {
		fmt.Println("Error: --registry is required")
		os.Exit(1)
	}
	if *publicEndpoint == "" {
		*publicEndpoint = fmt.Sprintf("http://127.0.0.1%s", *addr)
	}

	roundConfig, err := common.FetchRoundConfig(*registryURL)
	if err != nil {
		fmt.Printf("Error fetching config: %v\n", err)
		os.Exit(1)
	}

	server, err := services.NewHTTPShareServer(&services.ServiceConfig{
		RoundConfig: roundConfig,
		HTTPAddr:    *addr,
		RegistryURL: *registryURL,
	}, *serverID)
	if err != nil {
		fmt.Printf("Create server error: %v\n", err)
		os.Exit(1)
	}

	log := common.NewLogger("server").With("serverID", *serverID)

	metricsSrv, err := metrics.New(httpserver.PackageName, *metricsAddr)
	if err != nil {
		fmt.Printf("Create metrics registry error: %v\n", err)
		os.Exit(1)
	}
	server.SetMetrics(metricsSrv)

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               *addr,
		MetricsAddr:              *metricsAddr,
		Metrics:                  metricsSrv,
		Log:                      log,
		DrainDuration:            time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, server)
	if err != nil {
		fmt.Printf("Create HTTP server error: %v\n", err)
		os.Exit(1)
	}

	log.Info("Share server starting", "addr", *addr, "publicKey", server.PublicKey().String())
	srv.RunInBackground()

	err = common.RegisterWithRegistry(*registryURL, "/register/server", &services.ServerRegistration{
		ServerID:     *serverID,
		HTTPEndpoint: *publicEndpoint,
		PublicKey:    server.PublicKey().String(),
	})
	if err != nil {
		fmt.Printf("Registration error: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down share server")
	srv.Shutdown()
}
