// Command aggregator runs the standalone fedshard aggregator.
//
// The aggregator collects verified share quorums from the registered
// servers, reconstructs the quantized updates, and serves the results and
// their privacy telemetry over the read-only results API. With a postgres
// DSN configured, reconstructed rounds are also archived so results
// survive restarts.
//
// # Usage
//
//	go run ./cmd/aggregator --registry=http://localhost:7999 --addr=:8091
//	go run ./cmd/aggregator --registry=http://localhost:7999 \
//	    --database-dsn="host=localhost port=5432 user=fedshard password=x dbname=rounds"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/privfl/fedshard/api/httpserver"
	"github.com/privfl/fedshard/cmd/common"
	"github.com/privfl/fedshard/crypto"
	"github.com/privfl/fedshard/metrics"
	"github.com/privfl/fedshard/services"
)

func main() {
	var (
		configPath     = flag.String("config", "", "Path to YAML config file")
		addr           = flag.String("addr", ":8091", "HTTP listen address")
		metricsAddr    = flag.String("metrics-addr", "", "Metrics listen address (disabled if empty)")
		registryURL    = flag.String("registry", "", "Registry URL for config and discovery")
		publicEndpoint = flag.String("public-endpoint", "", "Endpoint advertised to the registry")
		databaseDSN    = flag.String("database-dsn", "", "Postgres DSN for the round archive (optional)")
		discoveryWait  = flag.Duration("discovery-wait", time.Minute, "How long to wait for all servers to register")
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
		if cfg.Aggregator.PublicEndpoint != "" {
			*publicEndpoint = cfg.Aggregator.PublicEndpoint
		}
		if cfg.Aggregator.DatabaseDSN != "" {
			*databaseDSN = cfg.Aggregator.DatabaseDSN
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

	aggregator, err := services.NewHTTPAggregator(&services.ServiceConfig{
		RoundConfig: roundConfig,
		HTTPAddr:    *addr,
		RegistryURL: *registryURL,
	})
	if err != nil {
		fmt.Printf("Create aggregator error: %v\n", err)
		os.Exit(1)
	}

	log := common.NewLogger("aggregator")

	metricsSrv, err := metrics.New(httpserver.PackageName, *metricsAddr)
	if err != nil {
		fmt.Printf("Create metrics registry error: %v\n", err)
		os.Exit(1)
	}
	aggregator.SetMetrics(metricsSrv)

	var source httpserver.ResultSource = &httpserver.AggregatorSource{Aggregator: aggregator}
	if *databaseDSN != "" {
		archive, err := services.NewRoundArchiveDSN(*databaseDSN)
		if err != nil {
			fmt.Printf("Round archive error: %v\n", err)
			os.Exit(1)
		}
		defer archive.Close()
		aggregator.SetArchive(archive)
		source = archive
		log.Info("Round archive enabled")
	}

	// Wire every share server before accepting reconstruction requests.
	ctx, cancel := context.WithTimeout(context.Background(), *discoveryWait)
	list, err := common.WaitForServers(ctx, *registryURL, roundConfig.N)
	cancel()
	if err != nil {
		fmt.Printf("Discovery error: %v\n", err)
		os.Exit(1)
	}
	for _, reg := range list.Servers {
		publicKey, err := crypto.NewPublicKeyFromString(reg.PublicKey)
		if err != nil {
			fmt.Printf("Server %d published an invalid key: %v\n", reg.ServerID, err)
			os.Exit(1)
		}
		if err := aggregator.RegisterServerEndpoint(reg.ServerID, reg.HTTPEndpoint, publicKey); err != nil {
			fmt.Printf("Wiring server %d failed: %v\n", reg.ServerID, err)
			os.Exit(1)
		}
	}

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               *addr,
		MetricsAddr:              *metricsAddr,
		Metrics:                  metricsSrv,
		Log:                      log,
		DrainDuration:            time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             30 * time.Second,
	}, aggregator, httpserver.NewResultsHandler(source, metricsSrv))
	if err != nil {
		fmt.Printf("Create HTTP server error: %v\n", err)
		os.Exit(1)
	}

	log.Info("Aggregator starting", "addr", *addr, "servers", roundConfig.N, "threshold", roundConfig.T)
	srv.RunInBackground()

	err = common.RegisterWithRegistry(*registryURL, "/register/aggregator", &services.AggregatorRegistration{
		HTTPEndpoint: *publicEndpoint,
		PublicKey:    aggregator.PublicKey().String(),
	})
	if err != nil {
		fmt.Printf("Registration error: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down aggregator")
	srv.Shutdown()
}
