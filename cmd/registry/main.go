// Command registry runs the fedshard discovery and configuration service.
//
// The registry holds the shared round parameters and the endpoints of the
// deployed share servers and aggregator. Every other binary fetches its
// configuration from here, so all participants run the same field, group,
// threshold and privacy parameters.
//
// # Endpoints
//
//   - GET  /config              - shared round parameters
//   - GET  /services            - registered servers and aggregators
//   - POST /register/server     - share server registration
//   - POST /register/aggregator - aggregator registration
//
// # Usage
//
//	go run ./cmd/registry --addr=:7999 --t=3 --n=5 --dimension=1000
//	go run ./cmd/registry --config=registry.yaml --epsilon=2.5
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
	"github.com/privfl/fedshard/crypto"
	"github.com/privfl/fedshard/protocol"
	"github.com/privfl/fedshard/services"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		addr        = flag.String("addr", ":7999", "HTTP listen address")
		metricsAddr = flag.String("metrics-addr", "", "Metrics listen address (disabled if empty)")
		threshold   = flag.Int("t", 3, "Reconstruction threshold")
		numServers  = flag.Int("n", 5, "Number of share servers")
		dimension   = flag.Int("dimension", 100, "Model update dimension")
		epsilon     = flag.Float64("epsilon", 1.0, "Base privacy budget")
		delta       = flag.Float64("delta", 1e-5, "Privacy failure probability")
		testField   = flag.Bool("test-field", false, "Use the small 31-bit test field")
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
	}

	roundConfig := protocol.DefaultRoundConfig(*threshold, *numServers, *dimension)
	roundConfig.EpsilonBase = *epsilon
	roundConfig.Delta = *delta
	if *testField {
		roundConfig.FieldOrder = crypto.TestFieldOrder
		roundConfig.Group = crypto.TestGroup()
	}

	registry, err := services.NewHTTPRegistry(roundConfig)
	if err != nil {
		fmt.Printf("Invalid round parameters: %v\n", err)
		os.Exit(1)
	}

	log := common.NewLogger("registry")
	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               *addr,
		MetricsAddr:              *metricsAddr,
		Log:                      log,
		DrainDuration:            time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, registry)
	if err != nil {
		fmt.Printf("Create server error: %v\n", err)
		os.Exit(1)
	}

	log.Info("Registry starting", "addr", *addr, "t", roundConfig.T, "n", roundConfig.N,
		"dimension", roundConfig.Dimension, "epsilonBase", roundConfig.EpsilonBase)
	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down registry")
	srv.Shutdown()
}
