// Command client runs a standalone fedshard client that submits noised,
// secret-shared updates once per round.
//
// The client fetches the round parameters and server endpoints from the
// registry, perturbs its update with Gaussian noise calibrated to its
// budget, quantizes it, and delivers one share to each server. Updates are
// synthesized uniformly in [-1, 1]; a real deployment feeds local training
// output instead.
//
// When the client runs alone it receives the full base budget. Allocating
// personalized budgets across a cohort requires the cohort's sensitivities
// in one place, which the demo binary's orchestrator does in-process.
//
// # Usage
//
//	go run ./cmd/client --registry=http://localhost:7999 --rounds=10
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/privfl/fedshard/cmd/common"
	"github.com/privfl/fedshard/dp"
	"github.com/privfl/fedshard/protocol"
	"github.com/privfl/fedshard/services"
)

func main() {
	var (
		configPath    = flag.String("config", "", "Path to YAML config file")
		registryURL   = flag.String("registry", "", "Registry URL for config and discovery")
		sensitivity   = flag.Float64("sensitivity", 1.0, "Client data sensitivity score")
		rounds        = flag.Int("rounds", 0, "Rounds to submit (0 runs until interrupted)")
		discoveryWait = flag.Duration("discovery-wait", time.Minute, "How long to wait for all servers to register")
	)
	flag.Parse()

	if *configPath != "" {
		cfg, err := common.LoadConfig(*configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if cfg.RegistryURL != "" {
			*registryURL = cfg.RegistryURL
		}
		if cfg.Client.Sensitivity != 0 {
			*sensitivity = cfg.Client.Sensitivity
		}
	}

	if *registryURL == "" {
		fmt.Println("Error: --registry is required")
		os.Exit(1)
	}

	roundConfig, err := common.FetchRoundConfig(*registryURL)
	if err != nil {
		fmt.Printf("Error fetching config: %v\n", err)
		os.Exit(1)
	}

	client, err := services.NewHTTPClient(&services.ServiceConfig{
		RoundConfig: roundConfig,
		RegistryURL: *registryURL,
	})
	if err != nil {
		fmt.Printf("Create client error: %v\n", err)
		os.Exit(1)
	}

	log := common.NewLogger("client").With("clientID", client.ID())

	discoveryCtx, cancel := context.WithTimeout(context.Background(), *discoveryWait)
	list, err := common.WaitForServers(discoveryCtx, *registryURL, roundConfig.N)
	cancel()
	if err != nil {
		fmt.Printf("Discovery error: %v\n", err)
		os.Exit(1)
	}
	for _, reg := range list.Servers {
		if err := client.RegisterServerEndpoint(reg.ServerID, reg.HTTPEndpoint); err != nil {
			fmt.Printf("Wiring server %d failed: %v\n", reg.ServerID, err)
			os.Exit(1)
		}
	}

	budget, err := dp.Allocate(map[string]float64{client.ID(): *sensitivity}, roundConfig.EpsilonBase, roundConfig.Delta)
	if err != nil {
		fmt.Printf("Budget error: %v\n", err)
		os.Exit(1)
	}
	injector := dp.NewInjector(budget)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Client starting", "dimension", roundConfig.Dimension,
		"epsilon", roundConfig.EpsilonBase, "roundDuration", roundConfig.RoundDuration)

	// Rounds follow the wall-clock schedule every participant shares, so
	// independently started clients submit under the same round numbers.
	coordinator := protocol.NewLocalRoundCoordinator(roundConfig.RoundDuration)
	coordinator.Start(ctx)

	err = client.RunRounds(ctx, coordinator, *rounds, injector, func(round int) []float64 {
		update := make([]float64, roundConfig.Dimension)
		for i := range update {
			update[i] = rand.Float64()*2 - 1
		}
		log.Info("Submitting round", "round", round)
		return update
	})
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		log.Info("Client stopping")
	default:
		log.Error("Round submission failed", "err", err)
		os.Exit(1)
	}
}
