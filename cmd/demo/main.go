// Command demo runs a complete fedshard deployment in one process and
// drives a few rounds through it.
//
// The orchestrator starts n share servers, an aggregator, and a cohort of
// clients on ephemeral local ports, all talking real HTTP. Each round the
// cohort's privacy budget is allocated from randomized sensitivity scores,
// every client submits a noised and secret-shared synthetic update, and
// the aggregator reconstructs the round from t-server quorums.
//
// # Usage
//
//	go run ./cmd/demo --clients=4 --rounds=3
//	go run ./cmd/demo --t=2 --n=3 --dimension=8 --epsilon=2.5
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/privfl/fedshard/cmd/common"
	"github.com/privfl/fedshard/crypto"
	"github.com/privfl/fedshard/protocol"
	"github.com/privfl/fedshard/services"
)

func main() {
	var (
		numClients = flag.Int("clients", 4, "Number of clients in the cohort")
		threshold  = flag.Int("t", 3, "Reconstruction threshold")
		numServers = flag.Int("n", 5, "Number of share servers")
		dimension  = flag.Int("dimension", 8, "Model update dimension")
		epsilon    = flag.Float64("epsilon", 1.0, "Base privacy budget")
		rounds     = flag.Int("rounds", 3, "Rounds to run")
		testField  = flag.Bool("test-field", true, "Use the small 31-bit test field")
	)
	flag.Parse()

	if err := run(*numClients, *threshold, *numServers, *dimension, *epsilon, *rounds, *testField); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(numClients, threshold, numServers, dimension int, epsilon float64, rounds int, testField bool) error {
	roundConfig := protocol.DefaultRoundConfig(threshold, numServers, dimension)
	roundConfig.EpsilonBase = epsilon
	roundConfig.QuorumDeadline = 10 * time.Second
	if testField {
		roundConfig.FieldOrder = crypto.TestFieldOrder
		roundConfig.Group = crypto.TestGroup()
	}

	orch, err := services.NewOrchestrator(&services.OrchestratorConfig{
		RoundConfig: roundConfig,
		NumClients:  numClients,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := common.NewLogger("demo")
	if err := orch.Start(ctx); err != nil {
		return err
	}
	log.Info("Deployment up", "servers", numServers, "clients", numClients,
		"aggregator", orch.AggregatorEndpoint())

	for round := 1; round <= rounds; round++ {
		updates := make([][]float64, numClients)
		sensitivities := make([]float64, numClients)
		for i := range updates {
			updates[i] = make([]float64, dimension)
			for j := range updates[i] {
				updates[i][j] = rand.Float64()*2 - 1
			}
			sensitivities[i] = 1 + rand.Float64()*99
		}

		result, err := orch.RunRound(ctx, round, updates, sensitivities)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		printResult(result)
	}

	return nil
}

func printResult(result *protocol.RoundResult) {
	clientIDs := make([]string, 0, len(result.Updates))
	for id := range result.Updates {
		clientIDs = append(clientIDs, id)
	}
	sort.Strings(clientIDs)

	fmt.Printf("round %d reconstructed %d clients\n", result.RoundNumber, len(clientIDs))
	for _, id := range clientIDs {
		update := result.Updates[id]
		preview := update
		if len(preview) > 4 {
			preview = preview[:4]
		}
		fmt.Printf("  client %s epsilon=%.3f sigma=%.4f update=%.4v...\n",
			id, result.Epsilons[id], result.Sigmas[id], preview)
	}
}
