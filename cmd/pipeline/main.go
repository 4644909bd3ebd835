// Package main provides a one-shot pipeline runner for manual use:
// trigger a query, block until it completes, store its rows.
// Useful for backfills and for verifying credentials outside the scheduler.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"protocol-pulse/internal/dune"
	"protocol-pulse/internal/ingestion"
	"protocol-pulse/internal/storage"
	"protocol-pulse/internal/storage/memory"
	"protocol-pulse/internal/storage/migrations"
	pgstore "protocol-pulse/internal/storage/postgres"
)

func main() {
	duneAPIKey := flag.String("dune-api-key", os.Getenv("DUNE_API_KEY"), "Dune Analytics API key")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	queries := flag.String("queries", "", "Comma-separated query IDs to run (default: all registered)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (dry run)")
	maxWait := flag.Int("max-wait-attempts", ingestion.DefaultMaxWaitAttempts, "Polls before giving up on an execution")
	flag.Parse()

	logger := log.New(os.Stdout, "[pipeline] ", log.LstdFlags)

	if *duneAPIKey == "" {
		logger.Fatal("--dune-api-key is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for a dry run)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queryIDs, err := parseQueryIDs(*queries)
	if err != nil {
		logger.Fatalf("bad --queries: %v", err)
	}

	var (
		executions   storage.ExecutionStore
		walletStats  storage.WalletStatStore
		revenueStats storage.RevenueStatStore
		protocolTVLs storage.ProtocolTVLStore
	)
	if *useMemory {
		executions = memory.NewExecutionStore()
		walletStats = memory.NewWalletStatStore()
		revenueStats = memory.NewRevenueStatStore()
		protocolTVLs = memory.NewProtocolTVLStore()
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("postgres connect failed: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("migrations failed: %v", err)
		}
		executions = pgstore.NewExecutionStore(pool)
		walletStats = pgstore.NewWalletStatStore(pool)
		revenueStats = pgstore.NewRevenueStatStore(pool)
		protocolTVLs = pgstore.NewProtocolTVLStore(pool)
	}

	client := dune.NewClient(*duneAPIKey)

	processor := ingestion.NewProcessor(logger)
	processor.Register(ingestion.QueryWalletStats, ingestion.WalletStatHandler(walletStats))
	processor.Register(ingestion.QueryRevenue, ingestion.RevenueHandler(revenueStats))
	processor.Register(ingestion.QueryFlowTVL, ingestion.ProtocolTVLHandler(protocolTVLs))

	trigger := ingestion.NewTrigger(client, executions, logger)
	poller := ingestion.NewPoller(ingestion.PollerOptions{
		Client:     client,
		Executions: executions,
		Processor:  processor,
		Logger:     logger,
	})

	exitCode := 0
	for _, queryID := range queryIDs {
		executionID, err := trigger.Run(ctx, queryID)
		if err != nil {
			logger.Printf("query %d: trigger failed: %v", queryID, err)
			exitCode = 1
			continue
		}

		rec, err := poller.WaitForCompletion(ctx, executionID, *maxWait)
		if err != nil {
			logger.Printf("query %d: wait failed: %v", queryID, err)
			exitCode = 1
			continue
		}

		rows := int64(0)
		if rec.RowCount != nil {
			rows = *rec.RowCount
		}
		logger.Printf("query %d: execution %s finished %s (%d rows)",
			queryID, executionID, rec.Status, rows)
	}
	os.Exit(exitCode)
}

// parseQueryIDs parses the --queries flag, defaulting to all registered
// analytics queries.
func parseQueryIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return []int64{ingestion.QueryWalletStats, ingestion.QueryRevenue, ingestion.QueryFlowTVL}, nil
	}
	var out []int64
	for _, part := range strings.Split(s, ",") {
		var id int64
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d", &id); err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid query ID %q", part)
		}
		out = append(out, id)
	}
	return out, nil
}
