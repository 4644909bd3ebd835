// Package main runs the analytics backend: scheduler-invoked HTTP endpoints
// for every pipeline stage, an optional in-process cron fallback, and a
// Prometheus metrics listener.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"protocol-pulse/internal/aggregation"
	"protocol-pulse/internal/dune"
	"protocol-pulse/internal/gecko"
	"protocol-pulse/internal/ingestion"
	"protocol-pulse/internal/llama"
	"protocol-pulse/internal/observability"
	"protocol-pulse/internal/runlog"
	"protocol-pulse/internal/screening"
	"protocol-pulse/internal/server"
	"protocol-pulse/internal/storage"
	chstore "protocol-pulse/internal/storage/clickhouse"
	"protocol-pulse/internal/storage/memory"
	"protocol-pulse/internal/storage/migrations"
	pgstore "protocol-pulse/internal/storage/postgres"
)

// allStores holds all storage implementations.
type allStores struct {
	executions   storage.ExecutionStore
	walletStats  storage.WalletStatStore
	protocolTVLs storage.ProtocolTVLStore
	revenueStats storage.RevenueStatStore
	tokens       storage.TokenStore
	snapshots    storage.TokenSnapshotStore
	thresholds   storage.ThresholdStore
	summaries    storage.SummaryStore
	runLogs      storage.RunLogStore

	close func()
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	duneAPIKey := flag.String("dune-api-key", os.Getenv("DUNE_API_KEY"), "Dune Analytics API key")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	cronSecret := flag.String("cron-secret", os.Getenv("CRON_SECRET"), "Bearer secret for scheduled invocations")
	debugKey := flag.String("debug-key", os.Getenv("DEBUG_KEY"), "X-Debug-Key for manual invocations")
	protocols := flag.String("protocols", envOr("DEFI_PROTOCOLS", "uniswap,aave,lido"), "Comma-separated DeFiLlama protocol slugs")
	geckoNetwork := flag.String("gecko-network", envOr("GECKO_NETWORK", "eth"), "GeckoTerminal network slug")
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	schedule := flag.Bool("schedule", false, "Run the internal cron schedule instead of relying on an external scheduler")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *duneAPIKey == "" {
		logger.Fatal("--dune-api-key is required")
	}
	if *cronSecret == "" {
		logger.Fatal("--cron-secret is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := buildStores(ctx, *useMemory, *postgresDSN, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("storage setup failed: %v", err)
	}
	defer stores.close()

	// Providers
	duneClient := dune.NewClient(*duneAPIKey)
	llamaClient := llama.NewClient()
	geckoClient := gecko.NewClient(*geckoNetwork)

	// Pipeline components
	processor := ingestion.NewProcessor(log.New(os.Stdout, "[processor] ", log.LstdFlags))
	processor.Register(ingestion.QueryWalletStats, ingestion.WalletStatHandler(stores.walletStats))
	processor.Register(ingestion.QueryRevenue, ingestion.RevenueHandler(stores.revenueStats))
	processor.Register(ingestion.QueryFlowTVL, ingestion.ProtocolTVLHandler(stores.protocolTVLs))

	trigger := ingestion.NewTrigger(duneClient, stores.executions, log.New(os.Stdout, "[trigger] ", log.LstdFlags))
	poller := ingestion.NewPoller(ingestion.PollerOptions{
		Client:     duneClient,
		Executions: stores.executions,
		Processor:  processor,
		Logger:     log.New(os.Stdout, "[poller] ", log.LstdFlags),
	})
	tvlJob := ingestion.NewTVLJob(llamaClient, stores.protocolTVLs, splitList(*protocols),
		log.New(os.Stdout, "[tvl] ", log.LstdFlags))
	refresher := screening.NewRefresher(geckoClient, stores.tokens, stores.snapshots,
		log.New(os.Stdout, "[tokens] ", log.LstdFlags))
	aggregator := aggregation.NewAggregator(stores.tokens, stores.snapshots, stores.summaries,
		log.New(os.Stdout, "[aggregate] ", log.LstdFlags))
	evaluator := screening.NewEvaluator(stores.tokens, stores.snapshots, stores.thresholds,
		log.New(os.Stdout, "[screen] ", log.LstdFlags))
	recorder := runlog.NewRecorder(stores.runLogs, log.New(os.Stdout, "[runlog] ", log.LstdFlags))

	srv, err := server.New(server.Options{
		Trigger:      trigger,
		Poller:       poller,
		TVLJob:       tvlJob,
		Refresher:    refresher,
		Aggregator:   aggregator,
		Evaluator:    evaluator,
		Recorder:     recorder,
		WalletStats:  stores.walletStats,
		ProtocolTVLs: stores.protocolTVLs,
		RevenueStats: stores.revenueStats,
		Summaries:    stores.summaries,
		CronSecret:   *cronSecret,
		DebugKey:     *debugKey,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatalf("server setup failed: %v", err)
	}

	// Prometheus metrics listener
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		logger.Printf("metrics listening on %s", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			logger.Printf("metrics server error: %v", err)
		}
	}()

	// Optional internal schedule for deployments without an external cron
	if *schedule {
		c := startSchedule(ctx, logger, trigger, poller, tvlJob, refresher, aggregator, evaluator)
		defer c.Stop()
	}

	httpServer := &http.Server{
		Addr:              *listenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown error: %v", err)
		}
	}()

	logger.Printf("listening on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
	logger.Println("shut down")
}

// buildStores connects PostgreSQL and ClickHouse, runs migrations and wires
// the store set. With useMemory everything lives in process memory.
func buildStores(ctx context.Context, useMemory bool, postgresDSN, clickhouseDSN string) (*allStores, error) {
	if useMemory {
		return &allStores{
			executions:   memory.NewExecutionStore(),
			walletStats:  memory.NewWalletStatStore(),
			protocolTVLs: memory.NewProtocolTVLStore(),
			revenueStats: memory.NewRevenueStatStore(),
			tokens:       memory.NewTokenStore(),
			snapshots:    memory.NewTokenSnapshotStore(),
			thresholds:   memory.NewThresholdStore(),
			summaries:    memory.NewSummaryStore(),
			runLogs:      memory.NewRunLogStore(),
			close:        func() {},
		}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	var conn *chstore.Conn
	conn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &allStores{
		executions:   pgstore.NewExecutionStore(pool),
		walletStats:  pgstore.NewWalletStatStore(pool),
		protocolTVLs: pgstore.NewProtocolTVLStore(pool),
		revenueStats: pgstore.NewRevenueStatStore(pool),
		tokens:       pgstore.NewTokenStore(pool),
		snapshots:    pgstore.NewTokenSnapshotStore(pool),
		thresholds:   pgstore.NewThresholdStore(pool),
		summaries:    chstore.NewSummaryStore(conn),
		runLogs:      pgstore.NewRunLogStore(pool),
		close: func() {
			conn.Close()
			pool.Close()
		},
	}, nil
}

// startSchedule runs every stage on a fixed cadence. The HTTP endpoints stay
// live either way; this just removes the external scheduler dependency.
func startSchedule(ctx context.Context, logger *log.Logger,
	trigger *ingestion.Trigger, poller *ingestion.Poller, tvlJob *ingestion.TVLJob,
	refresher *screening.Refresher, aggregator *aggregation.Aggregator, evaluator *screening.Evaluator) *cron.Cron {

	c := cron.New()

	mustAdd := func(spec, name string, fn func(context.Context) error) {
		_, err := c.AddFunc(spec, func() {
			if err := fn(ctx); err != nil {
				logger.Printf("scheduled %s failed: %v", name, err)
			}
		})
		if err != nil {
			logger.Fatalf("bad cron spec %q for %s: %v", spec, name, err)
		}
	}

	mustAdd("5 0 * * *", "trigger", func(ctx context.Context) error {
		for _, queryID := range []int64{ingestion.QueryWalletStats, ingestion.QueryRevenue, ingestion.QueryFlowTVL} {
			if _, err := trigger.Run(ctx, queryID); err != nil {
				return err
			}
		}
		return nil
	})
	mustAdd("*/5 * * * *", "poll", func(ctx context.Context) error {
		_, err := poller.Run(ctx)
		return err
	})
	mustAdd("0 * * * *", "tvl", func(ctx context.Context) error {
		_, err := tvlJob.Run(ctx)
		return err
	})
	mustAdd("*/10 * * * *", "tokens", func(ctx context.Context) error {
		_, err := refresher.Run(ctx)
		return err
	})
	mustAdd("*/15 * * * *", "aggregate", func(ctx context.Context) error {
		_, err := aggregator.Run(ctx)
		return err
	})
	mustAdd("30 * * * *", "screen", func(ctx context.Context) error {
		_, err := evaluator.Run(ctx)
		return err
	})

	c.Start()
	logger.Println("internal schedule started")
	return c
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
