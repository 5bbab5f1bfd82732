package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/deadmanoz/data-carry-research-sub003/internal/analytics"
	"github.com/deadmanoz/data-carry-research-sub003/internal/decode"
	"github.com/deadmanoz/data-carry-research-sub003/internal/enrich"
	"github.com/deadmanoz/data-carry-research-sub003/internal/ingest"
	"github.com/deadmanoz/data-carry-research-sub003/internal/rpcclient"
	"github.com/deadmanoz/data-carry-research-sub003/internal/store"
	"github.com/deadmanoz/data-carry-research-sub003/internal/webapi"
	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

// Config collects every environment-driven setting the pipeline needs.
// All credentials come from the environment; see .env.example.
type Config struct {
	SQLitePath         string
	CSVPath            string
	OutputRoot         string
	BTCHost            string
	BTCUser            string
	BTCPass            string
	BatchSize          int
	CheckpointInterval int64
	ConcurrentRequests int
	ServePort          string
}

func loadConfig() Config {
	return Config{
		SQLitePath:         getEnvOrDefault("DATACARRY_DB_PATH", "./datacarry.db"),
		CSVPath:            getEnvOrDefault("DATACARRY_CSV_PATH", "./utxo.csv"),
		OutputRoot:         getEnvOrDefault("DATACARRY_OUTPUT_ROOT", "./decoded"),
		BTCHost:            getEnvOrDefault("BTC_RPC_HOST", "localhost:8332"),
		BTCUser:            requireEnv("BTC_RPC_USER"),
		BTCPass:            requireEnv("BTC_RPC_PASS"),
		BatchSize:          5000,
		CheckpointInterval: 10000,
		ConcurrentRequests: 8,
		ServePort:          getEnvOrDefault("PORT", "5340"),
	}
}

func main() {
	log.Println("Starting data-carry-research-sub003 pipeline...")

	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <ingest|enrich|classify|decode|run> [flags]", os.Args[0])
	}
	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	serve := fs.Bool("serve", false, "mount the read-only analytics/progress HTTP+websocket surface (run only)")
	_ = fs.Parse(os.Args[2:])

	defer func() {
		if r := recover(); r != nil {
			log.Printf("FATAL: unrecovered panic: %v", r)
			panic(r)
		}
	}()

	cfg := loadConfig()

	s, err := store.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("FATAL: open store: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received, finishing current batch...")
		cancel()
	}()

	switch cmd {
	case "ingest":
		runIngest(ctx, s, cfg)
	case "enrich":
		runEnrich(ctx, s, cfg)
	case "classify":
		runClassify(ctx, s)
	case "decode":
		runDecode(ctx, s, cfg)
	case "run":
		runAll(ctx, s, cfg, *serve)
	default:
		log.Fatalf("FATAL: unknown subcommand %q", cmd)
	}

	log.Println("datacarry: done")
}

func runIngest(ctx context.Context, s *store.Store, cfg Config) {
	f, err := os.Open(cfg.CSVPath)
	if err != nil {
		log.Fatalf("FATAL: open csv %s: %v", cfg.CSVPath, err)
	}
	defer f.Close()

	icfg := ingest.Config{BatchSize: cfg.BatchSize, CheckpointInterval: cfg.CheckpointInterval}
	stats, err := ingest.Run(ctx, s, f, icfg)
	logStats("Stage1", stats, err)
}

func runEnrich(ctx context.Context, s *store.Store, cfg Config) {
	rpc, err := newRPCClient(cfg)
	if err != nil {
		log.Fatalf("FATAL: connect to bitcoin rpc: %v", err)
	}
	defer rpc.Shutdown()

	ecfg := enrich.Config{BatchSize: cfg.BatchSize, ConcurrentRequests: cfg.ConcurrentRequests}
	for {
		if ctx.Err() != nil {
			return
		}
		stats, err := enrich.Run(ctx, s, rpc, ecfg)
		logStats("Stage2", stats, err)
		if err != nil || stats.TotalRecords == 0 {
			return
		}
	}
}

func runClassify(ctx context.Context, s *store.Store) {
	for {
		if ctx.Err() != nil {
			return
		}
		stats, err := RunClassifyStage(ctx, s, 1000)
		logStats("Stage3", stats, err)
		if err != nil || stats.TotalRecords == 0 {
			return
		}
	}
}

func runDecode(ctx context.Context, s *store.Store, cfg Config) {
	w := decode.NewWriter(cfg.OutputRoot)
	for {
		if ctx.Err() != nil {
			return
		}
		stats, err := RunDecodeStage(ctx, s, w, 1000)
		logStats("Stage4", stats, err)
		if err != nil || stats.TotalRecords == 0 {
			return
		}
	}
}

func runAll(ctx context.Context, s *store.Store, cfg Config, serve bool) {
	if serve {
		go func() {
			router := webapi.NewRouter(s, analytics.New(s.DB()))
			log.Printf("webapi: listening on :%s", cfg.ServePort)
			if err := router.Run(":" + cfg.ServePort); err != nil {
				log.Printf("webapi: stopped: %v", err)
			}
		}()
	}

	runIngest(ctx, s, cfg)
	if ctx.Err() != nil {
		return
	}
	runEnrich(ctx, s, cfg)
	if ctx.Err() != nil {
		return
	}
	runClassify(ctx, s)
	if ctx.Err() != nil {
		return
	}
	runDecode(ctx, s, cfg)

	if serve {
		log.Println("run: pipeline drained, webapi still serving — Ctrl-C to stop")
		<-ctx.Done()
	}
}

func newRPCClient(cfg Config) (*rpcclient.Client, error) {
	return rpcclient.New(rpcclient.Config{
		Host: cfg.BTCHost,
		User: cfg.BTCUser,
		Pass: cfg.BTCPass,
	}, rpcclient.DefaultRetryPolicy())
}

func logStats(stage string, stats models.StageStats, err error) {
	if err != nil {
		log.Printf("[%s] aborted: %v", stage, err)
		return
	}
	log.Printf("[%s] total=%d processed=%d skipped_invalid=%d skipped_rpc=%d skipped_crypto=%d skipped_decode=%d batches=%d errors=%d",
		stage, stats.TotalRecords, stats.Processed, stats.SkippedInvalid, stats.SkippedRPCFailure,
		stats.SkippedCrypto, stats.SkippedDecode, stats.BatchesCommitted, len(stats.Errors))
	for _, e := range stats.Errors {
		log.Printf("[%s] error: %v", stage, e)
	}
}

func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: required environment variable %s is not set. "+
			"Copy .env.example to .env and fill in your values: cp .env.example .env", key)
	}
	return val
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
