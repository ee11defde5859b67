// Command csv2parquet watches an input directory for new CSV files, converts
// each valid file to a Parquet artifact, appends its rows to the configured
// relational table, and deletes the source. It runs until interrupted and
// prints a run summary on shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/config"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/dataset"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/metrics"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/metrics/prompush"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/pipeline"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/schema"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/storage"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/watch"

	// register all sink backends with the storage factory.
	_ "github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/storage/all"
)

func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "config.yaml", "application config YAML path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	// The conversion log is an append-only file mirrored to stderr.
	if cfg.LogFile != "" {
		lf, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fatalf("open log file: %v", err)
		}
		defer lf.Close()
		log.SetOutput(io.MultiWriter(os.Stderr, lf))
	}

	setupMetrics(metricsBackendFlg, pushGatewayURLFlg)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	catalog, err := schema.Load(cfg.Schema.ColumnsFile)
	if err != nil {
		fatalf("load schema: %v", err)
	}

	if err := os.MkdirAll(cfg.Watch.OutputDir, 0o755); err != nil {
		fatalf("create output dir: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, err := storage.Open(ctx, storage.Config{
		Kind:     cfg.Storage.Kind,
		DSN:      cfg.Storage.DB.DSN,
		Host:     cfg.Storage.DB.Host,
		Port:     cfg.Storage.DB.Port,
		User:     cfg.Storage.DB.User,
		Password: cfg.Storage.DB.Password,
		Database: cfg.Storage.DB.Database,
	})
	if err != nil {
		fatalf("open sink: %v", err)
	}
	defer sink.Close()

	// Table creation happens once at startup, from the SQL schema file. A
	// missing file is fatal to this step only when the table does not exist
	// yet; appends against a pre-existing table still work.
	if sqlSchema, err := schema.LoadSQL(cfg.Schema.SQLFile); err != nil {
		log.Printf("sql schema unavailable (%v); skipping table creation", err)
	} else {
		if err := sink.EnsureTable(ctx, sqlSchema.Table, sqlSchema.Columns); err != nil {
			fatalf("ensure table: %v", err)
		}
	}

	stats := &pipeline.Stats{}
	pl := pipeline.New(catalog, sink, cfg.Storage.Table, cfg.Watch.OutputDir,
		dataset.Options{Comma: cfg.Watch.Comma()}, stats)

	loop := watch.New(cfg.Watch.InputDir, pl)
	fmt.Println("Watching input CSV folder...")
	log.Printf("watching input folder %s", cfg.Watch.InputDir)

	if err := loop.Run(ctx); err != nil {
		log.Printf("watch loop: %v", err)
	}

	if *verbose || stats.TotalParquetFiles() > 0 {
		log.Printf("summary: %s", stats.Summary())
		fmt.Println(stats.Summary())
	}
}

// setupMetrics decides the metrics backend: flag, then env, then default nop.
func setupMetrics(backendName, gwURL string) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend("csv2parquet", gwURL)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=pushgateway url=%s", gwURL)
		metrics.SetBackend(b)
	case "", "none":
		// metrics disabled; nop backend remains
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
