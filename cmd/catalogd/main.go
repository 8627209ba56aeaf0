// Package main provides catalogd, the instrument catalog service
// (spec.md §4.1).
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klingon-exchange/tradeledger/internal/catalog"
	"github.com/klingon-exchange/tradeledger/internal/config"
	"github.com/klingon-exchange/tradeledger/internal/metrics"
	"github.com/klingon-exchange/tradeledger/pkg/logging"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Config file path (YAML)")
		listenAddr  = flag.String("listen", "", "Listen address, overrides config")
		dbPath      = flag.String("db", "", "Catalog database path, overrides config")
		frontEndURL = flag.String("front-end", "", "Front-end base URL to notify on update, overrides config")
		cacheMode   = flag.Bool("cache-mode", true, "Notify the front-end on every update, overrides config")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		metricsAddr = flag.String("metrics", "", "Address to serve /metrics on, empty disables it")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: *logLevel, TimeFormat: time.TimeOnly, Prefix: "catalogd"})
	logging.SetDefault(log)

	cfg := config.DefaultCatalogConfig()
	if err := config.Load(*configFile, cfg); err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *frontEndURL != "" {
		cfg.FrontEndURL = *frontEndURL
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "cache-mode" {
			cfg.CacheMode = *cacheMode
		}
	})
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	var notifier catalog.Notifier = catalog.NopNotifier{}
	if cfg.CacheMode && cfg.FrontEndURL != "" {
		notifier = catalog.NewHTTPNotifier(cfg.FrontEndURL)
	}

	store, err := catalog.Open(catalog.Config{DBPath: cfg.DBPath, CacheMode: cfg.CacheMode}, notifier)
	if err != nil {
		log.Fatal("failed to open catalog", "error", err)
	}
	log.Info("catalog opened", "path", cfg.DBPath)

	mux := http.NewServeMux()
	catalog.NewServer(store).Routes(mux)

	if cfg.MetricsAddr != "" {
		go serveMetrics(log, cfg.MetricsAddr)
	}

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: metrics.Instrument("catalog", mux)}
	go func() {
		log.Info("catalog listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("catalog server failed", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down catalog")
}

func serveMetrics(log *logging.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server failed", "error", err)
	}
}
