// Package main provides frontendd, the stateless HTTP gateway in front of
// the catalog and the replicated order ledger (spec.md §4.3).
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klingon-exchange/tradeledger/internal/catalogclient"
	"github.com/klingon-exchange/tradeledger/internal/config"
	"github.com/klingon-exchange/tradeledger/internal/frontend"
	"github.com/klingon-exchange/tradeledger/internal/metrics"
	"github.com/klingon-exchange/tradeledger/pkg/logging"
)

func main() {
	var (
		configFile    = flag.String("config", "", "Config file path (YAML)")
		listenAddr    = flag.String("listen", "", "Listen address, overrides config")
		catalogURL    = flag.String("catalog", "", "Catalog base URL, overrides config")
		cacheCapacity = flag.Int("cache-capacity", 0, "Bounded LRU cache capacity, overrides config")
		pingTimeout   = flag.Duration("ping-timeout", 0, "Per-probe election timeout, overrides config")
		logLevel      = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		metricsAddr   = flag.String("metrics", "", "Address to serve /metrics on, empty disables it")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: *logLevel, TimeFormat: time.TimeOnly, Prefix: "frontendd"})
	logging.SetDefault(log)

	cfg := config.DefaultFrontEndConfig()
	if err := config.Load(*configFile, cfg); err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *catalogURL != "" {
		cfg.CatalogURL = *catalogURL
	}
	if *cacheCapacity > 0 {
		cfg.CacheCapacity = *cacheCapacity
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	timeout, err := time.ParseDuration(cfg.PingTimeout)
	if err != nil {
		timeout = 2 * time.Second
	}
	if *pingTimeout > 0 {
		timeout = *pingTimeout
	}

	replicas := make(map[int]frontend.Peer, len(cfg.Replicas))
	for id, p := range cfg.Replicas {
		replicas[id] = frontend.Peer{ID: p.ID, BaseURL: p.BaseURL}
	}

	cache := frontend.NewCache(cfg.CacheCapacity)
	catalogClient := catalogclient.New(cfg.CatalogURL)
	forwarder := frontend.NewForwarder(replicas, timeout, len(replicas))

	mux := http.NewServeMux()
	frontend.NewServer(cache, catalogClient, forwarder).Routes(mux)

	electCtx, cancelElect := context.WithTimeout(context.Background(), timeout*time.Duration(len(replicas)+1))
	if err := forwarder.EnsureLeader(electCtx); err != nil {
		log.Warn("no leader elected at startup, will elect on first request", "error", err)
	} else {
		log.Info("elected leader at startup", "leader-id", forwarder.CurrentLeader())
	}
	cancelElect()

	if cfg.MetricsAddr != "" {
		go serveMetrics(log, cfg.MetricsAddr)
	}

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: metrics.Instrument("frontend", mux)}
	go func() {
		log.Info("front-end listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("front-end server failed", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down front-end")
}

func serveMetrics(log *logging.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server failed", "error", err)
	}
}
