// Package main provides orderd, one order replica in the three-way
// replicated ledger (spec.md §4.2).
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
	"github.com/klingon-exchange/tradeledger/internal/metrics"
	"github.com/klingon-exchange/tradeledger/internal/orderreplica"
	"github.com/klingon-exchange/tradeledger/pkg/logging"
)

func main() {
	var (
		serverID    = flag.Int("id", 0, "This replica's static id (1, 2, or 3)")
		configFile  = flag.String("config", "", "Config file path (YAML)")
		listenAddr  = flag.String("listen", "", "Listen address, overrides config")
		dbPath      = flag.String("db", "", "Ledger database path, overrides config")
		catalogURL  = flag.String("catalog", "", "Catalog base URL, overrides config")
		pushFanout  = flag.Int("push-fanout", 0, "Bounded concurrency for push fan-out, overrides config")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		metricsAddr = flag.String("metrics", "", "Address to serve /metrics on, empty disables it")
	)
	flag.Parse()

	if *serverID == 0 {
		os.Stderr.WriteString("orderd: -id is required\n")
		os.Exit(2)
	}

	log := logging.New(&logging.Config{Level: *logLevel, TimeFormat: time.TimeOnly, Prefix: "orderd"})
	logging.SetDefault(log)

	cfg := config.DefaultReplicaConfig(*serverID)
	if err := config.Load(*configFile, cfg); err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	cfg.ServerID = *serverID
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *catalogURL != "" {
		cfg.CatalogURL = *catalogURL
	}
	if *pushFanout > 0 {
		cfg.PushFanout = *pushFanout
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	peers := make(map[int]orderreplica.Peer, len(cfg.Peers))
	for id, p := range cfg.Peers {
		peers[id] = orderreplica.Peer{ID: p.ID, BaseURL: p.BaseURL}
	}

	catalogClient := catalogclient.New(cfg.CatalogURL)
	replica, err := orderreplica.New(orderreplica.Config{
		ServerID:   cfg.ServerID,
		Peers:      peers,
		DBPath:     cfg.DBPath,
		PushFanout: cfg.PushFanout,
	}, catalogClient)
	if err != nil {
		log.Fatal("failed to open replica", "error", err)
	}
	log.Info("replica opened", "server-id", cfg.ServerID, "path", cfg.DBPath)

	syncCtx, cancelSync := context.WithTimeout(context.Background(), 10*time.Second)
	replica.SyncOnStartup(syncCtx)
	cancelSync()

	shutdown := make(chan struct{})
	mux := http.NewServeMux()
	orderreplica.NewServer(replica, shutdown).Routes(mux)

	if cfg.MetricsAddr != "" {
		go serveMetrics(log, cfg.MetricsAddr)
	}

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: metrics.Instrument("order-replica", mux)}
	go func() {
		log.Info("replica listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("replica server failed", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("shutting down replica")
	case <-shutdown:
		log.Info("shutdown requested via /shutdown")
	}
}

func serveMetrics(log *logging.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server failed", "error", err)
	}
}
