// Command indexer runs the Ergo-compatible chain indexer: it follows one
// or more upstream nodes, maintains an embedded database of blocks,
// transactions, and boxes, tracks the node's mempool, and serves the
// resulting state over an HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ergo-lite/indexer/internal/chainstore"
	"github.com/ergo-lite/indexer/internal/config"
	"github.com/ergo-lite/indexer/internal/httpapi"
	"github.com/ergo-lite/indexer/internal/logging"
	"github.com/ergo-lite/indexer/internal/mempool"
	"github.com/ergo-lite/indexer/internal/nodeclient"
	"github.com/ergo-lite/indexer/internal/query"
	"github.com/ergo-lite/indexer/internal/syncengine"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()
	log := logging.New("indexer")

	log.Info("starting indexer",
		"nodes", cfg.NodeURLs,
		"network", cfg.Network,
		"db", cfg.DatabasePath,
		"addr", cfg.Host, "port", cfg.Port,
	)

	store, err := chainstore.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open chain store", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	pool := nodeclient.NewPool(cfg.NodeURLs, cfg.NodeAPIKey, log)
	mempoolTracker := mempool.New(pool, store, log, cfg.Network == "mainnet")
	queryEngine := query.New(store.DB(), cfg.Network == "mainnet", mempoolTracker)
	engine := syncengine.New(pool, store, log, cfg.Network == "mainnet", cfg.SyncBatchSize, cfg.SyncInterval)
	server := httpapi.New(store, queryEngine, pool, mempoolTracker, engine, log, cfg.Network, version, cfg.DatabasePath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	go pool.Run(ctx)
	go engine.Run(ctx)
	go mempoolTracker.Run(ctx, cfg.SyncInterval)

	if err := server.Run(ctx, cfg.Host, cfg.Port); err != nil {
		log.Error("http server error", "err", err)
		os.Exit(1)
	}
}
