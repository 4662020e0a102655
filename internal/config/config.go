// Package config parses indexer configuration from flags and environment
// variables, flags taking precedence when explicitly set.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all tunables for the indexer process.
type Config struct {
	NodeURLs      []string
	NodeAPIKey    string
	DatabasePath  string
	Host          string
	Port          int
	Network       string
	SyncBatchSize int
	SyncInterval  time.Duration
}

// Load builds a Config from command-line flags, falling back to
// environment variables, then to defaults.
func Load() Config {
	cfg := Config{
		NodeURLs:      splitCSV(os.Getenv("ERGO_NODES")),
		NodeAPIKey:    os.Getenv("NODE_API_KEY"),
		DatabasePath:  os.Getenv("DATABASE_PATH"),
		Host:          os.Getenv("HOST"),
		Port:          envInt("PORT", 0),
		Network:       os.Getenv("NETWORK"),
		SyncBatchSize: envInt("SYNC_BATCH_SIZE", 0),
		SyncInterval:  envDuration("SYNC_INTERVAL", 0),
	}

	var nodeURLs string
	flag.StringVar(&nodeURLs, "nodes", strings.Join(cfg.NodeURLs, ","), "comma-separated Ergo node URLs")
	flag.StringVar(&cfg.NodeAPIKey, "api-key", cfg.NodeAPIKey, "node API key header")
	flag.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "path to the embedded database file")
	flag.StringVar(&cfg.Host, "host", cfg.Host, "HTTP bind host")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP bind port")
	flag.StringVar(&cfg.Network, "network", cfg.Network, "network name (mainnet/testnet)")
	flag.IntVar(&cfg.SyncBatchSize, "sync-batch-size", cfg.SyncBatchSize, "blocks fetched per sync window")
	flag.DurationVar(&cfg.SyncInterval, "sync-interval", cfg.SyncInterval, "delay between sync cycles once caught up")
	flag.Parse()

	cfg.NodeURLs = splitCSV(nodeURLs)

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "./data/indexer.db"
	}
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Network == "" {
		cfg.Network = "mainnet"
	}
	if cfg.SyncBatchSize == 0 {
		cfg.SyncBatchSize = 32
	}
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = 5 * time.Second
	}
	if len(cfg.NodeURLs) == 0 {
		cfg.NodeURLs = []string{"http://127.0.0.1:9053"}
	}

	return cfg
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
