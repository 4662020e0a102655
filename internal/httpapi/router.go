// Package httpapi assembles the gorilla/mux router, CORS middleware, and
// handlers that expose the query engine, mempool tracker, node pool, and
// sync engine over HTTP, following the teacher's StartHTTPServer shape.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ergo-lite/indexer/internal/chainstore"
	"github.com/ergo-lite/indexer/internal/mempool"
	"github.com/ergo-lite/indexer/internal/nodeclient"
	"github.com/ergo-lite/indexer/internal/query"
	"github.com/ergo-lite/indexer/internal/syncengine"
)

// Server bundles the dependencies handlers need.
type Server struct {
	store   *chainstore.Store
	query   *query.Engine
	pool    *nodeclient.Pool
	mempool *mempool.Tracker
	engine  *syncengine.Engine
	feed    *StatusFeed
	log     *slog.Logger
	network string
	version string
	dbPath  string
	startedAt time.Time
}

// New builds a Server bundling every component the handlers reach into.
func New(store *chainstore.Store, q *query.Engine, pool *nodeclient.Pool, mp *mempool.Tracker, engine *syncengine.Engine, log *slog.Logger, network, version, dbPath string) *Server {
	s := &Server{
		store:     store,
		query:     q,
		pool:      pool,
		mempool:   mp,
		engine:    engine,
		log:       log,
		network:   network,
		version:   version,
		dbPath:    dbPath,
		startedAt: time.Now(),
	}
	s.feed = NewStatusFeed(engine, log)
	return s
}

// Router builds the full mux.Router: /api/v1 resource endpoints, a
// root-level /status and /status/stream, and /health.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/blocks", s.handleBlocks).Methods("GET")
	api.HandleFunc("/blocks/at/{height}", s.handleBlockAtHeight).Methods("GET")
	api.HandleFunc("/blocks/{id}", s.handleBlock).Methods("GET")
	api.HandleFunc("/transactions", s.handleTransactions).Methods("GET")
	api.HandleFunc("/transactions/byBlock/{blockId}", s.handleTransactionsByBlock).Methods("GET")
	api.HandleFunc("/transactions/{id}", s.handleTransaction).Methods("GET")
	api.HandleFunc("/transactions/submit", s.handleSubmitTransaction).Methods("POST")
	api.HandleFunc("/transactions/check", s.handleCheckTransaction).Methods("POST")
	api.HandleFunc("/boxes/{id}", s.handleBox).Methods("GET")
	api.HandleFunc("/boxes/byAddress/{address}", s.handleBoxesByAddress).Methods("GET")
	api.HandleFunc("/boxes/unspent/byAddress/{address}", s.handleUnspentBoxesByAddress).Methods("GET")
	api.HandleFunc("/boxes/search", s.handleBoxSearch).Methods("POST")
	api.HandleFunc("/tokens", s.handleTokens).Methods("GET")
	api.HandleFunc("/tokens/search", s.handleTokenSearch).Methods("GET")
	api.HandleFunc("/tokens/{id}", s.handleToken).Methods("GET")
	api.HandleFunc("/tokens/{id}/holders", s.handleTokenHolders).Methods("GET")
	api.HandleFunc("/tokens/byAddress/{address}", s.handleTokensByAddress).Methods("GET")
	api.HandleFunc("/addresses/{address}", s.handleAddress).Methods("GET")
	api.HandleFunc("/epochs", s.handleEpochs).Methods("GET")
	api.HandleFunc("/search", s.handleSearch).Methods("GET")
	api.HandleFunc("/info", s.handleInfo).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/stats/network", s.handleNetworkStats).Methods("GET")
	api.HandleFunc("/stats/tables", s.handleTableStats).Methods("GET")
	api.HandleFunc("/mempool", s.handleMempool).Methods("GET")
	api.HandleFunc("/mempool/{id}", s.handleMempoolTx).Methods("GET")

	api.PathPrefix("/wallet/").HandlerFunc(s.handleWalletPassthrough)

	r.HandleFunc("/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/status/stream", s.feed.HandleWebSocket)
	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	return corsMiddleware(r)
}

// Run serves the router until ctx is cancelled, shutting the server down
// gracefully, and starts the status feed's broadcast loop alongside it.
func (s *Server) Run(ctx context.Context, host string, port int) error {
	go s.feed.Run(ctx)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.log.Info("http api listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, api_key")
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
