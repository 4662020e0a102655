package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ergo-lite/indexer/internal/chainstore"
	"github.com/ergo-lite/indexer/internal/query"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeQueryError maps a query/chainstore sentinel error onto the status
// code table from the error handling design: not-found becomes 404,
// anything else is a 500 with the wrapped message.
func writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, query.ErrNotFound) || errors.Is(err, chainstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func paginationFromQuery(r *http.Request) query.Pagination {
	q := r.URL.Query()
	offset, _ := strconv.ParseInt(q.Get("offset"), 10, 64)
	limit, _ := strconv.ParseInt(q.Get("limit"), 10, 64)
	return query.Pagination{Offset: offset, Limit: limit}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	page, err := s.query.Blocks(r.Context(), paginationFromQuery(r))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleBlock resolves {id} as either a 64-character hex block id or a
// decimal height, per spec's "may be block id or decimal height"
// contract.
func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if height, err := strconv.ParseInt(id, 10, 64); err == nil {
		block, err := s.query.BlockByHeight(r.Context(), height)
		if err != nil {
			writeQueryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, block)
		return
	}

	block, err := s.query.BlockByID(r.Context(), id)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func (s *Server) handleBlockAtHeight(w http.ResponseWriter, r *http.Request) {
	heightStr := mux.Vars(r)["height"]
	height, err := strconv.ParseInt(heightStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "height must be a decimal integer")
		return
	}
	block, err := s.query.BlockByHeight(r.Context(), height)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	page, err := s.query.Transactions(r.Context(), paginationFromQuery(r))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleTransactionsByBlock(w http.ResponseWriter, r *http.Request) {
	blockID := mux.Vars(r)["blockId"]
	txs, err := s.query.TransactionsInBlock(r.Context(), blockID)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": txs, "total": len(txs)})
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tx, err := s.query.TransactionByID(r.Context(), id)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleBox(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	box, err := s.query.BoxByID(r.Context(), id)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, box)
}

func (s *Server) handleBoxesByAddress(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	page, err := s.query.BoxesByAddress(r.Context(), address, paginationFromQuery(r))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleUnspentBoxesByAddress(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	page, err := s.query.UnspentBoxesByAddress(r.Context(), address, paginationFromQuery(r))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// boxSearchRequest is the AND-composed predicate body for POST
// /boxes/search; only ergoTreeTemplateHash is resolved against an index,
// assets/registers are accepted for forward compatibility with richer
// box search but are not yet indexed columns.
type boxSearchRequest struct {
	ErgoTreeTemplateHash string          `json:"ergoTreeTemplateHash"`
	Assets               []string        `json:"assets,omitempty"`
	Registers            json.RawMessage `json:"registers,omitempty"`
}

func (s *Server) handleBoxSearch(w http.ResponseWriter, r *http.Request) {
	var req boxSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.ErgoTreeTemplateHash == "" {
		writeError(w, http.StatusBadRequest, "ergoTreeTemplateHash is required")
		return
	}
	page, err := s.query.BoxesByErgoTreeTemplate(r.Context(), req.ErgoTreeTemplateHash, paginationFromQuery(r))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	page, err := s.query.Tokens(r.Context(), paginationFromQuery(r))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleTokenSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("query")
	page, err := s.query.SearchTokens(r.Context(), q, paginationFromQuery(r))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	token, err := s.query.TokenByID(r.Context(), id)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (s *Server) handleTokenHolders(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	page, err := s.query.TokenHolders(r.Context(), id, paginationFromQuery(r))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleTokensByAddress(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	tokens, err := s.query.TokensByAddress(r.Context(), address)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	info, err := s.query.AddressByID(r.Context(), address)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleEpochs(w http.ResponseWriter, r *http.Request) {
	page, err := s.query.Epochs(r.Context(), paginationFromQuery(r))
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("query")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}
	result, err := s.query.Search(r.Context(), q)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	appVersion := ""
	if nodes := s.pool.Nodes(); len(nodes) > 0 {
		appVersion = nodes[0].AppVersion
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"version":    s.version,
		"network":    s.network,
		"appVersion": appVersion,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleNetworkStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.query.NetworkStats(r.Context())
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTableStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, []map[string]any{
		{"name": "blocks", "rowCount": stats.BlockCount},
		{"name": "transactions", "rowCount": stats.TxCount},
		{"name": "boxes", "rowCount": stats.BoxCount},
		{"name": "tokens", "rowCount": stats.TokenCount},
		{"name": "address_stats", "rowCount": stats.AddressCount},
	})
}

func (s *Server) handleMempool(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.mempool.All(), "total": s.mempool.Size()})
}

func (s *Server) handleMempoolTx(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tx, ok := s.mempool.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}
	id, err := s.pool.SubmitTransaction(r.Context(), body)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (s *Server) handleCheckTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}
	id, err := s.pool.CheckTransaction(r.Context(), body)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, id)
}

// handleWalletPassthrough forwards any /api/v1/wallet/* call verbatim to
// the upstream node; the indexer implements no wallet business logic of
// its own, per spec's wallet non-goal.
func (s *Server) handleWalletPassthrough(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}
	path := r.URL.Path[len("/api/v1"):]
	resp, err := s.pool.WalletPassthrough(r.Context(), r.Method, path, body)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(resp)
}

// statusResponse mirrors spec's /status contract exactly.
type statusResponse struct {
	Sync struct {
		IsSyncing       bool                     `json:"isSyncing"`
		SyncProgress    float64                  `json:"syncProgress"`
		LocalHeight     int64                    `json:"localHeight"`
		NodeHeight      int64                    `json:"nodeHeight"`
		BlocksPerSecond float64                  `json:"blocksPerSecond"`
		EtaSeconds      float64                  `json:"etaSeconds"`
		ConnectedNodes  []map[string]any         `json:"connectedNodes"`
	} `json:"sync"`
	Database struct {
		BlockCount int64 `json:"blockCount"`
		TxCount    int64 `json:"txCount"`
		BoxCount   int64 `json:"boxCount"`
		TokenCount int64 `json:"tokenCount"`
		SizeBytes  int64 `json:"sizeBytes"`
	} `json:"database"`
	System struct {
		Version       string  `json:"version"`
		Network       string  `json:"network"`
		UptimeSeconds float64 `json:"uptimeSeconds"`
		MemoryUsageMb float64 `json:"memoryUsageMb"`
	} `json:"system"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	engineStatus := s.engine.Status(ctx)

	var resp statusResponse
	resp.Sync.IsSyncing = engineStatus.State != "caught_up" && engineStatus.State != "idle"
	if engineStatus.NodeHeight > 0 {
		progress := float64(engineStatus.LocalHeight) / float64(engineStatus.NodeHeight)
		if progress > 1 {
			progress = 1
		}
		if progress < 0 {
			progress = 0
		}
		resp.Sync.SyncProgress = progress
	}
	resp.Sync.LocalHeight = engineStatus.LocalHeight
	resp.Sync.NodeHeight = engineStatus.NodeHeight
	resp.Sync.BlocksPerSecond = engineStatus.BlocksPerSecond
	resp.Sync.EtaSeconds = engineStatus.EtaSeconds

	for _, n := range s.pool.Nodes() {
		resp.Sync.ConnectedNodes = append(resp.Sync.ConnectedNodes, map[string]any{
			"url":              n.URL,
			"connected":        n.Connected,
			"appVersion":       n.AppVersion,
			"stateType":        n.StateType,
			"height":           n.Height,
			"headersHeight":    n.HeadersHeight,
			"maxPeerHeight":    n.Height,
			"peersCount":       n.PeersCount,
			"unconfirmedCount": n.UnconfirmedCount,
			"isMining":         n.IsMining,
			"difficulty":       n.Difficulty,
			"latencyMs":        n.LatencyMs,
		})
	}

	if stats, err := s.store.Stats(ctx); err == nil {
		resp.Database.BlockCount = stats.BlockCount
		resp.Database.TxCount = stats.TxCount
		resp.Database.BoxCount = stats.BoxCount
		resp.Database.TokenCount = stats.TokenCount
	}
	if fi, err := os.Stat(s.dbPath); err == nil {
		resp.Database.SizeBytes = fi.Size()
	}

	resp.System.Version = s.version
	resp.System.Network = s.network
	resp.System.UptimeSeconds = time.Since(s.startedAt).Seconds()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	resp.System.MemoryUsageMb = float64(mem.Alloc) / (1024 * 1024)

	writeJSON(w, http.StatusOK, resp)
}
