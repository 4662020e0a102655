package mempool

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ergo-lite/indexer/internal/chainstore"
	"github.com/ergo-lite/indexer/internal/ergotree"
	"github.com/ergo-lite/indexer/internal/nodeclient"
)

const testP2PKTree = "0008cd0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *chainstore.Store {
	t.Helper()
	s, err := chainstore.Open(filepath.Join(t.TempDir(), "indexer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTrackerStartsEmpty(t *testing.T) {
	store := openTestStore(t)
	tr := New(nodeclient.NewPool(nil, "", testLogger()), store, testLogger(), true)
	require.Equal(t, 0, tr.Size())
	require.Empty(t, tr.All())
	_, ok := tr.Get("whatever")
	require.False(t, ok)
	require.Equal(t, int64(0), tr.UnconfirmedDelta("anyaddr"))
}

func TestTrackerRefreshIndexesByTxIDAndAddress(t *testing.T) {
	store := openTestStore(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		txs := []nodeclient.MempoolTransaction{
			{
				Transaction: nodeclient.Transaction{
					ID: "tx1",
					Outputs: []nodeclient.Output{
						{BoxID: "box1", Value: 100, ErgoTree: testP2PKTree},
					},
				},
				CreationTimestamp: 1700000000,
			},
		}
		json.NewEncoder(w).Encode(txs)
	}))
	defer srv.Close()

	pool := nodeclient.NewPool([]string{srv.URL}, "", testLogger())

	tr := New(pool, store, testLogger(), true)
	tr.refresh(context.Background())

	require.Equal(t, 1, tr.Size())
	tx, ok := tr.Get("tx1")
	require.True(t, ok)
	require.Equal(t, "tx1", tx.ID)

	wantAddr := ergotree.AddressFromErgoTree(testP2PKTree, true)
	require.Equal(t, []string{"tx1"}, tr.ByAddress(wantAddr))
	require.Equal(t, int64(100), tr.UnconfirmedDelta(wantAddr))
}

func TestTrackerRefreshIndexesInputAddressAndDebitsDelta(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	spenderAddr := ergotree.AddressFromErgoTree(testP2PKTree, true)
	require.NoError(t, store.ApplyBatch(ctx, true, []nodeclient.Block{{
		Header: nodeclient.BlockHeader{ID: "blk0", ParentID: "", Height: 0, Difficulty: "1000"},
		BlockTransactions: nodeclient.BlockTransactions{
			HeaderID: "blk0",
			Transactions: []nodeclient.Transaction{
				{ID: "confirmedtx", Outputs: []nodeclient.Output{{BoxID: "spentbox", Value: 500, ErgoTree: testP2PKTree}}},
			},
		},
	}}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		txs := []nodeclient.MempoolTransaction{
			{
				Transaction: nodeclient.Transaction{
					ID:     "tx1",
					Inputs: []nodeclient.Input{{BoxID: "spentbox"}},
				},
				CreationTimestamp: 1700000000,
			},
		}
		json.NewEncoder(w).Encode(txs)
	}))
	defer srv.Close()

	pool := nodeclient.NewPool([]string{srv.URL}, "", testLogger())
	tr := New(pool, store, testLogger(), true)
	tr.refresh(ctx)

	require.Equal(t, []string{"tx1"}, tr.ByAddress(spenderAddr))
	require.Equal(t, int64(-500), tr.UnconfirmedDelta(spenderAddr))
}

func TestTrackerRefreshSkipsFailedFetch(t *testing.T) {
	store := openTestStore(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	pool := nodeclient.NewPool([]string{srv.URL}, "", testLogger())
	tr := New(pool, store, testLogger(), true)
	tr.refresh(context.Background())

	require.Equal(t, 0, tr.Size())
}
