package syncengine

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ergo-lite/indexer/internal/chainstore"
	"github.com/ergo-lite/indexer/internal/nodeclient"
)

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

func TestContainsHelper(t *testing.T) {
	require.True(t, contains([]string{"a", "b"}, "b"))
	require.False(t, contains([]string{"a", "b"}, "c"))
	require.False(t, contains(nil, "a"))
}

func TestUpdateRateSeedsThenSmooths(t *testing.T) {
	e := &Engine{}
	e.updateRate(10, 10*time.Second) // 1 block/s
	require.InDelta(t, 1.0, e.blocksPerSecond, 0.0001)

	e.updateRate(20, 10*time.Second) // 2 blocks/s sample, EWMA toward it
	require.Greater(t, e.blocksPerSecond, 1.0)
	require.Less(t, e.blocksPerSecond, 2.0)
}

func TestUpdateRateIgnoresZeroElapsed(t *testing.T) {
	e := &Engine{}
	e.updateRate(10, 0)
	require.Equal(t, 0.0, e.blocksPerSecond)
}

func TestStatusReportsStateAndHeights(t *testing.T) {
	store := openTestStore(t)
	pool := nodeclient.NewPool(nil, "", testLogger())
	e := New(pool, store, testLogger(), true, 10, time.Second)

	st := e.Status(context.Background())
	require.Equal(t, StateIdle, st.State)
	require.Equal(t, int64(-1), st.LocalHeight)
	require.Equal(t, int64(-1), st.NodeHeight)
}

func testBlock(height int64, id, parentID string) nodeclient.Block {
	return nodeclient.Block{
		Header: nodeclient.BlockHeader{ID: id, ParentID: parentID, Height: height, Difficulty: "1000"},
		BlockTransactions: nodeclient.BlockTransactions{
			HeaderID: id,
			Transactions: []nodeclient.Transaction{
				{ID: "tx" + id, Outputs: []nodeclient.Output{{BoxID: "box" + id, Value: 100}}},
			},
		},
	}
}

func TestDetectForkAgreesAtTip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ApplyBatch(ctx, true, []nodeclient.Block{testBlock(0, "blk0", "")}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]string{"blk0"})
	}))
	defer srv.Close()

	pool := nodeclient.NewPool([]string{srv.URL}, "", testLogger())
	e := New(pool, store, testLogger(), true, 10, time.Second)

	forkHeight, needsRollback, err := e.detectFork(ctx, 0, "blk0")
	require.NoError(t, err)
	require.False(t, needsRollback)
	require.Equal(t, int64(0), forkHeight)
}

func TestDetectForkWalksBackToCommonAncestor(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ApplyBatch(ctx, true, []nodeclient.Block{
		testBlock(0, "blk0", ""),
		testBlock(1, "blk1", "blk0"),
	}))

	// Node reports a different id at height 1 (the local tip) but agrees
	// at height 0, so the fork point is height 0.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		height := r.URL.Path[len("/blocks/at/"):]
		if height == "1" {
			json.NewEncoder(w).Encode([]string{"blk1-orphan"})
		} else {
			json.NewEncoder(w).Encode([]string{"blk0"})
		}
	}))
	defer srv.Close()

	pool := nodeclient.NewPool([]string{srv.URL}, "", testLogger())
	e := New(pool, store, testLogger(), true, 10, time.Second)

	forkHeight, needsRollback, err := e.detectFork(ctx, 1, "blk1")
	require.NoError(t, err)
	require.True(t, needsRollback)
	require.Equal(t, int64(0), forkHeight)
}
