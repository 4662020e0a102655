package chainstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ergo-lite/indexer/internal/nodeclient"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "indexer.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

const testMinerTree = "0008cd0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

func makeBlock(height int64, id, parentID string, value int64) nodeclient.Block {
	return nodeclient.Block{
		Header: nodeclient.BlockHeader{
			ID:         id,
			ParentID:   parentID,
			Height:     height,
			Timestamp:  1700000000 + height,
			Difficulty: "1000000",
			Size:       512,
		},
		Size: 512,
		BlockTransactions: nodeclient.BlockTransactions{
			HeaderID: id,
			Transactions: []nodeclient.Transaction{
				{
					ID:   "tx" + id,
					Size: 128,
					Outputs: []nodeclient.Output{
						{
							BoxID:          "box" + id,
							Value:          value,
							ErgoTree:       testMinerTree,
							CreationHeight: height,
							Index:          0,
						},
					},
				},
			},
		},
	}
}

func TestOpenCreatesFreshTip(t *testing.T) {
	s := openTestStore(t)
	height, id, err := s.Tip(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(-1), height)
	require.Empty(t, id)
}

func TestApplyBatchAdvancesTip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	blocks := []nodeclient.Block{
		makeBlock(0, "blk0", "", 1000),
		makeBlock(1, "blk1", "blk0", 2000),
	}
	require.NoError(t, s.ApplyBatch(ctx, true, blocks))

	height, id, err := s.Tip(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), height)
	require.Equal(t, "blk1", id)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.BlockCount)
	require.Equal(t, int64(2), stats.TxCount)
	require.Equal(t, int64(2), stats.BoxCount)
	require.Equal(t, int64(2), stats.UnspentBoxCount)
}

func TestApplyBatchRejectsNonContiguousHeights(t *testing.T) {
	s := openTestStore(t)
	blocks := []nodeclient.Block{
		makeBlock(0, "blk0", "", 1000),
		makeBlock(2, "blk2", "blk0", 2000),
	}
	err := s.ApplyBatch(context.Background(), true, blocks)
	require.ErrorIs(t, err, ErrNonContiguous)
}

func TestApplyBatchRejectsParentMismatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ApplyBatch(ctx, true, []nodeclient.Block{makeBlock(0, "blk0", "", 1000)}))

	err := s.ApplyBatch(ctx, true, []nodeclient.Block{makeBlock(1, "blk1", "not-the-tip", 2000)})
	require.ErrorIs(t, err, ErrParentMismatch)
}

func TestApplyBatchEmptyIsNoop(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.ApplyBatch(context.Background(), true, nil))
}

func TestRollbackToReversesTipAndBalances(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	blocks := []nodeclient.Block{
		makeBlock(0, "blk0", "", 1000),
		makeBlock(1, "blk1", "blk0", 2000),
		makeBlock(2, "blk2", "blk1", 3000),
	}
	require.NoError(t, s.ApplyBatch(ctx, true, blocks))

	require.NoError(t, s.RollbackTo(ctx, 1))

	height, id, err := s.Tip(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), height)
	require.Equal(t, "blk1", id)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.BlockCount)

	// All three boxes pay the same address; only blk0's and blk1's remain.
	var balance int64
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT balance FROM address_stats`).Scan(&balance))
	require.Equal(t, int64(3000), balance)
}

func TestRollbackToNoopWhenAtOrBelowTarget(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ApplyBatch(ctx, true, []nodeclient.Block{makeBlock(0, "blk0", "", 1000)}))
	require.NoError(t, s.RollbackTo(ctx, 5))

	height, _, err := s.Tip(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), height)
}

func TestRollbackToTooDeepFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	blocks := make([]nodeclient.Block, 0, MaxRollbackDepth+2)
	parent := ""
	for h := int64(0); h <= int64(MaxRollbackDepth)+1; h++ {
		id := "blk" + string(rune('a'+h%26)) + string(rune('0'+h%10))
		blocks = append(blocks, makeBlock(h, id, parent, 1000))
		parent = id
	}
	require.NoError(t, s.ApplyBatch(ctx, true, blocks))

	err := s.RollbackTo(ctx, 0)
	require.ErrorIs(t, err, ErrForkTooDeep)
}

func TestHeaderAtNotFound(t *testing.T) {
	s := openTestStore(t)
	_, _, err := s.HeaderAt(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}
