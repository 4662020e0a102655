package query

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ergo-lite/indexer/internal/chainstore"
)

func openTestDB(t *testing.T) *Engine {
	t.Helper()
	store, err := chainstore.Open(filepath.Join(t.TempDir(), "indexer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store.DB(), true, nil)
}

func TestTokenHoldersTieBreaksByAddressAscending(t *testing.T) {
	e := openTestDB(t)
	ctx := context.Background()

	_, err := e.db.ExecContext(ctx, `
		INSERT INTO token_holders (token_id, address, amount) VALUES
		('tok1', 'zaddr', 100),
		('tok1', 'aaddr', 100),
		('tok1', 'maddr', 200)`)
	require.NoError(t, err)

	page, err := e.TokenHolders(ctx, "tok1", Pagination{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	require.Equal(t, "maddr", page.Items[0].Address)
	require.Equal(t, "aaddr", page.Items[1].Address)
	require.Equal(t, "zaddr", page.Items[2].Address)
}

func TestTokenHoldersExcludesZeroBalance(t *testing.T) {
	e := openTestDB(t)
	ctx := context.Background()

	_, err := e.db.ExecContext(ctx, `
		INSERT INTO token_holders (token_id, address, amount) VALUES
		('tok1', 'addr1', 0),
		('tok1', 'addr2', 50)`)
	require.NoError(t, err)

	page, err := e.TokenHolders(ctx, "tok1", Pagination{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "addr2", page.Items[0].Address)
}

func TestBlockByIDNotFound(t *testing.T) {
	e := openTestDB(t)
	_, err := e.BlockByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTokenByIDNotFound(t *testing.T) {
	e := openTestDB(t)
	_, err := e.TokenByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSearchPopulatesMultipleFields(t *testing.T) {
	e := openTestDB(t)
	ctx := context.Background()

	_, err := e.db.ExecContext(ctx, `
		INSERT INTO blocks (block_id, parent_id, height, timestamp, difficulty, block_size, block_coins,
			tx_count, miner_address, miner_reward, main_chain, global_index)
		VALUES ('aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa', '', 5, 1700000000, 100, 512, 0, 1, NULL, 0, 1, 0)`)
	require.NoError(t, err)
	insertTx(t, e, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "blk5", 5, 1)

	result, err := e.Search(ctx, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, err)
	require.NotNil(t, result.Block)
	require.Equal(t, int64(5), result.Block.Height)
	require.NotNil(t, result.Transaction)
	require.Equal(t, int64(5), result.Transaction.InclusionHeight)
}

func TestSearchByHeight(t *testing.T) {
	e := openTestDB(t)
	ctx := context.Background()

	_, err := e.db.ExecContext(ctx, `
		INSERT INTO blocks (block_id, parent_id, height, timestamp, difficulty, block_size, block_coins,
			tx_count, miner_address, miner_reward, main_chain, global_index)
		VALUES ('blk5', '', 5, 1700000000, 100, 512, 0, 1, NULL, 0, 1, 0)`)
	require.NoError(t, err)

	result, err := e.Search(ctx, "5")
	require.NoError(t, err)
	require.NotNil(t, result.Block)
	require.NotNil(t, result.MatchedHeight)
	require.Equal(t, int64(5), *result.MatchedHeight)
}
