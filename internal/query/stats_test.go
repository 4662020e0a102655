package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNetworkStatsReturnsLatestRow(t *testing.T) {
	e := openTestDB(t)
	ctx := context.Background()

	_, err := e.db.ExecContext(ctx, `
		INSERT INTO network_stats (timestamp, height, difficulty, block_size, block_coins, total_coins, hashrate, block_time_avg)
		VALUES (1700000000, 1, 100, 512, 0, 1000, 5.5, 120.0)`)
	require.NoError(t, err)
	_, err = e.db.ExecContext(ctx, `
		INSERT INTO network_stats (timestamp, height, difficulty, block_size, block_coins, total_coins, hashrate, block_time_avg)
		VALUES (1700000120, 2, 110, 512, 0, 2000, 6.0, 118.0)`)
	require.NoError(t, err)

	insertTx(t, e, "tx1", "blk1", 1, 1)
	_, err = e.db.ExecContext(ctx, `
		INSERT INTO blocks (block_id, parent_id, height, timestamp, difficulty, block_size, block_coins,
			tx_count, miner_address, miner_reward, main_chain, global_index)
		VALUES ('blk1', '', 1, 1700000000, 100, 512, 0, 1, NULL, 0, 1, 0)`)
	require.NoError(t, err)

	stats, err := e.NetworkStats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Height)
	require.Equal(t, int64(110), stats.Difficulty)
	require.Equal(t, int64(2000), stats.TotalCoins)
	require.Equal(t, int64(1), stats.TransactionCount)
	require.Equal(t, int64(1), stats.BlockCount)
}

func TestEpochsOrdersByIndexDescending(t *testing.T) {
	e := openTestDB(t)
	ctx := context.Background()

	_, err := e.db.ExecContext(ctx, `
		INSERT INTO epochs (epoch_index, height_start, height_end, timestamp_start, timestamp_end, block_count)
		VALUES (0, 0, 1023, 1700000000, 1700100000, 1024)`)
	require.NoError(t, err)
	_, err = e.db.ExecContext(ctx, `
		INSERT INTO epochs (epoch_index, height_start, height_end, timestamp_start, timestamp_end, block_count)
		VALUES (1, 1024, 2047, 1700100000, NULL, 1024)`)
	require.NoError(t, err)

	page, err := e.Epochs(ctx, Pagination{})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	require.Equal(t, int32(1), page.Items[0].Index)
	require.Nil(t, page.Items[0].TimestampEnd)
	require.Equal(t, int32(0), page.Items[1].Index)
	require.NotNil(t, page.Items[1].TimestampEnd)
}
