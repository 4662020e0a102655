package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressByIDNotFound(t *testing.T) {
	e := openTestDB(t)
	_, err := e.AddressByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddressByIDIncludesTokenBalances(t *testing.T) {
	e := openTestDB(t)
	ctx := context.Background()

	_, err := e.db.ExecContext(ctx, `
		INSERT INTO address_stats (address, tx_count, balance, first_seen_height, last_seen_height, updated_at)
		VALUES ('addr1', 3, 1000000000, 1, 10, 1700000000)`)
	require.NoError(t, err)

	insertBox(t, e, "box1", "tx1", "addr1", "tmpl1", 0, 1000, 1, nil)
	_, err = e.db.ExecContext(ctx, `
		INSERT INTO tokens (token_id, box_id, emission_amount, name, decimals, creation_height)
		VALUES ('tok1', 'box1', 1000, 'Token One', 2, 1)`)
	require.NoError(t, err)
	_, err = e.db.ExecContext(ctx, `
		INSERT INTO box_assets (box_id, token_id, amount, asset_index) VALUES ('box1', 'tok1', 250, 0)`)
	require.NoError(t, err)

	info, err := e.AddressByID(ctx, "addr1")
	require.NoError(t, err)
	require.Equal(t, "addr1", info.Address)
	require.Equal(t, int64(3), info.TxCount)
	require.Equal(t, int64(1000000000), info.Balance.NanoErgs)
	require.NotNil(t, info.FirstSeenHeight)
	require.Equal(t, int64(1), *info.FirstSeenHeight)
	require.Len(t, info.Balance.Tokens, 1)
	require.Equal(t, "tok1", info.Balance.Tokens[0].TokenID)
	require.Equal(t, int64(250), info.Balance.Tokens[0].Amount)
}
