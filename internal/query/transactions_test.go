package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func insertTx(t *testing.T, e *Engine, txID, blockID string, height, globalIndex int64) {
	t.Helper()
	_, err := e.db.ExecContext(context.Background(), `
		INSERT INTO transactions (tx_id, block_id, inclusion_height, timestamp, index_in_block,
			global_index, size, input_count, output_count, main_chain)
		VALUES (?, ?, ?, 1700000000, 0, ?, 300, 1, 1, 1)`,
		txID, blockID, height, globalIndex)
	require.NoError(t, err)
}

func TestTransactionByIDNotFound(t *testing.T) {
	e := openTestDB(t)
	_, err := e.TransactionByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionByIDAssemblesInputsAndOutputs(t *testing.T) {
	e := openTestDB(t)
	ctx := context.Background()

	insertTx(t, e, "tx1", "blk1", 5, 10)
	insertBox(t, e, "spentbox", "tx0", "addr0", "tmpl0", 0, 500, 9, nil)
	insertBox(t, e, "outbox", "tx1", "addr1", "tmpl1", 0, 400, 11, nil)

	_, err := e.db.ExecContext(ctx, `
		INSERT INTO inputs (tx_id, box_id, input_index) VALUES ('tx1', 'spentbox', 0)`)
	require.NoError(t, err)
	_, err = e.db.ExecContext(ctx, `
		INSERT INTO data_inputs (tx_id, box_id, input_index) VALUES ('tx1', 'databox', 0)`)
	require.NoError(t, err)

	tx, err := e.TransactionByID(ctx, "tx1")
	require.NoError(t, err)
	require.Equal(t, "tx1", tx.ID)
	require.Equal(t, "blk1", tx.BlockID)
	require.Equal(t, int64(5), tx.InclusionHeight)

	require.Len(t, tx.Inputs, 1)
	require.Equal(t, "spentbox", tx.Inputs[0].BoxID)
	require.Equal(t, int64(500), tx.Inputs[0].Value)
	require.Equal(t, "addr0", tx.Inputs[0].Address)

	require.Len(t, tx.Outputs, 1)
	require.Equal(t, "outbox", tx.Outputs[0].BoxID)

	require.Len(t, tx.DataInputs, 1)
	require.Equal(t, "databox", tx.DataInputs[0].BoxID)
}

func TestTransactionsPageOrdersByGlobalIndexDescending(t *testing.T) {
	e := openTestDB(t)

	insertTx(t, e, "tx1", "blk1", 1, 1)
	insertTx(t, e, "tx2", "blk1", 1, 2)

	page, err := e.Transactions(context.Background(), Pagination{})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	require.Equal(t, "tx2", page.Items[0].ID)
	require.Equal(t, "tx1", page.Items[1].ID)
}
