package query

import (
	"context"
	"database/sql"
)

// Transactions returns a page of transaction summaries, most recent
// first.
func (e *Engine) Transactions(ctx context.Context, p Pagination) (Page[TransactionSummary], error) {
	p = p.Normalize()

	var total int64
	if err := e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE main_chain = 1`).Scan(&total); err != nil {
		return Page[TransactionSummary]{}, err
	}

	rows, err := e.db.QueryContext(ctx, `
		SELECT tx_id, timestamp, inclusion_height, input_count, output_count, size
		FROM transactions WHERE main_chain = 1
		ORDER BY global_index DESC LIMIT ? OFFSET ?`, p.Limit, p.Offset)
	if err != nil {
		return Page[TransactionSummary]{}, err
	}
	defer rows.Close()

	var items []TransactionSummary
	for rows.Next() {
		var t TransactionSummary
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.InclusionHeight, &t.InputCount, &t.OutputCount, &t.Size); err != nil {
			return Page[TransactionSummary]{}, err
		}
		items = append(items, t)
	}
	return Page[TransactionSummary]{Items: items, Total: total, Offset: p.Offset, Limit: p.Limit}, rows.Err()
}

// TransactionByID returns full transaction detail, including its
// inputs, outputs, and data inputs.
func (e *Engine) TransactionByID(ctx context.Context, txID string) (Transaction, error) {
	row := e.db.QueryRowContext(ctx, `
		SELECT tx_id, block_id, inclusion_height, timestamp, index_in_block, global_index,
			coinbase, size
		FROM transactions WHERE tx_id = ?`, txID)

	var t Transaction
	var coinbase int
	if err := row.Scan(&t.ID, &t.BlockID, &t.InclusionHeight, &t.Timestamp, &t.Index, &t.GlobalIndex,
		&coinbase, &t.Size); err != nil {
		if err == sql.ErrNoRows {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}
	t.Coinbase = coinbase == 1

	inputs, err := e.inputsForTx(ctx, txID)
	if err != nil {
		return Transaction{}, err
	}
	t.Inputs = inputs

	outputs, err := e.boxesForTx(ctx, txID)
	if err != nil {
		return Transaction{}, err
	}
	t.Outputs = outputs

	rows, err := e.db.QueryContext(ctx, `SELECT box_id FROM data_inputs WHERE tx_id = ? ORDER BY input_index`, txID)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var d DataInput
		if err := rows.Scan(&d.BoxID); err != nil {
			return Transaction{}, err
		}
		t.DataInputs = append(t.DataInputs, d)
	}

	return t, rows.Err()
}

func (e *Engine) inputsForTx(ctx context.Context, txID string) ([]Input, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT i.box_id, i.input_index, b.value, b.address
		FROM inputs i
		LEFT JOIN boxes b ON b.box_id = i.box_id
		WHERE i.tx_id = ? ORDER BY i.input_index`, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Input
	for rows.Next() {
		var in Input
		var value sql.NullInt64
		var address sql.NullString
		if err := rows.Scan(&in.BoxID, &in.OutputIndex, &value, &address); err != nil {
			return nil, err
		}
		in.Value = value.Int64
		in.Address = address.String
		out = append(out, in)
	}
	return out, rows.Err()
}
