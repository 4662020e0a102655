package query

import (
	"context"
	"database/sql"
)

// Blocks returns a page of main-chain blocks, most recent first.
func (e *Engine) Blocks(ctx context.Context, p Pagination) (Page[BlockSummary], error) {
	p = p.Normalize()

	var total int64
	if err := e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocks WHERE main_chain = 1`).Scan(&total); err != nil {
		return Page[BlockSummary]{}, err
	}

	rows, err := e.db.QueryContext(ctx, `
		SELECT block_id, height, timestamp, tx_count, miner_address, difficulty, block_size
		FROM blocks WHERE main_chain = 1
		ORDER BY height DESC LIMIT ? OFFSET ?`, p.Limit, p.Offset)
	if err != nil {
		return Page[BlockSummary]{}, err
	}
	defer rows.Close()

	var items []BlockSummary
	for rows.Next() {
		var b BlockSummary
		var miner sql.NullString
		if err := rows.Scan(&b.ID, &b.Height, &b.Timestamp, &b.TxCount, &miner, &b.Difficulty, &b.BlockSize); err != nil {
			return Page[BlockSummary]{}, err
		}
		b.MinerAddress = miner.String
		items = append(items, b)
	}
	return Page[BlockSummary]{Items: items, Total: total, Offset: p.Offset, Limit: p.Limit}, rows.Err()
}

// BlockByID returns full block detail.
func (e *Engine) BlockByID(ctx context.Context, id string) (Block, error) {
	return e.scanBlock(ctx, `WHERE block_id = ?`, id)
}

// BlockByHeight returns full block detail for the main-chain block at a
// given height.
func (e *Engine) BlockByHeight(ctx context.Context, height int64) (Block, error) {
	return e.scanBlock(ctx, `WHERE height = ? AND main_chain = 1`, height)
}

func (e *Engine) scanBlock(ctx context.Context, where string, arg any) (Block, error) {
	row := e.db.QueryRowContext(ctx, `
		SELECT block_id, parent_id, height, timestamp, difficulty, block_size, block_coins,
			tx_count, miner_address, miner_reward, main_chain
		FROM blocks `+where, arg)

	var b Block
	var miner sql.NullString
	var mainChain int
	if err := row.Scan(&b.ID, &b.ParentID, &b.Height, &b.Timestamp, &b.Difficulty, &b.BlockSize,
		&b.BlockCoins, &b.TxCount, &miner, &b.MinerReward, &mainChain); err != nil {
		if err == sql.ErrNoRows {
			return Block{}, ErrNotFound
		}
		return Block{}, err
	}
	b.MinerAddress = miner.String
	b.MainChain = mainChain == 1
	return b, nil
}

// TransactionsInBlock lists transaction summaries belonging to a block,
// in on-chain order.
func (e *Engine) TransactionsInBlock(ctx context.Context, blockID string) ([]TransactionSummary, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT tx_id, timestamp, inclusion_height, input_count, output_count, size
		FROM transactions WHERE block_id = ? ORDER BY index_in_block ASC`, blockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionSummary
	for rows.Next() {
		var t TransactionSummary
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.InclusionHeight, &t.InputCount, &t.OutputCount, &t.Size); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
