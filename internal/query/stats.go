package query

import "context"

// NetworkStats returns the latest network-wide statistics row.
func (e *Engine) NetworkStats(ctx context.Context) (NetworkStats, error) {
	row := e.db.QueryRowContext(ctx, `
		SELECT height, difficulty, total_coins, hashrate, block_time_avg
		FROM network_stats ORDER BY height DESC LIMIT 1`)

	var s NetworkStats
	if err := row.Scan(&s.Height, &s.Difficulty, &s.TotalCoins, &s.HashRate, &s.BlockTimeAvg); err != nil {
		return NetworkStats{}, err
	}

	if err := e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE main_chain = 1`).Scan(&s.TransactionCount); err != nil {
		return NetworkStats{}, err
	}
	if err := e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocks WHERE main_chain = 1`).Scan(&s.BlockCount); err != nil {
		return NetworkStats{}, err
	}
	return s, nil
}

// Epochs returns a page of epoch boundary records, most recent first.
func (e *Engine) Epochs(ctx context.Context, p Pagination) (Page[Epoch], error) {
	p = p.Normalize()

	var total int64
	if err := e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM epochs`).Scan(&total); err != nil {
		return Page[Epoch]{}, err
	}

	rows, err := e.db.QueryContext(ctx, `
		SELECT epoch_index, height_start, height_end, timestamp_start, timestamp_end, block_count
		FROM epochs ORDER BY epoch_index DESC LIMIT ? OFFSET ?`, p.Limit, p.Offset)
	if err != nil {
		return Page[Epoch]{}, err
	}
	defer rows.Close()

	var items []Epoch
	for rows.Next() {
		var ep Epoch
		var tsEnd *int64
		if err := rows.Scan(&ep.Index, &ep.HeightStart, &ep.HeightEnd, &ep.TimestampStart, &tsEnd, &ep.BlockCount); err != nil {
			return Page[Epoch]{}, err
		}
		ep.TimestampEnd = tsEnd
		items = append(items, ep)
	}
	return Page[Epoch]{Items: items, Total: total, Offset: p.Offset, Limit: p.Limit}, rows.Err()
}
