package query

import (
	"context"
	"database/sql"
)

func (e *Engine) boxesForTx(ctx context.Context, txID string) ([]Box, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT box_id, tx_id, output_index, value, address, creation_height, settlement_height,
			ergo_tree, additional_registers, spent_tx_id, main_chain
		FROM boxes WHERE tx_id = ? ORDER BY output_index`, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return e.scanBoxes(ctx, rows)
}

func (e *Engine) scanBoxes(ctx context.Context, rows *sql.Rows) ([]Box, error) {
	var boxes []Box
	for rows.Next() {
		var b Box
		var address, registers, spentTxID sql.NullString
		var mainChain int
		if err := rows.Scan(&b.BoxID, &b.TxID, &b.Index, &b.Value, &address, &b.CreationHeight,
			&b.SettlementHeight, &b.ErgoTree, &registers, &spentTxID, &mainChain); err != nil {
			return nil, err
		}
		b.Address = address.String
		b.SpentTxID = spentTxID.String
		b.MainChain = mainChain == 1
		if registers.Valid {
			r := registers.String
			b.AdditionalRegisters = &r
		}
		boxes = append(boxes, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range boxes {
		assets, err := e.assetsForBox(ctx, boxes[i].BoxID)
		if err != nil {
			return nil, err
		}
		boxes[i].Assets = assets
	}
	return boxes, nil
}

func (e *Engine) assetsForBox(ctx context.Context, boxID string) ([]BoxAsset, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT ba.token_id, ba.amount, ba.asset_index, t.name, t.decimals
		FROM box_assets ba
		LEFT JOIN tokens t ON t.token_id = ba.token_id
		WHERE ba.box_id = ? ORDER BY ba.asset_index`, boxID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BoxAsset
	for rows.Next() {
		var a BoxAsset
		var name sql.NullString
		var decimals sql.NullInt64
		if err := rows.Scan(&a.TokenID, &a.Amount, &a.Index, &name, &decimals); err != nil {
			return nil, err
		}
		a.Name = name.String
		a.Decimals = nullInt32(decimals)
		out = append(out, a)
	}
	return out, rows.Err()
}

// BoxByID returns a single box, spent or unspent.
func (e *Engine) BoxByID(ctx context.Context, boxID string) (Box, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT box_id, tx_id, output_index, value, address, creation_height, settlement_height,
			ergo_tree, additional_registers, spent_tx_id, main_chain
		FROM boxes WHERE box_id = ?`, boxID)
	if err != nil {
		return Box{}, err
	}
	defer rows.Close()

	boxes, err := e.scanBoxes(ctx, rows)
	if err != nil {
		return Box{}, err
	}
	if len(boxes) == 0 {
		return Box{}, ErrNotFound
	}
	return boxes[0], nil
}

// BoxesByAddress returns a page of boxes ever owned by an address,
// newest first, spent or unspent.
func (e *Engine) BoxesByAddress(ctx context.Context, address string, p Pagination) (Page[Box], error) {
	return e.boxesWithFilter(ctx, `address = ?`, address, p)
}

// UnspentBoxesByAddress returns a page of currently-unspent, main-chain
// boxes owned by an address.
func (e *Engine) UnspentBoxesByAddress(ctx context.Context, address string, p Pagination) (Page[Box], error) {
	return e.boxesWithFilter(ctx, `address = ? AND spent_tx_id IS NULL AND main_chain = 1`, address, p)
}

// BoxesByErgoTreeTemplate returns a page of boxes sharing a contract
// template hash, used to browse all UTXOs locked by the same script.
// The stored hash covers the whole tree including its constants (see
// ergotree.TemplateHash), so boxes whose scripts differ only in
// embedded constants do not match each other.
func (e *Engine) BoxesByErgoTreeTemplate(ctx context.Context, templateHash string, p Pagination) (Page[Box], error) {
	return e.boxesWithFilter(ctx, `ergo_tree_template_hash = ?`, templateHash, p)
}

func (e *Engine) boxesWithFilter(ctx context.Context, where string, arg any, p Pagination) (Page[Box], error) {
	p = p.Normalize()

	var total int64
	if err := e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM boxes WHERE `+where, arg).Scan(&total); err != nil {
		return Page[Box]{}, err
	}

	rows, err := e.db.QueryContext(ctx, `
		SELECT box_id, tx_id, output_index, value, address, creation_height, settlement_height,
			ergo_tree, additional_registers, spent_tx_id, main_chain
		FROM boxes WHERE `+where+`
		ORDER BY global_index DESC LIMIT ? OFFSET ?`, arg, p.Limit, p.Offset)
	if err != nil {
		return Page[Box]{}, err
	}
	defer rows.Close()

	boxes, err := e.scanBoxes(ctx, rows)
	if err != nil {
		return Page[Box]{}, err
	}
	return Page[Box]{Items: boxes, Total: total, Offset: p.Offset, Limit: p.Limit}, nil
}
