package query

import (
	"context"
	"database/sql"
	"strconv"
)

// Search resolves a single query string against every entity type it
// could plausibly identify. Unlike a typical "first match wins" search,
// this probes block/transaction/box/token/address/height lookups
// independently and returns every one that hits, since a 64-character
// hex string is a legal id for more than one entity type and callers
// need to know about all of them rather than an arbitrary first pick.
func (e *Engine) Search(ctx context.Context, q string) (SearchResult, error) {
	result := SearchResult{Query: q}

	if height, err := strconv.ParseInt(q, 10, 64); err == nil {
		if b, err := e.BlockByHeight(ctx, height); err == nil {
			s := BlockSummary{ID: b.ID, Height: b.Height, Timestamp: b.Timestamp, TxCount: b.TxCount, MinerAddress: b.MinerAddress, Difficulty: b.Difficulty, BlockSize: b.BlockSize}
			result.Block = &s
			result.MatchedHeight = &height
		}
	}

	if looksLikeID(q) {
		if b, err := e.blockSummaryByID(ctx, q); err == nil {
			result.Block = &b
		}
		if t, err := e.transactionSummaryByID(ctx, q); err == nil {
			result.Transaction = &t
		}
		if box, err := e.BoxByID(ctx, q); err == nil {
			result.Box = &box
		}
		if tok, err := e.tokenSummaryByID(ctx, q); err == nil {
			result.Token = &tok
		}
	}

	if looksLikeAddress(q, e.mainnet) {
		if info, err := e.AddressByID(ctx, q); err == nil {
			result.Address = &info
		}
	}

	return result, nil
}

func (e *Engine) blockSummaryByID(ctx context.Context, id string) (BlockSummary, error) {
	row := e.db.QueryRowContext(ctx, `
		SELECT block_id, height, timestamp, tx_count, miner_address, difficulty, block_size
		FROM blocks WHERE block_id = ?`, id)
	var b BlockSummary
	var miner sql.NullString
	if err := row.Scan(&b.ID, &b.Height, &b.Timestamp, &b.TxCount, &miner, &b.Difficulty, &b.BlockSize); err != nil {
		return BlockSummary{}, err
	}
	b.MinerAddress = miner.String
	return b, nil
}

func (e *Engine) transactionSummaryByID(ctx context.Context, id string) (TransactionSummary, error) {
	row := e.db.QueryRowContext(ctx, `
		SELECT tx_id, timestamp, inclusion_height, input_count, output_count, size
		FROM transactions WHERE tx_id = ?`, id)
	var t TransactionSummary
	if err := row.Scan(&t.ID, &t.Timestamp, &t.InclusionHeight, &t.InputCount, &t.OutputCount, &t.Size); err != nil {
		return TransactionSummary{}, err
	}
	return t, nil
}

func (e *Engine) tokenSummaryByID(ctx context.Context, id string) (TokenSummary, error) {
	row := e.db.QueryRowContext(ctx, `SELECT token_id, name, decimals, emission_amount FROM tokens WHERE token_id = ?`, id)
	var t TokenSummary
	var name sql.NullString
	var decimals sql.NullInt64
	if err := row.Scan(&t.ID, &name, &decimals, &t.EmissionAmount); err != nil {
		return TokenSummary{}, err
	}
	t.Name = name.String
	t.Decimals = nullInt32(decimals)
	return t, nil
}

func looksLikeID(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// mainnetAddressPrefixes and testnetAddressPrefixes are Ergo's leading
// base58 characters per address type (P2PK, P2S, P2SH) on each network;
// NETWORK selects which set looksLikeAddress checks against.
const (
	mainnetAddressPrefixes = "923"
	testnetAddressPrefixes = "345"
)

// looksLikeAddress applies Ergo's address-prefix heuristic for the
// configured network: P2PK/P2S/P2SH addresses on mainnet start with '9',
// '2', or '3'; their testnet counterparts start with '3', '4', or '5'.
func looksLikeAddress(s string, mainnet bool) bool {
	if len(s) < 20 {
		return false
	}
	prefixes := mainnetAddressPrefixes
	if !mainnet {
		prefixes = testnetAddressPrefixes
	}
	for i := 0; i < len(prefixes); i++ {
		if s[0] == prefixes[i] {
			return true
		}
	}
	return false
}
