package query

import (
	"context"
	"database/sql"
)

// AddressByID returns full address detail: transaction count, current
// balance, first/last seen heights, and token holdings.
func (e *Engine) AddressByID(ctx context.Context, address string) (AddressInfo, error) {
	row := e.db.QueryRowContext(ctx, `
		SELECT tx_count, balance, first_seen_height, last_seen_height
		FROM address_stats WHERE address = ?`, address)

	var info AddressInfo
	var balance int64
	var firstSeen, lastSeen sql.NullInt64
	if err := row.Scan(&info.TxCount, &balance, &firstSeen, &lastSeen); err != nil {
		if err == sql.ErrNoRows {
			return AddressInfo{}, ErrNotFound
		}
		return AddressInfo{}, err
	}
	info.Address = address
	info.FirstSeenHeight = nullInt64Ptr(firstSeen)
	info.LastSeenHeight = nullInt64Ptr(lastSeen)

	tokens, err := e.TokensByAddress(ctx, address)
	if err != nil {
		return AddressInfo{}, err
	}
	info.Balance = Balance{NanoErgs: balance, Tokens: tokens}

	if e.mempool != nil {
		info.UnconfirmedDelta = e.mempool.UnconfirmedDelta(address)
	}
	return info, nil
}
