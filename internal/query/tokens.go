package query

import (
	"context"
	"database/sql"
)

// Tokens returns a page of tokens, most recently created first.
func (e *Engine) Tokens(ctx context.Context, p Pagination) (Page[TokenSummary], error) {
	return e.tokensWithFilter(ctx, `1 = 1`, nil, p)
}

// SearchTokens returns tokens whose name or id matches a substring
// query.
func (e *Engine) SearchTokens(ctx context.Context, q string, p Pagination) (Page[TokenSummary], error) {
	pattern := "%" + q + "%"
	return e.tokensWithFilter(ctx, `name LIKE ? OR token_id LIKE ?`, []any{pattern, pattern}, p)
}

func (e *Engine) tokensWithFilter(ctx context.Context, where string, args []any, p Pagination) (Page[TokenSummary], error) {
	p = p.Normalize()

	var total int64
	if err := e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tokens WHERE `+where, args...).Scan(&total); err != nil {
		return Page[TokenSummary]{}, err
	}

	queryArgs := append(append([]any{}, args...), p.Limit, p.Offset)
	rows, err := e.db.QueryContext(ctx, `
		SELECT token_id, name, decimals, emission_amount FROM tokens
		WHERE `+where+`
		ORDER BY creation_height DESC LIMIT ? OFFSET ?`, queryArgs...)
	if err != nil {
		return Page[TokenSummary]{}, err
	}
	defer rows.Close()

	var items []TokenSummary
	for rows.Next() {
		var t TokenSummary
		var name sql.NullString
		var decimals sql.NullInt64
		if err := rows.Scan(&t.ID, &name, &decimals, &t.EmissionAmount); err != nil {
			return Page[TokenSummary]{}, err
		}
		t.Name = name.String
		t.Decimals = nullInt32(decimals)
		items = append(items, t)
	}
	return Page[TokenSummary]{Items: items, Total: total, Offset: p.Offset, Limit: p.Limit}, rows.Err()
}

// TokenByID returns full token detail.
func (e *Engine) TokenByID(ctx context.Context, tokenID string) (Token, error) {
	row := e.db.QueryRowContext(ctx, `
		SELECT token_id, box_id, emission_amount, name, description, token_type, decimals, creation_height
		FROM tokens WHERE token_id = ?`, tokenID)

	var t Token
	var name, description, tokenType sql.NullString
	var decimals sql.NullInt64
	if err := row.Scan(&t.ID, &t.BoxID, &t.EmissionAmount, &name, &description, &tokenType, &decimals, &t.CreationHeight); err != nil {
		if err == sql.ErrNoRows {
			return Token{}, ErrNotFound
		}
		return Token{}, err
	}
	t.Name = name.String
	t.Description = description.String
	t.TokenType = tokenType.String
	t.Decimals = nullInt32(decimals)
	return t, nil
}

// TokenHolders returns a page of a token's current holders, ordered by
// balance descending with an address-ascending tie-break so equal
// balances still sort deterministically across repeated calls.
func (e *Engine) TokenHolders(ctx context.Context, tokenID string, p Pagination) (Page[TokenHolder], error) {
	p = p.Normalize()

	var total int64
	if err := e.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM token_holders WHERE token_id = ? AND amount > 0`, tokenID).Scan(&total); err != nil {
		return Page[TokenHolder]{}, err
	}

	rows, err := e.db.QueryContext(ctx, `
		SELECT address, amount FROM token_holders
		WHERE token_id = ? AND amount > 0
		ORDER BY amount DESC, address ASC
		LIMIT ? OFFSET ?`, tokenID, p.Limit, p.Offset)
	if err != nil {
		return Page[TokenHolder]{}, err
	}
	defer rows.Close()

	var items []TokenHolder
	for rows.Next() {
		var h TokenHolder
		if err := rows.Scan(&h.Address, &h.Balance); err != nil {
			return Page[TokenHolder]{}, err
		}
		items = append(items, h)
	}
	return Page[TokenHolder]{Items: items, Total: total, Offset: p.Offset, Limit: p.Limit}, rows.Err()
}

// TokensByAddress returns every token balance currently held by an
// address, computed over unspent main-chain boxes, largest holding
// first.
func (e *Engine) TokensByAddress(ctx context.Context, address string) ([]TokenBalance, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT ba.token_id, SUM(ba.amount) AS total, t.name, t.decimals
		FROM box_assets ba
		JOIN boxes b ON b.box_id = ba.box_id
		LEFT JOIN tokens t ON t.token_id = ba.token_id
		WHERE b.address = ? AND b.spent_tx_id IS NULL AND b.main_chain = 1
		GROUP BY ba.token_id, t.name, t.decimals
		ORDER BY total DESC`, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TokenBalance
	for rows.Next() {
		var tb TokenBalance
		var name sql.NullString
		var decimals sql.NullInt64
		if err := rows.Scan(&tb.TokenID, &tb.Amount, &name, &decimals); err != nil {
			return nil, err
		}
		tb.Name = name.String
		tb.Decimals = nullInt32(decimals)
		out = append(out, tb)
	}
	return out, rows.Err()
}
