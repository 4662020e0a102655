package chainstore

import (
	"context"
	"fmt"
)

// RollbackTo logically rolls the main chain back to targetHeight: every
// block, transaction, and box above that height has its main_chain flag
// flipped to false rather than being deleted, so a reorg can later
// re-adopt the same rows if the node happens to reconverge on them, and
// so historical queries against a specific global_index remain stable.
// Address balances and token holder amounts are reversed by re-applying
// the inverse of the deltas recorded when those rows were first
// committed.
func (s *Store) RollbackTo(ctx context.Context, targetHeight int64) error {
	tipHeight, _, err := s.Tip(ctx)
	if err != nil {
		return err
	}
	if tipHeight <= targetHeight {
		return nil
	}
	if tipHeight-targetHeight > MaxRollbackDepth {
		return ErrForkTooDeep
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// Reverse address balances contributed by boxes created above the
	// rollback height.
	if _, err := tx.ExecContext(ctx, `
		UPDATE address_stats SET balance = balance - sub.total, updated_at = ?
		FROM (
			SELECT address, SUM(value) AS total
			FROM boxes
			WHERE main_chain = 1 AND settlement_height > ? AND address IS NOT NULL
			GROUP BY address
		) AS sub
		WHERE address_stats.address = sub.address`, targetHeight, targetHeight); err != nil {
		return fmt.Errorf("reverse address stats: %w", err)
	}

	// Reverse token holder amounts contributed by the same boxes.
	if _, err := tx.ExecContext(ctx, `
		UPDATE token_holders SET amount = amount - sub.total
		FROM (
			SELECT ba.token_id AS token_id, b.address AS address, SUM(ba.amount) AS total
			FROM box_assets ba
			JOIN boxes b ON b.box_id = ba.box_id
			WHERE b.main_chain = 1 AND b.settlement_height > ? AND b.address IS NOT NULL
			GROUP BY ba.token_id, b.address
		) AS sub
		WHERE token_holders.token_id = sub.token_id AND token_holders.address = sub.address`, targetHeight); err != nil {
		return fmt.Errorf("reverse token holders: %w", err)
	}

	// Restore address balances and token holder amounts that were
	// decremented when boxes above the rollback height were spent,
	// mirroring the negative delta spendBox applied at commit time.
	if _, err := tx.ExecContext(ctx, `
		UPDATE address_stats SET balance = balance + sub.total, updated_at = ?
		FROM (
			SELECT address, SUM(value) AS total
			FROM boxes
			WHERE spent_height > ? AND address IS NOT NULL
			GROUP BY address
		) AS sub
		WHERE address_stats.address = sub.address`, targetHeight, targetHeight); err != nil {
		return fmt.Errorf("restore address stats for unspent boxes: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE token_holders SET amount = amount + sub.total
		FROM (
			SELECT ba.token_id AS token_id, b.address AS address, SUM(ba.amount) AS total
			FROM box_assets ba
			JOIN boxes b ON b.box_id = ba.box_id
			WHERE b.spent_height > ? AND b.address IS NOT NULL
			GROUP BY ba.token_id, b.address
		) AS sub
		WHERE token_holders.token_id = sub.token_id AND token_holders.address = sub.address`, targetHeight); err != nil {
		return fmt.Errorf("restore token holders for unspent boxes: %w", err)
	}

	// Un-spend boxes that were spent by a now-rolled-back transaction.
	if _, err := tx.ExecContext(ctx, `
		UPDATE boxes SET spent_tx_id = NULL, spent_index = NULL, spent_height = NULL
		WHERE spent_height > ?`, targetHeight); err != nil {
		return fmt.Errorf("unspend boxes: %w", err)
	}

	for _, stmt := range []string{
		`UPDATE blocks SET main_chain = 0 WHERE height > ? AND main_chain = 1`,
		`UPDATE transactions SET main_chain = 0 WHERE inclusion_height > ? AND main_chain = 1`,
		`UPDATE boxes SET main_chain = 0 WHERE settlement_height > ? AND main_chain = 1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, targetHeight); err != nil {
			return fmt.Errorf("flip main_chain: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM network_stats WHERE height > ?`, targetHeight); err != nil {
		return fmt.Errorf("trim network stats: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE sync_status SET last_synced_height = ? WHERE id = 1`, targetHeight); err != nil {
		return fmt.Errorf("update sync status: %w", err)
	}

	return tx.Commit()
}
