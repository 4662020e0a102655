// Package chainstore owns the embedded database file: schema migration,
// atomic multi-block batch commits, logical rollback, and the read-side
// snapshot that the query engine runs against.
package chainstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Sentinel errors surfaced by ApplyBatch / RollbackTo; the sync engine
// inspects these to decide whether a failure is a transient write error
// or a structural violation that demands re-probing the chain.
var (
	ErrParentMismatch = errors.New("chainstore: block does not extend current tip")
	ErrNonContiguous  = errors.New("chainstore: batch contains non-contiguous heights")
	ErrForkTooDeep    = errors.New("chainstore: fork exceeds maximum rollback depth")
	ErrNotFound       = errors.New("chainstore: entity not found")
)

// MaxRollbackDepth bounds how far RollbackTo will walk back in a single
// call; a deeper divergence than this is treated as a configuration or
// network problem rather than a routine fork, per spec's "do not fail
// silently" principle.
const MaxRollbackDepth = 100

// Store wraps the embedded SQLite database file. SQLite's WAL journal
// mode gives concurrent readers a consistent snapshot of the database as
// of the start of their read, without blocking behind the single writer
// goroutine that owns ApplyBatch/RollbackTo — the practical equivalent of
// the MVCC snapshot-read requirement without a bespoke storage engine.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the database file at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=off&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(8)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for the query engine's read-only
// access; writes outside this package would violate the single-writer
// invariant and must not be added.
func (s *Store) DB() *sql.DB { return s.db }

// Tip reports the current main-chain head: height and block id. A fresh
// database reports height -1 and an empty id, which the sync engine
// treats as "nothing synced yet".
func (s *Store) Tip(ctx context.Context) (height int64, blockID string, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT block_id, height FROM blocks WHERE main_chain = 1 ORDER BY height DESC LIMIT 1`)
	if err := row.Scan(&blockID, &height); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return -1, "", nil
		}
		return 0, "", err
	}
	return height, blockID, nil
}

// HeaderAt returns the main-chain block id at a given height, used by
// the sync engine to compare against the node's reported chain during
// fork detection.
func (s *Store) HeaderAt(ctx context.Context, height int64) (blockID, parentID string, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT block_id, parent_id FROM blocks WHERE height = ? AND main_chain = 1`, height)
	if err := row.Scan(&blockID, &parentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrNotFound
		}
		return "", "", err
	}
	return blockID, parentID, nil
}

// BoxAddressValue returns the address and value of a box, used by the
// mempool tracker to resolve which address an unconfirmed transaction's
// input debits (inputs only carry a box id on the wire, not the address
// or value the box was created with). Returns ErrNotFound if the box
// isn't indexed, which is normal for a box created and spent within the
// same still-unconfirmed mempool window.
func (s *Store) BoxAddressValue(ctx context.Context, boxID string) (address string, value int64, err error) {
	var addr sql.NullString
	row := s.db.QueryRowContext(ctx, `SELECT address, value FROM boxes WHERE box_id = ?`, boxID)
	if err := row.Scan(&addr, &value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, ErrNotFound
		}
		return "", 0, err
	}
	return addr.String, value, nil
}

// Stats reports the aggregate counts the /status endpoint and original
// /stats endpoint expose.
type Stats struct {
	BlockCount       int64
	TxCount          int64
	BoxCount         int64
	UnspentBoxCount  int64
	TokenCount       int64
	AddressCount     int64
}

// Stats computes headline counters over the main chain.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	queries := []struct {
		sql string
		dst *int64
	}{
		{`SELECT COUNT(*) FROM blocks WHERE main_chain = 1`, &st.BlockCount},
		{`SELECT COUNT(*) FROM transactions WHERE main_chain = 1`, &st.TxCount},
		{`SELECT COUNT(*) FROM boxes WHERE main_chain = 1`, &st.BoxCount},
		{`SELECT COUNT(*) FROM boxes WHERE main_chain = 1 AND spent_tx_id IS NULL`, &st.UnspentBoxCount},
		{`SELECT COUNT(*) FROM tokens`, &st.TokenCount},
		{`SELECT COUNT(*) FROM address_stats`, &st.AddressCount},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.sql).Scan(q.dst); err != nil {
			return Stats{}, err
		}
	}
	return st, nil
}
