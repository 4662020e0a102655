package query

import (
	"database/sql"

	"github.com/ergo-lite/indexer/internal/mempool"
)

// Engine runs read-only projections against the chain store's database
// handle plus the mempool's volatile view. It never begins a write
// transaction; all mutation is owned by internal/chainstore.
type Engine struct {
	db      *sql.DB
	mainnet bool
	mempool *mempool.Tracker
}

// New builds a query Engine over an already-open database handle.
// mainnet selects which address-prefix set Search's looksLikeAddress
// heuristic recognizes, matching the network the store's boxes were
// indexed under. mp supplies the unconfirmed delta AddressByID reports
// alongside the confirmed balance; it may be nil, in which case
// unconfirmed delta is always reported as zero.
func New(db *sql.DB, mainnet bool, mp *mempool.Tracker) *Engine {
	return &Engine{db: db, mainnet: mainnet, mempool: mp}
}

func nullInt32(v sql.NullInt64) *int32 {
	if !v.Valid {
		return nil
	}
	i := int32(v.Int64)
	return &i
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}
