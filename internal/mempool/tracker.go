// Package mempool tracks the node's currently unconfirmed transaction
// set in memory, refreshed wholesale on a fixed interval rather than
// patched incrementally, and discarded on process restart.
package mempool

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ergo-lite/indexer/internal/chainstore"
	"github.com/ergo-lite/indexer/internal/ergotree"
	"github.com/ergo-lite/indexer/internal/nodeclient"
)

// snapshot is the immutable state swapped in on each refresh.
type snapshot struct {
	byTxID    map[string]nodeclient.MempoolTransaction
	byAddress map[string][]string
	delta     map[string]int64
	ordered   []nodeclient.MempoolTransaction
}

func emptySnapshot() *snapshot {
	return &snapshot{
		byTxID:    map[string]nodeclient.MempoolTransaction{},
		byAddress: map[string][]string{},
		delta:     map[string]int64{},
	}
}

// Tracker periodically replaces its entire view of the mempool with a
// fresh fetch, following the teacher's ticker-driven full-refresh loop
// rather than diffing additions/removals against the node.
type Tracker struct {
	pool    *nodeclient.Pool
	store   *chainstore.Store
	log     *slog.Logger
	mainnet bool

	cur atomic.Pointer[snapshot]
}

// New builds a Tracker with an empty initial snapshot. store resolves
// the address/value of an input's spent box, since the mempool wire
// format only carries the box id for inputs.
func New(pool *nodeclient.Pool, store *chainstore.Store, log *slog.Logger, mainnet bool) *Tracker {
	t := &Tracker{pool: pool, store: store, log: log, mainnet: mainnet}
	t.cur.Store(emptySnapshot())
	return t
}

// Run refreshes the mempool snapshot on the given interval until ctx is
// cancelled.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	t.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.refresh(ctx)
		}
	}
}

func (t *Tracker) refresh(ctx context.Context) {
	txs, err := t.pool.GetMempoolTransactions(ctx)
	if err != nil {
		t.log.Warn("mempool refresh failed", "err", err)
		return
	}

	next := emptySnapshot()
	next.ordered = txs
	for _, tx := range txs {
		next.byTxID[tx.ID] = tx
		seen := map[string]bool{}
		touch := func(addr string) {
			if addr == "" || seen[addr] {
				return
			}
			seen[addr] = true
			next.byAddress[addr] = append(next.byAddress[addr], tx.ID)
		}

		for _, out := range tx.Outputs {
			addr := ergotree.AddressFromErgoTree(out.ErgoTree, t.mainnet)
			touch(addr)
			if addr != "" {
				next.delta[addr] += out.Value
			}
		}

		for _, in := range tx.Inputs {
			addr, value, err := t.store.BoxAddressValue(ctx, in.BoxID)
			if err != nil || addr == "" {
				continue
			}
			touch(addr)
			next.delta[addr] -= value
		}
	}
	t.cur.Store(next)
}

// Get returns an unconfirmed transaction by id.
func (t *Tracker) Get(txID string) (nodeclient.MempoolTransaction, bool) {
	s := t.cur.Load()
	tx, ok := s.byTxID[txID]
	return tx, ok
}

// ByAddress returns unconfirmed transaction ids with an input or output
// touching the given address.
func (t *Tracker) ByAddress(address string) []string {
	s := t.cur.Load()
	return s.byAddress[address]
}

// UnconfirmedDelta returns the net nanoERG change an address would see
// once every currently-mempool transaction touching it confirms: the
// sum of unconfirmed outputs paying the address minus the sum of
// unconfirmed inputs spending boxes it owns.
func (t *Tracker) UnconfirmedDelta(address string) int64 {
	s := t.cur.Load()
	return s.delta[address]
}

// All returns every currently tracked unconfirmed transaction.
func (t *Tracker) All() []nodeclient.MempoolTransaction {
	s := t.cur.Load()
	return s.ordered
}

// Size reports the current unconfirmed transaction count.
func (t *Tracker) Size() int {
	return len(t.cur.Load().ordered)
}
