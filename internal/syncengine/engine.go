// Package syncengine drives the indexer's chain-following state machine:
// probing the node pool for a new tip, detecting forks, fetching missing
// blocks in parallel windows, and committing them atomically to the
// chain store.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ergo-lite/indexer/internal/chainstore"
	"github.com/ergo-lite/indexer/internal/nodeclient"
)

// State names the sync engine's current phase, surfaced verbatim in
// Status (and so on the /status/stream feed); /status reports it only as
// the derived isSyncing flag.
type State string

const (
	StateIdle        State = "idle"
	StateProbing     State = "probing"
	StateCaughtUp    State = "caught_up"
	StateFetching    State = "fetching"
	StateRollingBack State = "rolling_back"
	StateCommitting  State = "committing"
)

const (
	maxWindowConcurrency = 16
	commitQueueCapacity  = 2
	ewmaAlpha            = 0.2
)

// Status is the snapshot returned by Engine.Status, shaped for direct
// JSON serialization onto the /status/stream feed; /status copies its
// heights and rates into its own response shape.
type Status struct {
	State            State   `json:"state"`
	LocalHeight      int64   `json:"localHeight"`
	NodeHeight       int64   `json:"nodeHeight"`
	BlocksPerSecond  float64 `json:"blocksPerSecond"`
	EtaSeconds       float64 `json:"etaSeconds,omitempty"`
	LastError        string  `json:"lastError,omitempty"`
}

// Engine owns the sync state machine for one chain.
type Engine struct {
	pool    *nodeclient.Pool
	store   *chainstore.Store
	log     *slog.Logger
	mainnet bool
	batchSize int
	idleInterval time.Duration

	mu              sync.RWMutex
	state           State
	blocksPerSecond float64
	lastErr         error
}

// New builds an Engine bound to a node pool and a chain store.
func New(pool *nodeclient.Pool, store *chainstore.Store, log *slog.Logger, mainnet bool, batchSize int, idleInterval time.Duration) *Engine {
	return &Engine{
		pool:         pool,
		store:        store,
		log:          log,
		mainnet:      mainnet,
		batchSize:    batchSize,
		idleInterval: idleInterval,
		state:        StateIdle,
	}
}

// Status returns a point-in-time snapshot of sync progress.
func (e *Engine) Status(ctx context.Context) Status {
	e.mu.RLock()
	state := e.state
	bps := e.blocksPerSecond
	var lastErrStr string
	if e.lastErr != nil {
		lastErrStr = e.lastErr.Error()
	}
	e.mu.RUnlock()

	localHeight, _, _ := e.store.Tip(ctx)
	nodeInfo, err := e.pool.GetInfo(ctx)
	nodeHeight := int64(-1)
	if err == nil {
		nodeHeight = nodeInfo.FullHeight
	}

	st := Status{
		State:           state,
		LocalHeight:     localHeight,
		NodeHeight:      nodeHeight,
		BlocksPerSecond: bps,
		LastError:       lastErrStr,
	}
	if bps > 0 && nodeHeight > localHeight {
		st.EtaSeconds = float64(nodeHeight-localHeight) / bps
	}
	return st
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) setErr(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
}

func (e *Engine) updateRate(blocksFetched int, elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}
	sample := float64(blocksFetched) / elapsed.Seconds()
	e.mu.Lock()
	if e.blocksPerSecond == 0 {
		e.blocksPerSecond = sample
	} else {
		e.blocksPerSecond = ewmaAlpha*sample + (1-ewmaAlpha)*e.blocksPerSecond
	}
	e.mu.Unlock()
}

// Run drives the state machine until ctx is cancelled. Errors and panics
// within a single cycle are recovered and logged, and the engine resumes
// at Probing after waiting one idle interval rather than taking the whole
// process down, matching spec's restartable-task error model.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		failed := e.runCycleSafely(ctx)

		e.mu.RLock()
		state := e.state
		e.mu.RUnlock()
		if state == StateCaughtUp || failed {
			select {
			case <-ctx.Done():
				return
			case <-time.After(e.idleInterval):
			}
		}
	}
}

func (e *Engine) runCycleSafely(ctx context.Context) (failed bool) {
	cycleID := uuid.NewString()
	log := e.log.With("cycle", cycleID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("sync cycle panicked", "recovered", r)
			e.setErr(fmt.Errorf("sync cycle panicked: %v", r))
			e.setState(StateProbing)
			failed = true
		}
	}()
	if err := e.runCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("sync cycle failed", "err", err)
		e.setErr(err)
		e.setState(StateProbing)
		return true
	}
	return false
}

func (e *Engine) runCycle(ctx context.Context) error {
	e.setState(StateProbing)

	nodeInfo, err := e.pool.GetInfo(ctx)
	if err != nil {
		return fmt.Errorf("probe node: %w", err)
	}

	localHeight, localBlockID, err := e.store.Tip(ctx)
	if err != nil {
		return fmt.Errorf("read local tip: %w", err)
	}

	if localHeight >= 0 {
		forkHeight, needsRollback, err := e.detectFork(ctx, localHeight, localBlockID)
		if err != nil {
			return fmt.Errorf("detect fork: %w", err)
		}
		if needsRollback {
			e.setState(StateRollingBack)
			if err := e.store.RollbackTo(ctx, forkHeight); err != nil {
				return fmt.Errorf("rollback: %w", err)
			}
			localHeight = forkHeight
		}
	}

	if localHeight >= nodeInfo.FullHeight {
		e.setState(StateCaughtUp)
		return nil
	}

	e.setState(StateFetching)
	start := time.Now()
	fetched, err := e.fetchAndCommit(ctx, localHeight+1, nodeInfo.FullHeight)
	if err != nil {
		return fmt.Errorf("fetch and commit: %w", err)
	}
	e.updateRate(fetched, time.Since(start))
	e.setErr(nil)
	return nil
}

// detectFork walks backward from the local tip comparing the node's
// reported block id at each height against the locally stored one,
// stopping at the first height where they agree (the common ancestor)
// or at MaxRollbackDepth, whichever comes first.
func (e *Engine) detectFork(ctx context.Context, localHeight int64, localBlockID string) (forkHeight int64, needsRollback bool, err error) {
	nodeIDs, err := e.pool.GetBlockIDsAtHeight(ctx, localHeight)
	if err != nil {
		return 0, false, err
	}
	if contains(nodeIDs, localBlockID) {
		return localHeight, false, nil
	}

	for depth := int64(1); depth <= chainstore.MaxRollbackDepth; depth++ {
		height := localHeight - depth
		if height < 0 {
			return 0, true, nil
		}
		localID, _, err := e.store.HeaderAt(ctx, height)
		if err != nil {
			return 0, false, err
		}
		nodeIDs, err := e.pool.GetBlockIDsAtHeight(ctx, height)
		if err != nil {
			return 0, false, err
		}
		if contains(nodeIDs, localID) {
			return height, true, nil
		}
	}
	return 0, false, chainstore.ErrForkTooDeep
}

func contains(ids []string, target string) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

// fetchAndCommit pulls blocks [fromHeight, toHeight] in bounded-
// concurrency windows of e.batchSize and commits each window atomically
// before starting the next, so a crash mid-sync leaves the store at a
// clean window boundary rather than a partially-applied batch.
func (e *Engine) fetchAndCommit(ctx context.Context, fromHeight, toHeight int64) (int, error) {
	total := 0
	for windowStart := fromHeight; windowStart <= toHeight; windowStart += int64(e.batchSize) {
		windowEnd := windowStart + int64(e.batchSize) - 1
		if windowEnd > toHeight {
			windowEnd = toHeight
		}

		blocks, err := e.fetchWindow(ctx, windowStart, windowEnd)
		if err != nil {
			return total, err
		}

		e.setState(StateCommitting)
		if err := e.store.ApplyBatch(ctx, e.mainnet, blocks); err != nil {
			return total, err
		}
		total += len(blocks)
		e.setState(StateFetching)
	}
	return total, nil
}

// fetchWindow fetches one window of heights in parallel, bounded by the
// number of currently-healthy nodes (times two, capped) so a single slow
// node can't serialize the whole window, then returns the blocks sorted
// by height for a contiguous commit.
func (e *Engine) fetchWindow(ctx context.Context, fromHeight, toHeight int64) ([]nodeclient.Block, error) {
	concurrency := e.pool.HealthyCount() * 2
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > maxWindowConcurrency {
		concurrency = maxWindowConcurrency
	}

	n := int(toHeight-fromHeight) + 1
	results := make([]nodeclient.Block, n)

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, concurrency)

	for i := 0; i < n; i++ {
		i := i
		height := fromHeight + int64(i)
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			ids, err := e.pool.GetBlockIDsAtHeight(gctx, height)
			if err != nil {
				return fmt.Errorf("list ids at %d: %w", height, err)
			}
			if len(ids) == 0 {
				return fmt.Errorf("no block reported at height %d", height)
			}
			block, err := e.pool.GetBlockByID(gctx, ids[0])
			if err != nil {
				return fmt.Errorf("fetch block %s: %w", ids[0], err)
			}
			results[i] = block
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
