package nodeclient

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ErrNoHealthyNode is returned when every configured node has been
// marked unhealthy and no call can be routed.
var ErrNoHealthyNode = errors.New("nodeclient: no healthy node available")

const (
	healthProbeInterval  = 30 * time.Second
	unhealthyAfterFails  = 3
	retryBaseDelay       = 250 * time.Millisecond
	retryMaxDelay        = 1 * time.Second
	maxRetries           = 2
)

type nodeHealth struct {
	client     *Client
	healthy    bool
	fails      int
	latency    time.Duration
	lastProbed time.Time
	lastInfo   NodeInfo
}

// ConnectedNode is a per-node health snapshot for the /status endpoint.
type ConnectedNode struct {
	URL              string `json:"url"`
	Connected        bool   `json:"connected"`
	AppVersion       string `json:"appVersion"`
	StateType        string `json:"stateType"`
	Height           int64  `json:"height"`
	HeadersHeight    int64  `json:"headersHeight"`
	PeersCount       int    `json:"peersCount"`
	UnconfirmedCount int    `json:"unconfirmedCount"`
	IsMining         bool   `json:"isMining"`
	Difficulty       int64  `json:"difficulty"`
	LatencyMs        int64  `json:"latencyMs"`
}

// Nodes returns a health snapshot of every configured node, healthy or
// not, for the /status endpoint's connectedNodes list.
func (p *Pool) Nodes() []ConnectedNode {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]ConnectedNode, 0, len(p.nodes))
	for _, n := range p.nodes {
		out = append(out, ConnectedNode{
			URL:              n.client.BaseURL,
			Connected:        n.healthy,
			AppVersion:       n.lastInfo.AppVersion,
			StateType:        n.lastInfo.StateType,
			Height:           n.lastInfo.FullHeight,
			HeadersHeight:    n.lastInfo.HeadersHeight,
			PeersCount:       n.lastInfo.PeersCount,
			UnconfirmedCount: n.lastInfo.UnconfirmedCount,
			IsMining:         n.lastInfo.IsMining,
			Difficulty:       n.lastInfo.Difficulty,
			LatencyMs:        n.latency.Milliseconds(),
		})
	}
	return out
}

// Pool routes calls across a set of Ergo nodes, preferring the lowest
// observed-latency healthy node and demoting nodes that fail repeatedly.
type Pool struct {
	mu    sync.RWMutex
	nodes []*nodeHealth
	log   *slog.Logger
}

// NewPool builds a Pool over the given node base URLs, all sharing the
// same API key.
func NewPool(urls []string, apiKey string, log *slog.Logger) *Pool {
	p := &Pool{log: log}
	for _, u := range urls {
		p.nodes = append(p.nodes, &nodeHealth{
			client:  NewClient(u, apiKey),
			healthy: true,
		})
	}
	return p
}

// Run starts the periodic health probe loop; it blocks until ctx is
// cancelled.
func (p *Pool) Run(ctx context.Context) {
	ticker := time.NewTicker(healthProbeInterval)
	defer ticker.Stop()
	p.probeAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probeAll(ctx)
		}
	}
}

func (p *Pool) probeAll(ctx context.Context) {
	p.mu.RLock()
	nodes := append([]*nodeHealth{}, p.nodes...)
	p.mu.RUnlock()

	for _, n := range nodes {
		start := time.Now()
		info, err := n.client.GetInfo(ctx)
		latency := time.Since(start)

		p.mu.Lock()
		n.lastProbed = time.Now()
		if err != nil {
			n.fails++
			if n.fails >= unhealthyAfterFails {
				if n.healthy {
					p.log.Warn("node marked unhealthy", "node", n.client.BaseURL, "err", err)
				}
				n.healthy = false
			}
		} else {
			n.fails = 0
			n.healthy = true
			n.latency = latency
			n.lastInfo = info
		}
		p.mu.Unlock()
	}
}

// healthyOrdered returns currently-healthy node entries sorted by
// ascending observed latency, cheapest first.
func (p *Pool) healthyOrdered() []*nodeHealth {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []*nodeHealth
	for _, n := range p.nodes {
		if n.healthy {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].latency < out[j].latency })
	return out
}

func (p *Pool) recordFailure(n *nodeHealth) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n.fails++
	if n.fails >= unhealthyAfterFails {
		n.healthy = false
	}
}

func (p *Pool) recordSuccess(n *nodeHealth, latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n.fails = 0
	n.healthy = true
	n.latency = latency
}

// call runs fn against healthy nodes in latency order, retrying with
// exponential backoff on failure before moving to the next node, and
// recording the outcome against that node's health state.
func call[T any](ctx context.Context, p *Pool, fn func(*Client) (T, error)) (T, error) {
	var zero T
	nodes := p.healthyOrdered()
	if len(nodes) == 0 {
		return zero, ErrNoHealthyNode
	}

	var lastErr error
	for _, n := range nodes {
		delay := retryBaseDelay
		for attempt := 0; attempt <= maxRetries; attempt++ {
			start := time.Now()
			result, err := fn(n.client)
			if err == nil {
				p.recordSuccess(n, time.Since(start))
				return result, nil
			}
			lastErr = err
			if attempt < maxRetries {
				select {
				case <-ctx.Done():
					return zero, ctx.Err()
				case <-time.After(delay):
				}
				delay *= 2
				if delay > retryMaxDelay {
					delay = retryMaxDelay
				}
			}
		}
		p.recordFailure(n)
	}
	return zero, lastErr
}

func (p *Pool) GetInfo(ctx context.Context) (NodeInfo, error) {
	return call(ctx, p, func(c *Client) (NodeInfo, error) { return c.GetInfo(ctx) })
}

func (p *Pool) GetBlockIDsAtHeight(ctx context.Context, height int64) ([]string, error) {
	return call(ctx, p, func(c *Client) ([]string, error) { return c.GetBlockIDsAtHeight(ctx, height) })
}

func (p *Pool) GetBlockHeaderByID(ctx context.Context, id string) (BlockHeader, error) {
	return call(ctx, p, func(c *Client) (BlockHeader, error) { return c.GetBlockHeaderByID(ctx, id) })
}

func (p *Pool) GetBlockByID(ctx context.Context, id string) (Block, error) {
	return call(ctx, p, func(c *Client) (Block, error) { return c.GetBlockByID(ctx, id) })
}

func (p *Pool) GetLastHeaders(ctx context.Context, count int) ([]BlockHeader, error) {
	return call(ctx, p, func(c *Client) ([]BlockHeader, error) { return c.GetLastHeaders(ctx, count) })
}

func (p *Pool) GetMempoolTransactions(ctx context.Context) ([]MempoolTransaction, error) {
	return call(ctx, p, func(c *Client) ([]MempoolTransaction, error) { return c.GetMempoolTransactions(ctx) })
}

func (p *Pool) GetMempoolSize(ctx context.Context) (int, error) {
	return call(ctx, p, func(c *Client) (int, error) { return c.GetMempoolSize(ctx) })
}

func (p *Pool) SubmitTransaction(ctx context.Context, signedTx json.RawMessage) (string, error) {
	return call(ctx, p, func(c *Client) (string, error) { return c.SubmitTransaction(ctx, signedTx) })
}

func (p *Pool) CheckTransaction(ctx context.Context, signedTx json.RawMessage) (string, error) {
	return call(ctx, p, func(c *Client) (string, error) { return c.CheckTransaction(ctx, signedTx) })
}

func (p *Pool) WalletPassthrough(ctx context.Context, method, path string, body json.RawMessage) (json.RawMessage, error) {
	return call(ctx, p, func(c *Client) (json.RawMessage, error) { return c.WalletPassthrough(ctx, method, path, body) })
}

// HealthyCount reports how many nodes are currently considered healthy,
// used by the sync engine to size its fetch concurrency.
func (p *Pool) HealthyCount() int {
	return len(p.healthyOrdered())
}
