package nodeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to a single Ergo node over its REST API. One Client per
// configured node URL; the Pool (see pool.go) owns a set of these and
// routes calls across whichever are currently healthy.
type Client struct {
	BaseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a Client for a single node base URL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{},
	}
}

func (c *Client) do(ctx context.Context, timeout time.Duration, method, path string, body any) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api_key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return data, resp.StatusCode, fmt.Errorf("node returned status %d: %s", resp.StatusCode, string(data))
	}
	return data, resp.StatusCode, nil
}

// GetInfo fetches the node's current status, used for health checks and
// to drive fork-detection probing against the node's reported tip.
func (c *Client) GetInfo(ctx context.Context) (NodeInfo, error) {
	data, _, err := c.do(ctx, 5*time.Second, http.MethodGet, "/info", nil)
	if err != nil {
		return NodeInfo{}, err
	}
	var info NodeInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return NodeInfo{}, fmt.Errorf("decode info: %w", err)
	}
	return info, nil
}

// GetBlockIDsAtHeight lists all known block ids at a height, including
// stale/orphaned ones, for fork detection.
func (c *Client) GetBlockIDsAtHeight(ctx context.Context, height int64) ([]string, error) {
	data, _, err := c.do(ctx, 10*time.Second, http.MethodGet, fmt.Sprintf("/blocks/at/%d", height), nil)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode block ids: %w", err)
	}
	return ids, nil
}

// GetBlockHeaderByID fetches a single header without the block body.
func (c *Client) GetBlockHeaderByID(ctx context.Context, id string) (BlockHeader, error) {
	data, _, err := c.do(ctx, 10*time.Second, http.MethodGet, "/blocks/"+id+"/header", nil)
	if err != nil {
		return BlockHeader{}, err
	}
	var h BlockHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return BlockHeader{}, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

// GetBlockByID fetches a full block body.
func (c *Client) GetBlockByID(ctx context.Context, id string) (Block, error) {
	data, _, err := c.do(ctx, 15*time.Second, http.MethodGet, "/blocks/"+id, nil)
	if err != nil {
		return Block{}, err
	}
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return Block{}, fmt.Errorf("decode block: %w", err)
	}
	return b, nil
}

// GetLastHeaders fetches the most recent N headers in one call.
func (c *Client) GetLastHeaders(ctx context.Context, count int) ([]BlockHeader, error) {
	data, _, err := c.do(ctx, 10*time.Second, http.MethodGet, fmt.Sprintf("/blocks/lastHeaders/%d", count), nil)
	if err != nil {
		return nil, err
	}
	var headers []BlockHeader
	if err := json.Unmarshal(data, &headers); err != nil {
		return nil, fmt.Errorf("decode headers: %w", err)
	}
	return headers, nil
}

// GetMempoolTransactions lists currently unconfirmed transactions.
func (c *Client) GetMempoolTransactions(ctx context.Context) ([]MempoolTransaction, error) {
	data, _, err := c.do(ctx, 10*time.Second, http.MethodGet, "/transactions/unconfirmed", nil)
	if err != nil {
		return nil, err
	}
	var txs []MempoolTransaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("decode mempool: %w", err)
	}
	return txs, nil
}

// GetMempoolSize returns the unconfirmed pool size without fetching the
// full transaction list.
func (c *Client) GetMempoolSize(ctx context.Context) (int, error) {
	data, _, err := c.do(ctx, 5*time.Second, http.MethodGet, "/transactions/unconfirmed/size", nil)
	if err != nil {
		return 0, err
	}
	var out struct {
		Size int `json:"size"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, fmt.Errorf("decode mempool size: %w", err)
	}
	return out.Size, nil
}

// SubmitTransaction forwards a signed transaction to the node, returning
// the assigned transaction id.
func (c *Client) SubmitTransaction(ctx context.Context, signedTx json.RawMessage) (string, error) {
	data, _, err := c.do(ctx, 10*time.Second, http.MethodPost, "/transactions", signedTx)
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	return id, nil
}

// CheckTransaction validates a transaction without broadcasting it.
func (c *Client) CheckTransaction(ctx context.Context, signedTx json.RawMessage) (string, error) {
	data, _, err := c.do(ctx, 10*time.Second, http.MethodPost, "/transactions/check", signedTx)
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return "", fmt.Errorf("decode check response: %w", err)
	}
	return id, nil
}

// WalletPassthrough forwards an arbitrary wallet API call; the indexer
// does not implement wallet business logic itself (spec Non-goal), it
// only proxies the request/response bytes to whichever node is healthy.
func (c *Client) WalletPassthrough(ctx context.Context, method, path string, body json.RawMessage) (json.RawMessage, error) {
	data, _, err := c.do(ctx, 10*time.Second, method, path, body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
