// Package query implements the read-side projections the HTTP API
// serves: blocks, transactions, boxes, tokens, addresses, universal
// search, and network stats, all read against the chain store's
// snapshot without touching the sync engine's write path.
package query

import "errors"

// ErrNotFound is returned when a lookup by id finds nothing.
var ErrNotFound = errors.New("query: not found")

// Pagination mirrors the API's offset/limit query parameters.
type Pagination struct {
	Offset int64
	Limit  int64
}

// DefaultLimit and MaxLimit bound the page size accepted from callers.
const (
	DefaultLimit = 20
	MaxLimit     = 500
)

// Normalize clamps limit into (0, MaxLimit] and offset into [0, inf),
// applying DefaultLimit when the caller didn't specify one.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Page is the pagination envelope every list endpoint returns.
type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Offset int64 `json:"offset"`
	Limit  int64 `json:"limit"`
}

// BlockSummary is the lightweight block shape used in list views.
type BlockSummary struct {
	ID           string `json:"id"`
	Height       int64  `json:"height"`
	Timestamp    int64  `json:"timestamp"`
	TxCount      int32  `json:"txCount"`
	MinerAddress string `json:"minerAddress,omitempty"`
	Difficulty   int64  `json:"difficulty"`
	BlockSize    int32  `json:"blockSize"`
}

// Block is the full block detail shape.
type Block struct {
	ID           string `json:"id"`
	ParentID     string `json:"parentId"`
	Height       int64  `json:"height"`
	Timestamp    int64  `json:"timestamp"`
	Difficulty   int64  `json:"difficulty"`
	BlockSize    int32  `json:"blockSize"`
	BlockCoins   int64  `json:"blockCoins"`
	TxCount      int32  `json:"txCount"`
	MinerAddress string `json:"minerAddress,omitempty"`
	MinerReward  int64  `json:"minerReward"`
	MainChain    bool   `json:"mainChain"`
}

// TransactionSummary is the lightweight transaction shape.
type TransactionSummary struct {
	ID               string `json:"id"`
	Timestamp        int64  `json:"timestamp"`
	InclusionHeight  int64  `json:"inclusionHeight"`
	InputCount       int32  `json:"inputCount"`
	OutputCount      int32  `json:"outputCount"`
	Size             int32  `json:"size"`
}

// Input is a spent-box reference within a transaction.
type Input struct {
	BoxID       string `json:"boxId"`
	Value       int64  `json:"value,omitempty"`
	Address     string `json:"address,omitempty"`
	OutputIndex int32  `json:"outputIndex"`
}

// DataInput is a read-only box reference within a transaction.
type DataInput struct {
	BoxID string `json:"boxId"`
}

// Transaction is the full transaction detail shape.
type Transaction struct {
	ID              string      `json:"id"`
	BlockID         string      `json:"blockId"`
	InclusionHeight int64       `json:"inclusionHeight"`
	Timestamp       int64       `json:"timestamp"`
	Index           int32       `json:"index"`
	GlobalIndex     int64       `json:"globalIndex"`
	Coinbase        bool        `json:"coinbase"`
	Size            int32       `json:"size"`
	Inputs          []Input     `json:"inputs"`
	Outputs         []Box       `json:"outputs"`
	DataInputs      []DataInput `json:"dataInputs"`
}

// BoxAsset is a token amount attached to a box.
type BoxAsset struct {
	TokenID  string `json:"tokenId"`
	Amount   int64  `json:"amount"`
	Index    int32  `json:"index"`
	Name     string `json:"name,omitempty"`
	Decimals *int32 `json:"decimals,omitempty"`
}

// Box is a UTXO, spent or unspent.
type Box struct {
	BoxID               string     `json:"boxId"`
	TxID                string     `json:"txId"`
	Index               int32      `json:"index"`
	Value               int64      `json:"value"`
	Address             string     `json:"address,omitempty"`
	CreationHeight      int64      `json:"creationHeight"`
	SettlementHeight    int64      `json:"settlementHeight"`
	ErgoTree            string     `json:"ergoTree"`
	Assets              []BoxAsset `json:"assets"`
	AdditionalRegisters *string    `json:"additionalRegisters,omitempty"`
	SpentTxID           string     `json:"spentTxId,omitempty"`
	MainChain           bool       `json:"mainChain"`
}

// Token is the full token detail shape.
type Token struct {
	ID             string `json:"id"`
	BoxID          string `json:"boxId"`
	EmissionAmount int64  `json:"emissionAmount"`
	Name           string `json:"name,omitempty"`
	Description    string `json:"description,omitempty"`
	TokenType      string `json:"tokenType,omitempty"`
	Decimals       *int32 `json:"decimals,omitempty"`
	CreationHeight int64  `json:"creationHeight"`
}

// TokenSummary is the lightweight token shape used in list views.
type TokenSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name,omitempty"`
	Decimals       *int32 `json:"decimals,omitempty"`
	EmissionAmount int64  `json:"emissionAmount"`
}

// TokenHolder is one row of a token's holder distribution.
type TokenHolder struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
}

// TokenBalance is a token amount held by an address.
type TokenBalance struct {
	TokenID  string `json:"tokenId"`
	Amount   int64  `json:"amount"`
	Name     string `json:"name,omitempty"`
	Decimals *int32 `json:"decimals,omitempty"`
}

// Balance is an address's nanoERG balance plus token holdings.
type Balance struct {
	NanoErgs int64          `json:"nanoErgs"`
	Tokens   []TokenBalance `json:"tokens"`
}

// AddressInfo is the full address detail shape.
type AddressInfo struct {
	Address          string  `json:"address"`
	TxCount          int64   `json:"txCount"`
	Balance          Balance `json:"balance"`
	FirstSeenHeight  *int64  `json:"firstSeenHeight,omitempty"`
	LastSeenHeight   *int64  `json:"lastSeenHeight,omitempty"`
	UnconfirmedDelta int64   `json:"unconfirmedDelta"`
}

// NetworkStats is the headline network-wide statistics shape.
type NetworkStats struct {
	Height          int64   `json:"height"`
	TransactionCount int64  `json:"transactionCount"`
	BlockCount      int64   `json:"blockCount"`
	HashRate        float64 `json:"hashRate"`
	Difficulty      int64   `json:"difficulty"`
	BlockTimeAvg    float64 `json:"blockTimeAvg"`
	TotalCoins      int64   `json:"totalCoins"`
}

// SearchResult carries whichever entity types matched a universal search
// query; spec requires this be non-short-circuiting, so more than one
// field may be populated for the same query string.
type SearchResult struct {
	Query        string        `json:"query"`
	Block        *BlockSummary `json:"block,omitempty"`
	Transaction  *TransactionSummary `json:"transaction,omitempty"`
	Box          *Box          `json:"box,omitempty"`
	Token        *TokenSummary `json:"token,omitempty"`
	Address      *AddressInfo  `json:"address,omitempty"`
	MatchedHeight *int64       `json:"matchedHeight,omitempty"`
}

// Epoch is an epoch boundary record.
type Epoch struct {
	Index          int32  `json:"index"`
	HeightStart    int64  `json:"heightStart"`
	HeightEnd      int64  `json:"heightEnd"`
	TimestampStart int64  `json:"timestampStart"`
	TimestampEnd   *int64 `json:"timestampEnd,omitempty"`
	BlockCount     int32  `json:"blockCount"`
}
