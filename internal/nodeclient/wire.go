package nodeclient

// NodeInfo mirrors the Ergo node's /info response.
type NodeInfo struct {
	Name              string `json:"name"`
	AppVersion        string `json:"appVersion"`
	FullHeight        int64  `json:"fullHeight"`
	HeadersHeight     int64  `json:"headersHeight"`
	BestFullHeaderID  string `json:"bestFullHeaderId"`
	StateType         string `json:"stateType"`
	IsMining          bool   `json:"isMining"`
	PeersCount        int    `json:"peersCount"`
	UnconfirmedCount  int    `json:"unconfirmedCount"`
	Difficulty        int64  `json:"difficulty"`
}

// BlockHeader mirrors the node's header DTO, used for fork detection
// without pulling a full block body over the wire.
type BlockHeader struct {
	ID               string `json:"id"`
	ParentID         string `json:"parentId"`
	Height           int64  `json:"height"`
	Timestamp        int64  `json:"timestamp"`
	Difficulty       string `json:"difficulty"`
	StateRoot        string `json:"stateRoot"`
	ExtensionHash    string `json:"extensionHash"`
	PowSolutions     any    `json:"powSolutions,omitempty"`
	AdProofsRoot     string `json:"adProofsRoot"`
	TransactionsRoot string `json:"transactionsRoot"`
	Size             int32  `json:"size"`
}

// Block is a full block as returned by the node's /blocks/{id} endpoint.
type Block struct {
	Header       BlockHeader   `json:"header"`
	BlockTransactions BlockTransactions `json:"blockTransactions"`
	Size         int32         `json:"size"`
}

// BlockTransactions carries the transaction list embedded in a full block.
type BlockTransactions struct {
	HeaderID     string        `json:"headerId"`
	Transactions []Transaction `json:"transactions"`
	BlockVersion int           `json:"blockVersion"`
	Size         int32         `json:"size"`
}

// Transaction is the node's transaction wire format.
type Transaction struct {
	ID          string      `json:"id"`
	Inputs      []Input     `json:"inputs"`
	DataInputs  []DataInput `json:"dataInputs"`
	Outputs     []Output    `json:"outputs"`
	Size        int32       `json:"size"`
}

// Input references a spent box plus its spending proof.
type Input struct {
	BoxID         string        `json:"boxId"`
	SpendingProof SpendingProof `json:"spendingProof"`
}

// SpendingProof carries the proof bytes and extension map for an input.
type SpendingProof struct {
	ProofBytes string         `json:"proofBytes"`
	Extension  map[string]any `json:"extension,omitempty"`
}

// DataInput references a box read but not spent by a transaction.
type DataInput struct {
	BoxID string `json:"boxId"`
}

// Output is a box as produced by a transaction.
type Output struct {
	BoxID               string         `json:"boxId"`
	Value               int64          `json:"value"`
	ErgoTree            string         `json:"ergoTree"`
	Assets              []Asset        `json:"assets"`
	AdditionalRegisters map[string]any `json:"additionalRegisters,omitempty"`
	CreationHeight      int64          `json:"creationHeight"`
	TransactionID       string         `json:"transactionId"`
	Index               int32          `json:"index"`
}

// Asset is a token amount attached to an output.
type Asset struct {
	TokenID string `json:"tokenId"`
	Amount  int64  `json:"amount"`
}

// MempoolTransaction is an unconfirmed transaction returned by the node's
// mempool endpoint; it shares the confirmed transaction's shape plus a
// client-observed arrival timestamp.
type MempoolTransaction struct {
	Transaction
	CreationTimestamp int64 `json:"creationTimestamp"`
}
