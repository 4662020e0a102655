package ergotree

import (
	"encoding/hex"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// Network prefix bytes for Ergo address encoding, P2PK addresses.
const (
	MainnetP2PK byte = 0x01
	TestnetP2PK byte = 0x11
)

const p2pkTreePrefix = "0008cd"

// AddressFromErgoTree derives the Ergo P2PK address string for a box's
// ErgoTree when it is the standard single-sig template; non-P2PK trees
// (scripts, multisig, DEX contracts) have no canonical address and the
// empty string is returned, consistent with the node's own behavior of
// only assigning addresses to boxes it can decode a public key from.
func AddressFromErgoTree(ergoTreeHex string, mainnet bool) string {
	if len(ergoTreeHex) != len(p2pkTreePrefix)+66 || ergoTreeHex[:len(p2pkTreePrefix)] != p2pkTreePrefix {
		return ""
	}
	pubKeyHex := ergoTreeHex[len(p2pkTreePrefix):]
	pubKey, err := hex.DecodeString(pubKeyHex)
	if err != nil || len(pubKey) != 33 {
		return ""
	}

	prefix := MainnetP2PK
	if !mainnet {
		prefix = TestnetP2PK
	}

	payload := append([]byte{prefix}, pubKey...)
	checksum := blake2b256(payload)[:4]
	return base58.Encode(append(payload, checksum...))
}

func blake2b256(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}
