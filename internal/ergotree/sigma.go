// Package ergotree decodes the handful of ErgoTree/Sigma-encoded values
// the indexer needs to surface token metadata: register values and
// address/template-hash derivation.
package ergotree

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrMalformed is returned when a register's byte string doesn't match
// one of the decodable Sigma type tags.
var ErrMalformed = errors.New("ergotree: malformed register value")

// decodeVLQ reads a little-endian base-128 varint, as used throughout
// Sigma serialization, returning the value and the number of bytes
// consumed.
func decodeVLQ(data []byte) (uint64, int, error) {
	var result uint64
	var shift uint
	for i, b := range data {
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
		if shift > 63 {
			return 0, 0, ErrMalformed
		}
	}
	return 0, 0, ErrMalformed
}

// zigzagDecode reverses Sigma's zigzag encoding of signed integers.
func zigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// DecodeSigmaString decodes a register holding a Coll[Byte] value
// (type tag 0x0e) as a UTF-8 string, used for token name/description
// registers R4/R5.
func DecodeSigmaString(hexValue string) (string, error) {
	data, err := hex.DecodeString(hexValue)
	if err != nil {
		return "", err
	}
	if len(data) < 1 || data[0] != 0x0e {
		return "", ErrMalformed
	}
	length, n, err := decodeVLQ(data[1:])
	if err != nil {
		return "", err
	}
	start := 1 + n
	end := start + int(length)
	if end > len(data) {
		return "", ErrMalformed
	}
	return string(data[start:end]), nil
}

// DecodeSigmaInt decodes a register holding a zigzag-encoded signed
// integer (type tag 0x04), used for the decimals register R6.
func DecodeSigmaInt(hexValue string) (int64, error) {
	data, err := hex.DecodeString(hexValue)
	if err != nil {
		return 0, err
	}
	if len(data) < 1 || data[0] != 0x04 {
		return 0, ErrMalformed
	}
	v, _, err := decodeVLQ(data[1:])
	if err != nil {
		return 0, err
	}
	return zigzagDecode(v), nil
}

// TemplateHash computes the hash used to group boxes by contract: sha256
// over the raw ErgoTree bytes. Embedded constants are not stripped
// before hashing, so two trees that differ only in their constants get
// different hashes; for a given tree it is a stable per-contract
// identifier, which is what box search groups on.
func TemplateHash(ergoTreeHex string) (string, error) {
	data, err := hex.DecodeString(ergoTreeHex)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
