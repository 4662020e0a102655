package ergotree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testP2PKTree = "0008cd0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

func TestAddressFromErgoTreeMainnet(t *testing.T) {
	addr := AddressFromErgoTree(testP2PKTree, true)
	assert.NotEmpty(t, addr)
	assert.True(t, addr[0] == '9', "mainnet P2PK addresses start with 9, got %q", addr)
}

func TestAddressFromErgoTreeTestnet(t *testing.T) {
	addr := AddressFromErgoTree(testP2PKTree, false)
	assert.NotEmpty(t, addr)
	assert.NotEqual(t, AddressFromErgoTree(testP2PKTree, true), addr)
}

func TestAddressFromErgoTreeDeterministic(t *testing.T) {
	a1 := AddressFromErgoTree(testP2PKTree, true)
	a2 := AddressFromErgoTree(testP2PKTree, true)
	assert.Equal(t, a1, a2)
}

func TestAddressFromErgoTreeNonP2PK(t *testing.T) {
	// A script tree (doesn't start with the 0008cd single-sig prefix).
	addr := AddressFromErgoTree("100104000e", true)
	assert.Empty(t, addr)
}

func TestAddressFromErgoTreeWrongLength(t *testing.T) {
	addr := AddressFromErgoTree("0008cd1234", true)
	assert.Empty(t, addr)
}

func TestAddressFromErgoTreeBadHex(t *testing.T) {
	addr := AddressFromErgoTree("0008cdzz", true)
	assert.Empty(t, addr)
}
