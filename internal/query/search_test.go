package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeID(t *testing.T) {
	valid := strings.Repeat("a1", 32) // 64 hex chars
	assert.True(t, looksLikeID(valid))
	assert.False(t, looksLikeID(valid[:63]))
	assert.False(t, looksLikeID(strings.Repeat("z", 64)))
	assert.False(t, looksLikeID(""))
}

func TestLooksLikeAddress(t *testing.T) {
	assert.True(t, looksLikeAddress("9f4haagzuhtzvzd4w6xn9qzyxrgxz6ywf", true))
	assert.True(t, looksLikeAddress("2sometestaddressvalueeee", true))
	assert.True(t, looksLikeAddress("3sometestaddressvalueeee", true))
	assert.False(t, looksLikeAddress("1sometestaddressvalueeee", true))
	assert.False(t, looksLikeAddress("9tooshort", true))
}

func TestLooksLikeAddressTestnet(t *testing.T) {
	assert.True(t, looksLikeAddress("3f4haagzuhtzvzd4w6xn9qzyxrgxz6ywf", false))
	assert.True(t, looksLikeAddress("4sometestaddressvalueeee", false))
	assert.True(t, looksLikeAddress("5sometestaddressvalueeee", false))
	assert.False(t, looksLikeAddress("9sometestaddressvalueeee", false))
}
