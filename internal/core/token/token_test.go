package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment(t *testing.T) {
	tok, err := NewPayment()
	require.NoError(t, err)
	assert.True(t, IsPayment(tok))
	assert.Len(t, tok, 4+26) // PAY- plus ULID
}

func TestNewTransfer(t *testing.T) {
	tok, err := NewTransfer()
	require.NoError(t, err)
	assert.Contains(t, tok, "TRF-")
	assert.False(t, IsPayment(tok))
}

func TestTokensAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewPayment()
		require.NoError(t, err)
		assert.False(t, seen[tok], "duplicate token %s", tok)
		seen[tok] = true
	}
}
