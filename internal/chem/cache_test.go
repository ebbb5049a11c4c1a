package chem

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizationCache_PutThenGet(t *testing.T) {
	c, err := NewCanonicalizationCache(10)
	require.NoError(t, err)

	c.Put("CCO", "CCO")

	got, ok := c.Get("CCO")
	assert.True(t, ok)
	assert.Equal(t, "CCO", got)
}

func TestCanonicalizationCache_MissReturnsFalse(t *testing.T) {
	c, err := NewCanonicalizationCache(10)
	require.NoError(t, err)

	_, ok := c.Get("nonexistent")
	assert.False(t, ok)
}

func TestCanonicalizationCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewCanonicalizationCache(2)
	require.NoError(t, err)

	c.Put("a", "A")
	c.Put("b", "B")
	c.Put("c", "C") // evicts "a"

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCanonicalizationCache_NonPositiveSizeUsesDefault(t *testing.T) {
	c, err := NewCanonicalizationCache(0)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		c.Put(fmt.Sprintf("smiles-%d", i), fmt.Sprintf("canonical-%d", i))
	}
	assert.Equal(t, 100, c.Len())
}
