package chem

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCanonicalizationCacheSize bounds the canonicalization memo
// cache. It holds only canonical SMILES strings, never native handles,
// so entries stay valid regardless of wave or quarantine lifecycle.
const DefaultCanonicalizationCacheSize = 10000

// CanonicalizationCache memoizes input-SMILES -> canonical-SMILES, since
// re-canonicalizing an already-canonical string is a common hot path
// during substructure search (the query SMILES is canonicalized once
// per search call).
type CanonicalizationCache struct {
	cache *lru.Cache[string, string]
}

// NewCanonicalizationCache creates a cache holding up to size entries.
func NewCanonicalizationCache(size int) (*CanonicalizationCache, error) {
	if size <= 0 {
		size = DefaultCanonicalizationCacheSize
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CanonicalizationCache{cache: c}, nil
}

// Get returns the cached canonical SMILES for input, if present.
func (c *CanonicalizationCache) Get(input string) (string, bool) {
	return c.cache.Get(input)
}

// Put records the canonical SMILES for input.
func (c *CanonicalizationCache) Put(input, canonical string) {
	c.cache.Add(input, canonical)
}

// Len returns the number of cached entries.
func (c *CanonicalizationCache) Len() int {
	return c.cache.Len()
}
