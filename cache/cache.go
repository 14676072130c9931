// Copyright 2025 The Erigon Authors
// This file is part of Changestrie.
//
// Changestrie is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Changestrie is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Changestrie. If not, see <http://www.gnu.org/licenses/>.

// Package cache is the auxiliary, fork-aware in-memory cache of per-block
// configuration values. It records one well-known key, ChangesTrieConfigKey,
// whose value at block b is installed atomically alongside the KV commit
// that carries the corresponding header digest: Commit must only be called
// after that KV commit has durably succeeded (see engine.Engine.PostCommit).
package cache

import (
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/erigontech/changestrie"
)

// Key names a well-known cache entry.
type Key string

// ChangesTrieConfigKey is the only key this core writes.
const ChangesTrieConfigKey Key = "CHANGES_TRIE_CONFIG"

// Entry is a mapping of well-known keys to their encoded values.
type Entry map[Key][]byte

// EntryType tags a cache transition with the finalized flag of the block
// that caused it; the cache uses this to decide whether a transition can be
// folded into the finalized trunk or must wait as a pending, fork-local view.
type EntryType int

const (
	NonFinal EntryType = iota
	Final
)

// defaultCheckpointCapacity bounds how many finalized configuration
// checkpoints the cache keeps hot; configuration changes are rare over a
// chain's lifetime, so this is sized generously rather than tuned tightly.
const defaultCheckpointCapacity = 4096

type transition struct {
	parent   changestrie.ComplexBlockId
	block    changestrie.ComplexBlockId
	value    []byte
	hasValue bool
	kind     EntryType
}

// Ops is the set of staged cache transitions produced by OnBlockInsert,
// meant to be handed to Commit only once the caller's KV transaction has
// durably committed.
type Ops struct {
	transitions []transition
}

// Empty reports whether there is nothing to apply.
func (o Ops) Empty() bool { return len(o.transitions) == 0 }

// pendingEntry is one node of the in-memory, unfinalized transition tree:
// block's config value is value if hasValue, otherwise block inherits
// whatever config is in effect at parent.
type pendingEntry struct {
	parent   changestrie.ComplexBlockId
	value    []byte
	hasValue bool
}

// Cache is the fork-aware, single-writer-locked auxiliary cache.
type Cache struct {
	mu sync.RWMutex

	genesis []byte

	checkpoints    *lru.Cache[uint64, []byte]
	checkpointNums []uint64 // sorted ascending, mirrors checkpoints' keys
	pending        map[changestrie.ComplexBlockId]pendingEntry
}

// New builds a Cache whose fallback value is genesisValue, used whenever a
// queried block has no ancestor carrying an explicit configuration change.
func New(genesisValue []byte) *Cache {
	lc, err := lru.New[uint64, []byte](defaultCheckpointCapacity)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// defaultCheckpointCapacity never is.
		panic(err)
	}
	return &Cache{
		genesis:     genesisValue,
		checkpoints: lc,
		pending:     make(map[changestrie.ComplexBlockId]pendingEntry),
	}
}

// OnBlockInsert stages a transition for block (parented at parent). update
// may or may not carry an explicit ChangesTrieConfigKey value: every block is
// staged regardless, so ConfigAt can later walk from any inserted block back
// through its ancestors to find the value it inherits. It does not mutate the
// cache's visible state yet — that only happens in Commit, and only for
// Final transitions is it folded into the finalized trunk.
func (c *Cache) OnBlockInsert(parent, block changestrie.ComplexBlockId, update Entry, kind EntryType) (Ops, error) {
	value, hasValue := update[ChangesTrieConfigKey]
	return Ops{transitions: []transition{{parent: parent, block: block, value: value, hasValue: hasValue, kind: kind}}}, nil
}

// Commit applies staged ops. This is the atomicity pivot: call only after the
// outer KV transaction has durably committed.
func (c *Cache) Commit(ops Ops) {
	if ops.Empty() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range ops.transitions {
		c.pending[t.block] = pendingEntry{parent: t.parent, value: t.value, hasValue: t.hasValue}
		if t.kind == Final {
			// Fold the finalized block and each of its pending ancestors into
			// checkpoints before the pending entries at or below it go away.
			cur := t.block
			for i := 0; i <= len(c.pending); i++ {
				entry, ok := c.pending[cur]
				if !ok {
					break
				}
				c.installCheckpointLocked(cur.Number, c.effectiveValueLocked(cur))
				cur = entry.parent
			}
			for id := range c.pending {
				if id.Number <= t.block.Number {
					delete(c.pending, id)
				}
			}
		}
	}
}

func (c *Cache) installCheckpointLocked(number uint64, value []byte) {
	c.checkpoints.Add(number, value)
	i := sort.Search(len(c.checkpointNums), func(i int) bool { return c.checkpointNums[i] >= number })
	if i < len(c.checkpointNums) && c.checkpointNums[i] == number {
		return
	}
	c.checkpointNums = append(c.checkpointNums, 0)
	copy(c.checkpointNums[i+1:], c.checkpointNums[i:])
	c.checkpointNums[i] = number
}

// ConfigAt returns the cache's view of CHANGES_TRIE_CONFIG at block: the
// pending chain ancestor (walking parent pointers) closest to block that
// carries an explicit value, then the newest finalized checkpoint at or
// below block.Number, then the genesis fallback.
func (c *Cache) ConfigAt(block changestrie.ComplexBlockId) []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.effectiveValueLocked(block)
}

func (c *Cache) effectiveValueLocked(block changestrie.ComplexBlockId) []byte {
	if v, ok := c.resolvePendingLocked(block); ok {
		return v
	}
	if v, ok := c.latestCheckpointAtOrBelowLocked(block.Number); ok {
		return v
	}
	return c.genesis
}

// resolvePendingLocked walks block's ancestor chain through pending entries
// until it finds one carrying an explicit value, or runs out of recorded
// ancestors. The iteration count is bounded by len(pending) so a malformed
// chain can't loop forever.
func (c *Cache) resolvePendingLocked(block changestrie.ComplexBlockId) ([]byte, bool) {
	cur := block
	for i := 0; i <= len(c.pending); i++ {
		entry, ok := c.pending[cur]
		if !ok {
			return nil, false
		}
		if entry.hasValue {
			return entry.value, true
		}
		cur = entry.parent
	}
	return nil, false
}

func (c *Cache) latestCheckpointAtOrBelowLocked(number uint64) ([]byte, bool) {
	i := sort.Search(len(c.checkpointNums), func(i int) bool { return c.checkpointNums[i] > number })
	for i > 0 {
		i--
		if v, ok := c.checkpoints.Get(c.checkpointNums[i]); ok {
			return v, true
		}
		// Evicted from the LRU: fall through to the next older checkpoint.
	}
	return nil, false
}
