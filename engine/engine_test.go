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

package engine_test

import (
	"encoding/binary"
	"testing"

	"github.com/erigontech/erigon-lib/common"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"github.com/erigontech/changestrie"
	"github.com/erigontech/changestrie/dbadapter"
	"github.com/erigontech/changestrie/engine"
	"github.com/erigontech/changestrie/header"
	"github.com/erigontech/changestrie/internal/memkv"
)

func hashOf(s string) common.Hash {
	return common.BytesToHash(sha3.Sum256([]byte(s))[:])
}

// putCanonicalHeader encodes h and records it both in the Headers column and
// the canonical KeyLookup index.
func putCanonicalHeader(t *testing.T, db *memkv.DB, h header.Header) {
	t.Helper()
	data, err := header.Encode(h)
	require.NoError(t, err)
	require.NoError(t, db.Put(dbadapter.Headers, h.Hash().Bytes(), data))

	var numBuf [8]byte
	binary.BigEndian.PutUint64(numBuf[:], h.Number())
	require.NoError(t, db.Put(dbadapter.KeyLookup, numBuf[:], h.Hash().Bytes()))
}

// putForkHeader records h only by hash: never canonical.
func putForkHeader(t *testing.T, db *memkv.DB, h header.Header) {
	t.Helper()
	data, err := header.Encode(h)
	require.NoError(t, err)
	require.NoError(t, db.Put(dbadapter.Headers, h.Hash().Bytes(), data))
}

func TestEngine_LinearChain_CommitAndRoot(t *testing.T) {
	db := memkv.New()
	meta := changestrie.NewSharedMeta(changestrie.Meta{})
	e := engine.New(db, meta, changestrie.Archive(), nil)

	genesis := header.New(hashOf("g"), common.Hash{}, 0, nil, false, nil)
	putCanonicalHeader(t, db, genesis)

	root1 := hashOf("root-1")
	h1 := header.New(hashOf("b1"), hashOf("g"), 1, &root1, false, nil)
	putCanonicalHeader(t, db, h1)

	node1, node2 := []byte("node-1-bytes"), []byte("node-2-bytes")
	trie := map[common.Hash][]byte{
		hashOf("node-a"): node1,
		hashOf("node-b"): node2,
	}
	ops, err := e.Commit(db, trie, changestrie.NewComplexBlockId(hashOf("g"), 0),
		changestrie.NewComplexBlockId(hashOf("b1"), 1), true, nil)
	require.NoError(t, err)
	require.False(t, ops.Empty())
	e.PostCommit(ops)

	// trie map must be drained by Commit.
	require.Empty(t, trie)

	got, err := e.Get(hashOf("node-a"), nil)
	require.NoError(t, err)
	require.Equal(t, node1, got)

	anchor, err := e.BuildAnchor(hashOf("b1"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), anchor.Number)

	root, err := e.Root(anchor, 1)
	require.NoError(t, err)
	require.NotNil(t, root)
	require.Equal(t, root1, *root)
}

func TestEngine_Root_FutureAnchorRejected(t *testing.T) {
	db := memkv.New()
	meta := changestrie.NewSharedMeta(changestrie.Meta{})
	e := engine.New(db, meta, changestrie.Archive(), nil)

	anchor := changestrie.NewComplexBlockId(hashOf("b1"), 1)
	_, err := e.Root(anchor, 2)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Can't get changes trie root at 2")
}

func TestEngine_BuildAnchor_UnknownHash(t *testing.T) {
	db := memkv.New()
	meta := changestrie.NewSharedMeta(changestrie.Meta{})
	e := engine.New(db, meta, changestrie.Archive(), nil)

	_, err := e.BuildAnchor(hashOf("ghost"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unknown header:")
}

func TestEngine_CommitWithConfigSignal_AtomicPostCommit(t *testing.T) {
	db := memkv.New()
	meta := changestrie.NewSharedMeta(changestrie.Meta{})
	genesisCfg := &changestrie.Config{DigestInterval: 2, DigestLevels: 1}
	e := engine.New(db, meta, changestrie.Archive(), genesisCfg)

	parent := changestrie.NewComplexBlockId(hashOf("g"), 0)
	block := changestrie.NewComplexBlockId(hashOf("b1"), 1)

	newCfg := &changestrie.Config{DigestInterval: 4, DigestLevels: 2}
	signal := &changestrie.ConfigSignal{Config: newCfg}

	trie := map[common.Hash][]byte{}
	ops, err := e.Commit(db, trie, parent, block, true, signal)
	require.NoError(t, err)
	require.False(t, ops.Empty())

	// Not visible before PostCommit: the engine still answers from genesis.
	before, err := e.ConfigAt(block)
	require.NoError(t, err)
	require.Equal(t, genesisCfg, before)

	e.PostCommit(ops)

	after, err := e.ConfigAt(block)
	require.NoError(t, err)
	require.Equal(t, newCfg, after)
}

func TestEngine_CommitWithNilSignal_LeavesConfigUnderGenesis(t *testing.T) {
	db := memkv.New()
	meta := changestrie.NewSharedMeta(changestrie.Meta{})
	genesisCfg := &changestrie.Config{DigestInterval: 2, DigestLevels: 1}
	e := engine.New(db, meta, changestrie.Archive(), genesisCfg)

	parent := changestrie.NewComplexBlockId(hashOf("g"), 0)
	block := changestrie.NewComplexBlockId(hashOf("b1"), 1)

	trie := map[common.Hash][]byte{}
	ops, err := e.Commit(db, trie, parent, block, true, nil)
	require.NoError(t, err)
	require.False(t, ops.Empty())
	e.PostCommit(ops)

	got, err := e.ConfigAt(block)
	require.NoError(t, err)
	require.Equal(t, genesisCfg, got)
}

func TestEngine_ConfigAt_InheritsAcrossBlocksWithoutTheirOwnSignal(t *testing.T) {
	db := memkv.New()
	meta := changestrie.NewSharedMeta(changestrie.Meta{})
	genesisCfg := &changestrie.Config{DigestInterval: 2, DigestLevels: 1}
	e := engine.New(db, meta, changestrie.Archive(), genesisCfg)

	newCfg := &changestrie.Config{DigestInterval: 8, DigestLevels: 3}
	signal := &changestrie.ConfigSignal{Config: newCfg}

	gen := changestrie.NewComplexBlockId(hashOf("g"), 0)
	b1 := changestrie.NewComplexBlockId(hashOf("b1"), 1)
	b2 := changestrie.NewComplexBlockId(hashOf("b2"), 2)

	ops1, err := e.Commit(db, map[common.Hash][]byte{}, gen, b1, false, signal)
	require.NoError(t, err)
	e.PostCommit(ops1)

	// Block 2 carries no signal of its own; it must still see the
	// configuration installed at block 1.
	ops2, err := e.Commit(db, map[common.Hash][]byte{}, b1, b2, false, nil)
	require.NoError(t, err)
	e.PostCommit(ops2)

	got, err := e.ConfigAt(b2)
	require.NoError(t, err)
	require.Equal(t, newCfg, got)
}

func TestEngine_Prune_DeletesBeyondRetentionWindow(t *testing.T) {
	db := memkv.New()
	meta := changestrie.NewSharedMeta(changestrie.Meta{})
	e := engine.New(db, meta, changestrie.KeepBlocks(2), nil)

	const tip = 5
	var lastHash common.Hash
	roots := make(map[uint64]common.Hash, tip+1)
	for n := uint64(0); n <= tip; n++ {
		root := hashOf("root")
		binary.BigEndian.PutUint64(root[:8], n) // de-dup roots per block
		roots[n] = root

		var parent common.Hash
		if n > 0 {
			parent = lastHash
		}
		hash := hashOf("canon")
		binary.BigEndian.PutUint64(hash[:8], n)

		h := header.New(hash, parent, n, &root, false, nil)
		putCanonicalHeader(t, db, h)

		trie := map[common.Hash][]byte{root: []byte("payload")}
		ops, err := e.Commit(db, trie, changestrie.NewComplexBlockId(parent, n-1), changestrie.NewComplexBlockId(hash, n), true, nil)
		require.NoError(t, err)
		e.PostCommit(ops)

		lastHash = hash
	}
	meta.SetFinalized(lastHash, tip)

	cfg := changestrie.Config{} // flat layout
	err := e.Prune(db, cfg, lastHash, tip)
	require.NoError(t, err)

	oldest := e.OldestChangesTrieBlock(cfg, tip)
	require.Equal(t, uint64(4), oldest) // tip(5) - K(2) + 1

	// Pruning only ever considers blocks above the (hard-coded) activation
	// block 0, so block 0 itself survives regardless of the retention window.
	got0, err := e.Get(roots[0], nil)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), got0)

	for n := uint64(1); n < oldest; n++ {
		got, err := e.Get(roots[n], nil)
		require.NoError(t, err)
		require.Nil(t, got, "block %d should have been pruned", n)
	}
	for n := oldest; n <= tip; n++ {
		got, err := e.Get(roots[n], nil)
		require.NoError(t, err)
		require.Equal(t, []byte("payload"), got, "block %d must be retained", n)
	}
}

func TestEngine_Prune_ArchiveRetainsEverything(t *testing.T) {
	db := memkv.New()
	meta := changestrie.NewSharedMeta(changestrie.Meta{})
	e := engine.New(db, meta, changestrie.Archive(), nil)

	root := hashOf("root-archived")
	h := header.New(hashOf("b1"), common.Hash{}, 1, &root, false, nil)
	putCanonicalHeader(t, db, h)

	trie := map[common.Hash][]byte{root: []byte("payload")}
	ops, err := e.Commit(db, trie, changestrie.NewComplexBlockId(common.Hash{}, 0), changestrie.NewComplexBlockId(hashOf("b1"), 1), true, nil)
	require.NoError(t, err)
	e.PostCommit(ops)

	meta.SetFinalized(hashOf("b1"), 1)
	require.NoError(t, e.Prune(db, changestrie.Config{}, hashOf("b1"), 1))

	got, err := e.Get(root, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), got)
}

func TestEngine_ForkResolution_PreFinalization(t *testing.T) {
	db := memkv.New()
	meta := changestrie.NewSharedMeta(changestrie.Meta{})
	e := engine.New(db, meta, changestrie.Archive(), nil)

	g := header.New(hashOf("g"), common.Hash{}, 0, nil, false, nil)
	putCanonicalHeader(t, db, g)
	putCanonicalHeader(t, db, header.New(hashOf("canon-1"), hashOf("g"), 1, nil, false, nil))
	putCanonicalHeader(t, db, header.New(hashOf("canon-2"), hashOf("canon-1"), 2, nil, false, nil))

	forkRoot := hashOf("fork-root")
	fork1 := header.New(hashOf("fork-1"), hashOf("g"), 1, nil, false, nil)
	fork2 := header.New(hashOf("fork-2"), hashOf("fork-1"), 2, &forkRoot, false, nil)
	putForkHeader(t, db, fork1)
	putForkHeader(t, db, fork2)

	anchor := changestrie.NewComplexBlockId(hashOf("fork-2"), 2)
	root, err := e.Root(anchor, 2)
	require.NoError(t, err)
	require.NotNil(t, root)
	require.Equal(t, forkRoot, *root)
}
