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

// Package engine implements the Storage Engine: it persists trie nodes,
// drives digest-aware pruning, and coordinates transactional installation of
// auxiliary-cache updates alongside trie writes. It composes dbadapter,
// header, resolver, cache and prune into the outward-facing storage,
// roots-access and pruning-policy contracts the rest of an import pipeline
// drives it through.
package engine

import (
	"fmt"

	"github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/erigon-lib/log/v3"

	"github.com/erigontech/changestrie"
	"github.com/erigontech/changestrie/cache"
	"github.com/erigontech/changestrie/dbadapter"
	"github.com/erigontech/changestrie/header"
	"github.com/erigontech/changestrie/prune"
	"github.com/erigontech/changestrie/resolver"
)

// RootsAccess is the "roots access" capability: build an anchor and resolve
// roots relative to it.
type RootsAccess interface {
	BuildAnchor(hash common.Hash) (changestrie.ComplexBlockId, error)
	Root(anchor changestrie.ComplexBlockId, b uint64) (*common.Hash, error)
}

// NodeAccess is the "node access" capability: fetch a trie node by its
// content hash.
type NodeAccess interface {
	Get(nodeHash common.Hash, prefix []byte) ([]byte, error)
}

// PruningPolicy is the "prunable policy" capability.
type PruningPolicy interface {
	OldestChangesTrieBlock(cfg changestrie.Config, bestFinalized uint64) uint64
}

// Engine is the Storage Engine. It is long-lived and safe for concurrent use
// by multiple importers, queriers and pruners.
type Engine struct {
	tx        dbadapter.Tx
	meta      *changestrie.SharedMeta
	retention changestrie.RetentionPolicy
	cache     *cache.Cache
}

// New builds an Engine. tx is used for read-only lookups performed outside of
// a caller-supplied transaction (Root, Get, BuildAnchor); Commit/Prune always
// operate against the transaction the caller passes in explicitly.
func New(tx dbadapter.Tx, meta *changestrie.SharedMeta, retention changestrie.RetentionPolicy, genesisConfig *changestrie.Config) *Engine {
	return &Engine{
		tx:        tx,
		meta:      meta,
		retention: retention,
		cache:     cache.New(changestrie.EncodeConfigOption(genesisConfig)),
	}
}

func (e *Engine) resolverOver(tx dbadapter.Tx) *resolver.Resolver {
	return resolver.New(header.NewOracle(tx), e.meta)
}

// Commit stages every (nodeHash, nodeBytes) pair in trie into the
// changes-tries column of tx, and always stages a cache transition for block
// (parented at parentBlock) so the auxiliary cache can later walk block's
// ancestors to resolve CHANGES_TRIE_CONFIG even for blocks that carried no
// signal of their own. When newConfiguration carries a signal, that value is
// staged as block's own explicit configuration; otherwise block simply
// inherits whatever is in effect at parentBlock. Commit returns the
// resulting cache.Ops for the caller to feed to PostCommit once tx is
// durably committed. The trie map is drained as it is written; callers must
// not reuse it afterwards.
func (e *Engine) Commit(
	tx dbadapter.RwTx,
	trie map[common.Hash][]byte,
	parentBlock, block changestrie.ComplexBlockId,
	finalized bool,
	newConfiguration *changestrie.ConfigSignal,
) (cache.Ops, error) {
	n := len(trie)
	for k, v := range trie {
		if err := dbadapter.Put(tx, dbadapter.ChangesTries, k[:], v); err != nil {
			return cache.Ops{}, changestrie.NewClientError(changestrie.Backend, err)
		}
		delete(trie, k)
	}
	log.Debug("changestrie: committed trie nodes", "block", block, "nodes", n)

	update := cache.Entry{}
	if newConfiguration != nil {
		update[cache.ChangesTrieConfigKey] = changestrie.EncodeConfigOption(newConfiguration.Config)
	}
	kind := cache.NonFinal
	if finalized {
		kind = cache.Final
	}
	ops, err := e.cache.OnBlockInsert(parentBlock, block, update, kind)
	if err != nil {
		return cache.Ops{}, changestrie.NewClientError(changestrie.Consensus, err)
	}
	return ops, nil
}

// PostCommit applies ops to the in-memory cache. Callers must only invoke
// this after the transaction passed to Commit has durably committed — this
// is the atomicity pivot that keeps the cache's view from ever running ahead
// of durable storage.
func (e *Engine) PostCommit(ops cache.Ops) {
	e.cache.Commit(ops)
}

// Prune extends tx with deletions for blocks that fall outside the
// configured retention window, respecting the digest hierarchy. For each
// such block only the root node of its changes trie (the key its header
// records) is deleted; nodes below that root are not enumerated and stay in
// the column. It is a no-op under an Archive retention policy.
func (e *Engine) Prune(tx dbadapter.RwTx, cfg changestrie.Config, tipHash common.Hash, tipNumber uint64) error {
	anchor := changestrie.NewComplexBlockId(tipHash, tipNumber)
	var deleted int
	err := prune.Prune(cfg, e.retention, rootsAdapter{e: e, tx: tx}, anchor, func(nodeKey common.Hash) error {
		deleted++
		return dbadapter.Delete(tx, dbadapter.ChangesTries, nodeKey[:])
	})
	if err != nil {
		return changestrie.NewClientError(changestrie.Backend, err)
	}
	log.Debug("changestrie: pruned", "tip", tipNumber, "deleted", deleted)
	return nil
}

// rootsAdapter satisfies prune.RootsStorage by resolving roots through the
// transaction passed to Prune rather than the Engine's own read-only tx.
type rootsAdapter struct {
	e  *Engine
	tx dbadapter.Tx
}

func (a rootsAdapter) Root(anchor changestrie.ComplexBlockId, b uint64) (*common.Hash, error) {
	root, err := a.e.resolverOver(a.tx).Root(anchor, b)
	if err != nil {
		return nil, err
	}
	return root, nil
}

// OldestChangesTrieBlock returns the smallest block number whose changes
// trie is still retained, for cfg and bestFinalized.
func (e *Engine) OldestChangesTrieBlock(cfg changestrie.Config, bestFinalized uint64) uint64 {
	return prune.OldestNonPrunedBlock(cfg, e.retention, bestFinalized)
}

// BuildAnchor looks up hash's header and returns the corresponding anchor.
func (e *Engine) BuildAnchor(hash common.Hash) (changestrie.ComplexBlockId, error) {
	h, err := header.NewOracle(e.tx).HeaderByHash(hash)
	if err != nil {
		return changestrie.ComplexBlockId{}, fmt.Errorf("Unknown header: %s: %w", hash, err)
	}
	return changestrie.NewComplexBlockId(hash, h.Number()), nil
}

// Root resolves the changes-trie root of block b as seen from anchor.
func (e *Engine) Root(anchor changestrie.ComplexBlockId, b uint64) (*common.Hash, error) {
	return e.resolverOver(e.tx).Root(anchor, b)
}

// Get fetches a trie node by its content hash. prefix is accepted only for
// interface symmetry with other trie storages and is ignored: nodes here are
// addressed by raw content hash, not by a trie path prefix.
func (e *Engine) Get(nodeHash common.Hash, prefix []byte) ([]byte, error) {
	v, ok, err := dbadapter.Get(e.tx, dbadapter.ChangesTries, nodeHash[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return v, nil
}

// ConfigAt returns the cache's view of CHANGES_TRIE_CONFIG at block.
func (e *Engine) ConfigAt(block changestrie.ComplexBlockId) (*changestrie.Config, error) {
	return changestrie.DecodeConfigOption(e.cache.ConfigAt(block))
}

var (
	_ RootsAccess   = (*Engine)(nil)
	_ NodeAccess    = (*Engine)(nil)
	_ PruningPolicy = (*Engine)(nil)
)
