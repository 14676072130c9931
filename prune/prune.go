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

// Package prune is the digest-interval pruning algorithm: given a changes-
// trie configuration, a retention window and an anchor, it enumerates the
// root node key of every block whose changes trie may be deleted (nodes
// below a root are not walked). It is deliberately kept separate from
// engine.Engine, which only drives this algorithm (supplying the access path
// and the deletion sink); the digest-hierarchy correctness lives here.
package prune

import (
	"github.com/erigontech/erigon-lib/common"

	"github.com/erigontech/changestrie"
)

// RootsStorage resolves the changes-trie root at block b as seen from anchor.
// engine.Engine satisfies this directly via its own root-resolution path.
type RootsStorage interface {
	Root(anchor changestrie.ComplexBlockId, b uint64) (*common.Hash, error)
}

// Sink is invoked once per node key selected for deletion.
type Sink func(nodeKey common.Hash) error

// activationBlock is the block at which the changes-trie configuration
// passed to OldestNonPrunedBlock/Prune took effect. Both functions hard-code
// it to 0 rather than threading through the real activation block — a known
// limitation, preserved deliberately rather than silently fixed. A chain
// whose configuration was enabled at a non-zero block will have its pruning
// window computed from the wrong origin.
const activationBlock uint64 = 0 // TODO: not true

// OldestNonPrunedBlock returns the smallest block number whose changes trie
// is still retained for cfg under retention, given bestFinalized.
func OldestNonPrunedBlock(cfg changestrie.Config, retention changestrie.RetentionPolicy, bestFinalized uint64) uint64 {
	k, ok := retention.MinBlocksToKeep()
	if !ok {
		return 1
	}
	minBlocksToKeep := uint64(k)
	if bestFinalized < minBlocksToKeep {
		return activationBlock + 1
	}
	diff := bestFinalized - minBlocksToKeep

	d := cfg.MaxDigestReach()
	if d == 0 {
		return diff + 1
	}
	// Round diff down to the start of the digest interval it falls in: a
	// digest at the highest configured level summarises d blocks at a time,
	// so it must survive until the whole interval it covers falls outside
	// the retention window, not just the interval's last block.
	return (diff/d)*d + 1
}

// Prune resolves every block number from the configuration's activation
// block up to (but excluding) the oldest still-retained block, and invokes
// sink for each one's resolved root. Re-running Prune over an
// already-pruned range is safe: sink ultimately stages a KV delete, and
// deleting an absent key is a no-op.
func Prune(cfg changestrie.Config, retention changestrie.RetentionPolicy, roots RootsStorage, anchor changestrie.ComplexBlockId, sink Sink) error {
	if _, ok := retention.MinBlocksToKeep(); !ok {
		return nil // Archive: never prune.
	}

	oldest := OldestNonPrunedBlock(cfg, retention, anchor.Number)
	for b := activationBlock + 1; b < oldest; b++ {
		root, err := roots.Root(anchor, b)
		if err != nil {
			return err
		}
		if root == nil {
			continue
		}
		if err := sink(*root); err != nil {
			return err
		}
	}
	return nil
}
