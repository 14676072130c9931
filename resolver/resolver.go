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

// Package resolver implements anchor-relative changes-trie root resolution:
// given an arbitrary (possibly unfinalized) anchor block, find the root for
// some ancestor block number, distinguishing canonical from fork ancestry
// and only walking parent pointers when required.
package resolver

import (
	"fmt"

	"github.com/erigontech/erigon-lib/common"

	"github.com/erigontech/changestrie"
	"github.com/erigontech/changestrie/header"
)

// Oracle is the subset of the Header Oracle the resolver needs.
type Oracle interface {
	HeaderByNumber(n uint64) (header.Header, error)
	HeaderByHash(hash common.Hash) (header.Header, error)
}

// Resolver resolves changes-trie roots relative to an anchor.
type Resolver struct {
	oracle Oracle
	meta   *changestrie.SharedMeta
}

// New builds a Resolver over oracle, reading finalization state from meta.
func New(oracle Oracle, meta *changestrie.SharedMeta) *Resolver {
	return &Resolver{oracle: oracle, meta: meta}
}

// Root returns the changes-trie root of ancestor block b as seen from anchor.
// b must be <= anchor.Number; a (nil, nil) result means the target header
// carries no ChangesTrieRoot digest entry.
func (r *Resolver) Root(anchor changestrie.ComplexBlockId, b uint64) (*common.Hash, error) {
	if b > anchor.Number {
		return nil, fmt.Errorf("Can't get changes trie root at %d using anchor at %d", b, anchor.Number)
	}

	var target header.Header
	var err error

	if b <= r.meta.FinalizedNumber() {
		// b is finalized: the canonical-number index gives an O(1) answer,
		// even if anchor itself sits on an abandoned fork that diverged
		// before finalization — that fork is assumed unreachable.
		target, err = r.oracle.HeaderByNumber(b)
	} else {
		canon, canonErr := r.oracle.HeaderByNumber(anchor.Number)
		if canonErr != nil {
			return nil, canonErr
		}
		if canon.Hash() == anchor.Hash {
			// anchor lies on the canonical fork.
			target, err = r.oracle.HeaderByNumber(b)
		} else {
			// anchor is on a side fork: walk parent pointers down to b.
			curHash, curNum := anchor.Hash, anchor.Number
			for curNum != b {
				h, hErr := r.oracle.HeaderByHash(curHash)
				if hErr != nil {
					return nil, hErr
				}
				curHash = h.ParentHash()
				curNum--
			}
			target, err = r.oracle.HeaderByHash(curHash)
		}
	}
	if err != nil {
		return nil, err
	}

	root, ok := header.ExtractChangesTrieRoot(target)
	if !ok {
		return nil, nil
	}
	return &root, nil
}
