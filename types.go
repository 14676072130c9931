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

// Package changestrie holds the domain types shared by every layer of the
// fork-aware changes-trie storage engine: block identity, the changes-trie
// configuration, retention policy and the process-wide finalization metadata.
package changestrie

import (
	"fmt"

	"github.com/erigontech/erigon-lib/common"
)

// ComplexBlockId uniquely identifies a block within a tree of forks: the same
// Number may exist on more than one fork, so Hash disambiguates.
type ComplexBlockId struct {
	Hash   common.Hash
	Number uint64
}

func NewComplexBlockId(hash common.Hash, number uint64) ComplexBlockId {
	return ComplexBlockId{Hash: hash, Number: number}
}

func (id ComplexBlockId) String() string {
	return fmt.Sprintf("%d#%s", id.Number, id.Hash)
}

// Config is the changes-trie configuration carried by ChangesTrieSignal
// header digests. DigestInterval == 0 (or DigestLevels == 0) means a flat,
// non-digested layout: every block's trie stands alone.
type Config struct {
	DigestInterval uint32
	DigestLevels   uint32
}

// FlatLayout reports whether this configuration builds no digest tries at all.
func (c Config) FlatLayout() bool {
	return c.DigestInterval == 0 || c.DigestLevels == 0
}

// DigestLevelFor returns the highest digest level block n belongs to under c,
// or 0 if n is not a digest block (including when c is a flat layout).
func (c Config) DigestLevelFor(n uint64) uint32 {
	if c.FlatLayout() || n == 0 {
		return 0
	}
	level := uint32(0)
	reach := uint64(c.DigestInterval)
	for l := uint32(1); l <= c.DigestLevels; l++ {
		if n%reach != 0 {
			break
		}
		level = l
		next := reach * uint64(c.DigestInterval)
		if next <= reach { // overflow guard
			break
		}
		reach = next
	}
	return level
}

// ConfigSignal represents Option<Option<Config>>: a nil *ConfigSignal means
// "header carried no signal at all" (inherit from parent); a non-nil
// ConfigSignal with Config == nil means "signal present, explicitly
// disabling changes tries"; a non-nil ConfigSignal with Config != nil means
// "signal present, installing this configuration". Collapsing this into a
// single pointer-to-struct (rather than two separate bools) keeps the two
// independent options from being accidentally conflated at call sites.
type ConfigSignal struct {
	Config *Config
}

// MaxDigestReach returns DigestInterval^DigestLevels, the number of blocks the
// highest configured digest level summarises. It is 0 for a flat layout.
func (c Config) MaxDigestReach() uint64 {
	if c.FlatLayout() {
		return 0
	}
	reach := uint64(1)
	for i := uint32(0); i < c.DigestLevels; i++ {
		reach *= uint64(c.DigestInterval)
	}
	return reach
}
