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

package changestrie

// RetentionPolicy governs how much changes-trie history the storage engine
// keeps behind the finalized tip.
type RetentionPolicy interface {
	// MinBlocksToKeep returns the retention window K and ok=true, or
	// ok=false for Archive, which never prunes.
	MinBlocksToKeep() (k uint32, ok bool)
}

type archivePolicy struct{}

func (archivePolicy) MinBlocksToKeep() (uint32, bool) { return 0, false }

// Archive returns a RetentionPolicy that never prunes changes-trie history.
func Archive() RetentionPolicy { return archivePolicy{} }

type keepPolicy struct{ k uint32 }

func (p keepPolicy) MinBlocksToKeep() (uint32, bool) { return p.k, true }

// KeepBlocks returns a RetentionPolicy retaining at least k blocks of
// changes-trie history behind the finalized tip. k must be >= 1.
func KeepBlocks(k uint32) RetentionPolicy {
	if k == 0 {
		panic("changestrie: KeepBlocks requires k >= 1")
	}
	return keepPolicy{k: k}
}

// IsArchive reports whether p never prunes.
func IsArchive(p RetentionPolicy) bool {
	_, ok := p.MinBlocksToKeep()
	return !ok
}
