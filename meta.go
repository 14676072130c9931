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

import (
	"sync"

	"github.com/erigontech/erigon-lib/common"
)

// Meta is the shared, read-mostly block-finality bookkeeping the storage
// engine never mutates itself; the surrounding import pipeline updates it as
// blocks are finalized.
type Meta struct {
	FinalizedHash   common.Hash
	FinalizedNumber uint64
	GenesisHash     common.Hash
}

// SharedMeta guards Meta behind a reader/writer lock so it can be shared by
// value-counted reference across importers, queriers and pruners.
type SharedMeta struct {
	mu   sync.RWMutex
	meta Meta
}

// NewSharedMeta returns a SharedMeta seeded with the given initial value.
func NewSharedMeta(initial Meta) *SharedMeta {
	return &SharedMeta{meta: initial}
}

// Snapshot returns a copy of the current Meta. Callers must never retain a
// pointer into the lock-protected state; this returns a plain value instead.
func (m *SharedMeta) Snapshot() Meta {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta
}

// FinalizedNumber returns the current finalized block number.
func (m *SharedMeta) FinalizedNumber() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta.FinalizedNumber
}

// SetFinalized updates the finalized hash/number. Exposed so tests (and the
// surrounding import pipeline, outside this core) can simulate finalization;
// the engine itself never calls this.
func (m *SharedMeta) SetFinalized(hash common.Hash, number uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta.FinalizedHash = hash
	m.meta.FinalizedNumber = number
}
