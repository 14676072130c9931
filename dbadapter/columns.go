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

// Package dbadapter is a thin, column-scoped view over erigon-lib's
// column-oriented transactional KV (kv.Tx / kv.RwTx). It never commits the
// transaction it is handed — that discipline belongs to the caller, so trie
// writes, cache writes and the rest of the block-import pipeline's writes can
// land in one atomic batch.
package dbadapter

// The four logical columns this core touches. KeyLookup and Headers are
// read-only from this package's perspective; Cache is owned by the cache
// subsystem and this core writes only the well-known CHANGES_TRIE_CONFIG key
// into it.
const (
	// ChangesTries: key = 32-byte node hash, value = opaque node bytes.
	ChangesTries = "ChangesTries"
	// KeyLookup: key = 8-byte big-endian block number, value = canonical block hash.
	KeyLookup = "HeaderCanonical"
	// Headers: key = 32-byte block hash, value = RLP-encoded header.
	Headers = "Headers"
	// Cache: key = well-known cache key name, value = cache-subsystem-encoded bytes.
	Cache = "ChangesTrieCache"
)
