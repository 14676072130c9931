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

package dbadapter

// Getter, Putter and Deleter mirror the method names erigon-lib/kv's
// kv.Tx/kv.RwTx expose for single-key access (GetOne/Put/Delete). They are
// declared locally, rather than importing kv.Tx/kv.RwTx directly, because
// those carry a much larger surface (cursors, range scans, dup-sort) this
// engine never touches — any real kv.RwTx already satisfies RwTx
// structurally, and small, orthogonal interfaces compose better than one
// large one.
type Getter interface {
	GetOne(table string, key []byte) ([]byte, error)
}

type Putter interface {
	Put(table string, key, value []byte) error
}

type Deleter interface {
	Delete(table string, key []byte) error
}

// Tx is the read-only capability this package needs.
type Tx interface {
	Getter
}

// RwTx is the read-write capability needed by the commit/prune path.
type RwTx interface {
	Tx
	Putter
	Deleter
}

// Get reads value for key in col, returning (nil, false, nil) on a miss.
func Get(tx Tx, col string, key []byte) ([]byte, bool, error) {
	v, err := tx.GetOne(col, key)
	if err != nil {
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	return v, true, nil
}

// Put stages key=>value in col on the caller-supplied transaction. The
// transaction is never committed here.
func Put(tx RwTx, col string, key, value []byte) error {
	return tx.Put(col, key, value)
}

// Delete stages a deletion of key in col on the caller-supplied transaction.
// Deleting an absent key is a no-op, which is what makes prune.Prune
// idempotent across repeated calls over an already-pruned range.
func Delete(tx RwTx, col string, key []byte) error {
	return tx.Delete(col, key)
}
