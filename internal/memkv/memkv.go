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

// Package memkv is an in-memory fake of the small Getter/Putter/Deleter
// capability interfaces dbadapter declares, sized for use in tests across
// this module. It is not a general-purpose KV store: no iteration, no
// transactions, no concurrency control beyond what its callers already
// serialize for themselves.
package memkv

// DB is a bare map-of-maps store satisfying dbadapter.Tx and dbadapter.RwTx.
type DB struct {
	tables map[string]map[string][]byte
}

// New returns an empty DB.
func New() *DB {
	return &DB{tables: make(map[string]map[string][]byte)}
}

// GetOne returns (nil, nil) on a miss, matching kv.Tx.GetOne's contract.
func (d *DB) GetOne(table string, key []byte) ([]byte, error) {
	t, ok := d.tables[table]
	if !ok {
		return nil, nil
	}
	v, ok := t[string(key)]
	if !ok {
		return nil, nil
	}
	return v, nil
}

// Put stores a copy of value under key in table.
func (d *DB) Put(table string, key, value []byte) error {
	t, ok := d.tables[table]
	if !ok {
		t = make(map[string][]byte)
		d.tables[table] = t
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	t[string(key)] = cp
	return nil
}

// Delete removes key from table. Deleting an absent key is a no-op.
func (d *DB) Delete(table string, key []byte) error {
	if t, ok := d.tables[table]; ok {
		delete(t, string(key))
	}
	return nil
}

// Has reports whether key is present in table, for test assertions.
func (d *DB) Has(table string, key []byte) bool {
	t, ok := d.tables[table]
	if !ok {
		return false
	}
	_, ok = t[string(key)]
	return ok
}
