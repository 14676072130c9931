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

package header

import (
	"encoding/binary"
	"fmt"

	"github.com/erigontech/erigon-lib/common"

	"github.com/erigontech/changestrie/dbadapter"
)

// UnknownHeaderError is the single error kind the oracle surfaces.
type UnknownHeaderError struct {
	id fmt.Stringer
}

func (e *UnknownHeaderError) Error() string { return fmt.Sprintf("unknown header: %s", e.id) }

type stringerNumber uint64

func (n stringerNumber) String() string { return fmt.Sprintf("#%d", uint64(n)) }

type stringerHash common.Hash

func (h stringerHash) String() string { return common.Hash(h).String() }

// Oracle is the read-only Header Oracle: header lookup by number or hash over
// the KeyLookup and Headers columns. It never writes.
type Oracle struct {
	tx dbadapter.Tx
}

// NewOracle wraps a read-only (or read side of a read-write) transaction.
func NewOracle(tx dbadapter.Tx) *Oracle {
	return &Oracle{tx: tx}
}

func encodeNumber(n uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return b[:]
}

// HeaderByNumber returns the canonical header at number n.
func (o *Oracle) HeaderByNumber(n uint64) (Header, error) {
	hashBytes, ok, err := dbadapter.Get(o.tx, dbadapter.KeyLookup, encodeNumber(n))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &UnknownHeaderError{id: stringerNumber(n)}
	}
	hash := common.BytesToHash(hashBytes)
	return o.headerByHash(hash, stringerNumber(n))
}

// HeaderByHash returns the header stored under hash.
func (o *Oracle) HeaderByHash(hash common.Hash) (Header, error) {
	return o.headerByHash(hash, stringerHash(hash))
}

func (o *Oracle) headerByHash(hash common.Hash, id fmt.Stringer) (Header, error) {
	data, ok, err := dbadapter.Get(o.tx, dbadapter.Headers, hash[:])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &UnknownHeaderError{id: id}
	}
	return Decode(hash, data)
}
