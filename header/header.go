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

// Package header provides the read-only Header Oracle: header lookup by
// number or hash, and extraction of the two changes-trie digest entries a
// header may carry.
package header

import (
	"github.com/erigontech/erigon-lib/common"
	"github.com/erigontech/erigon-lib/rlp"

	"github.com/erigontech/changestrie"
)

// DigestKind tags a DigestItem.
type DigestKind uint8

const (
	DigestChangesTrieRoot DigestKind = iota
	DigestChangesTrieSignal
)

// DigestItem is one tagged log entry from a header's digest. Only Root is
// valid for DigestChangesTrieRoot; only Config is meaningful for
// DigestChangesTrieSignal, where a nil Config means the signal explicitly
// disables changes tries from this block on (not "no signal at all" — that
// case is the absence of any DigestChangesTrieSignal item in the slice).
type DigestItem struct {
	Kind   DigestKind
	Root   common.Hash
	Config *changestrie.Config
}

// Header is the opaque, read-only record the oracle hands back.
type Header interface {
	Number() uint64
	Hash() common.Hash
	ParentHash() common.Hash
	Digest() []DigestItem
}

// wireHeader is the RLP-encoded, on-disk representation. The outer/inner
// option for the changes-trie signal is represented directly: SignalPresent
// distinguishes "no signal at all" from "signal present"; SignalConfig nil
// vs non-nil distinguishes an explicit disable from an enabled configuration.
type wireHeader struct {
	Number        uint64
	ParentHash    common.Hash
	ChangesRoot   *common.Hash `rlp:"nil"`
	SignalPresent bool
	SignalConfig  *changestrie.Config `rlp:"nil"`
}

// concreteHeader implements Header over a decoded wireHeader plus its own hash.
type concreteHeader struct {
	hash common.Hash
	w    wireHeader
}

func (h *concreteHeader) Number() uint64          { return h.w.Number }
func (h *concreteHeader) Hash() common.Hash       { return h.hash }
func (h *concreteHeader) ParentHash() common.Hash { return h.w.ParentHash }

func (h *concreteHeader) Digest() []DigestItem {
	var items []DigestItem
	if h.w.ChangesRoot != nil {
		items = append(items, DigestItem{Kind: DigestChangesTrieRoot, Root: *h.w.ChangesRoot})
	}
	if h.w.SignalPresent {
		items = append(items, DigestItem{Kind: DigestChangesTrieSignal, Config: h.w.SignalConfig})
	}
	return items
}

// New builds a Header ready for encoding and storage. hash is supplied by the
// caller: block hashing and header construction are a blockchain-layer
// concern, outside what this core owns.
func New(hash, parentHash common.Hash, number uint64, changesRoot *common.Hash, signalPresent bool, signalConfig *changestrie.Config) Header {
	return &concreteHeader{
		hash: hash,
		w: wireHeader{
			Number:        number,
			ParentHash:    parentHash,
			ChangesRoot:   changesRoot,
			SignalPresent: signalPresent,
			SignalConfig:  signalConfig,
		},
	}
}

// Encode RLP-encodes h for storage in the Headers column.
func Encode(h Header) ([]byte, error) {
	ch, ok := h.(*concreteHeader)
	if !ok {
		// Re-derive a wireHeader from the interface so any Header
		// implementation can be persisted, not just our own.
		ch = &concreteHeader{hash: h.Hash(), w: wireHeader{Number: h.Number(), ParentHash: h.ParentHash()}}
		for _, item := range h.Digest() {
			switch item.Kind {
			case DigestChangesTrieRoot:
				root := item.Root
				ch.w.ChangesRoot = &root
			case DigestChangesTrieSignal:
				ch.w.SignalPresent = true
				ch.w.SignalConfig = item.Config
			}
		}
	}
	return rlp.EncodeToBytes(&ch.w)
}

// Decode reverses Encode, given the block hash the bytes were stored under.
func Decode(hash common.Hash, data []byte) (Header, error) {
	var w wireHeader
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return nil, err
	}
	return &concreteHeader{hash: hash, w: w}, nil
}

// ExtractChangesTrieRoot returns the first ChangesTrieRoot digest entry, if any.
func ExtractChangesTrieRoot(h Header) (common.Hash, bool) {
	for _, item := range h.Digest() {
		if item.Kind == DigestChangesTrieRoot {
			return item.Root, true
		}
	}
	return common.Hash{}, false
}

// ExtractNewConfiguration returns the changes-trie configuration signal
// carried by h's digest, if any. A nil result means the header carried no
// signal at all; a non-nil result with a nil Config means an explicit
// disable (see changestrie.ConfigSignal).
func ExtractNewConfiguration(h Header) *changestrie.ConfigSignal {
	for _, item := range h.Digest() {
		if item.Kind == DigestChangesTrieSignal {
			return &changestrie.ConfigSignal{Config: item.Config}
		}
	}
	return nil
}
