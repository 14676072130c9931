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
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind distinguishes the structured error cases the commit/prune path
// can surface. Read-path errors (root/get/build_anchor) are plain strings
// instead, per the external ChangesTrieStorage trait's contract — the two
// surfaces are an intentional API duality, not an oversight.
type ErrorKind int

const (
	// Backend wraps an underlying KV I/O failure.
	Backend ErrorKind = iota
	// UnknownBlock means a caller-supplied block identifier has no header.
	UnknownBlock
	// Consensus wraps a failure surfaced by the auxiliary cache subsystem.
	Consensus
)

func (k ErrorKind) String() string {
	switch k {
	case Backend:
		return "Backend"
	case UnknownBlock:
		return "UnknownBlock"
	case Consensus:
		return "Consensus"
	default:
		return "Unknown"
	}
}

// ClientError is the structured error surfaced by the commit/prune path.
type ClientError struct {
	Kind  ErrorKind
	cause error
}

func (e *ClientError) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.cause)
}

func (e *ClientError) Unwrap() error { return e.cause }

// NewClientError wraps cause with a stack trace (via pkg/errors) and tags it
// with kind, so callers further up the import pipeline can errors.As into a
// *ClientError and branch on Kind without string matching.
func NewClientError(kind ErrorKind, cause error) *ClientError {
	return &ClientError{Kind: kind, cause: errors.WithStack(cause)}
}

// NewUnknownBlockError builds an UnknownBlock ClientError for id.
func NewUnknownBlockError(id fmt.Stringer) *ClientError {
	return NewClientError(UnknownBlock, errors.Errorf("unknown block: %s", id))
}
