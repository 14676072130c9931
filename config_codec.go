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
	"encoding/binary"
	"fmt"
)

// EncodeConfigOption canonically encodes an inner Option<Config> (nil means
// an explicit disable) for storage as a cache value. The outer "was there a
// signal at all" option is represented by whether a cache entry exists, not
// by anything in this encoding.
func EncodeConfigOption(cfg *Config) []byte {
	if cfg == nil {
		return []byte{0}
	}
	b := make([]byte, 9)
	b[0] = 1
	binary.BigEndian.PutUint32(b[1:5], cfg.DigestInterval)
	binary.BigEndian.PutUint32(b[5:9], cfg.DigestLevels)
	return b
}

// DecodeConfigOption reverses EncodeConfigOption.
func DecodeConfigOption(b []byte) (*Config, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("changestrie: empty configuration encoding")
	}
	switch b[0] {
	case 0:
		return nil, nil
	case 1:
		if len(b) != 9 {
			return nil, fmt.Errorf("changestrie: malformed configuration encoding (len=%d)", len(b))
		}
		return &Config{
			DigestInterval: binary.BigEndian.Uint32(b[1:5]),
			DigestLevels:   binary.BigEndian.Uint32(b[5:9]),
		}, nil
	default:
		return nil, fmt.Errorf("changestrie: unknown configuration encoding tag %d", b[0])
	}
}
