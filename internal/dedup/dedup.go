// Copyright 2026 The Sdict Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dedup implements a content-addressed definition dedup index:
// a size→hash→offsets map used to avoid writing an identical definition
// body twice, plus the FNV-1a-64 hash it keys on.
//
// Map never touches the underlying file; it only tracks candidate
// offsets. Verifying that a candidate's stored bytes actually match is
// the caller's job (store re-reads the stored size/hash and compares the
// stored bytes), since only the caller holds the open file.
package dedup

import (
	"hash"
	"hash/fnv"
)

// Map is the in-memory size→hash→offsets dedup index.
type Map struct {
	bySize map[uint32]map[uint64][]uint32
}

// New returns an empty Map.
func New() *Map {
	return &Map{bySize: make(map[uint32]map[uint64][]uint32)}
}

// Register records that a definition of the given size and content hash
// exists at defInd. If an identical (size, hash) pair is registered more
// than once, later offsets are appended after earlier ones, so the
// earliest-seen offset for a given body is always tried first.
func (m *Map) Register(size uint32, hash uint64, defInd uint32) {
	bySize, ok := m.bySize[size]
	if !ok {
		bySize = make(map[uint64][]uint32)
		m.bySize[size] = bySize
	}
	bySize[hash] = append(bySize[hash], defInd)
}

// Candidates returns the def offsets previously registered under the
// given (size, hash) pair, in registration order. The caller must verify
// a candidate's actual stored content before treating it as a match; a
// returned slice is only a hint, not a guarantee, because FNV-1a
// collisions are possible.
func (m *Map) Candidates(size uint32, hash uint64) []uint32 {
	bySize, ok := m.bySize[size]
	if !ok {
		return nil
	}
	return bySize[hash]
}

// NewHash returns a fresh FNV-1a-64 hasher using the standard offset
// basis (0xcbf29ce484222325) and prime (0x100000001b3). Because it
// implements hash.Hash64's io.Writer interface,
// feeding it successive byte slices (as the store's batched definition
// reads do) produces the same result as hashing the whole definition at
// once.
func NewHash() hash.Hash64 {
	return fnv.New64a()
}

// Sum64 hashes data in one call.
func Sum64(data []byte) uint64 {
	h := NewHash()
	h.Write(data) //nolint:errcheck // hash.Hash64's Write never errors.
	return h.Sum64()
}
