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

package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/inkwell-labs/sdict/codec"
	"github.com/inkwell-labs/sdict/internal/dedup"
)

// FixtureWord is a single word/definition pair given to MakeFixture.
type FixtureWord struct {
	Word string
	Def  []byte
}

// MakeFixture builds the raw bytes of a valid, on-disk sdict file
// containing the given words. Defs are written in sorted word order,
// without deduplication, even if two words share an identical
// definition body: tests that care about deduplicated storage should
// assert on that separately. reservedWords and wordsSectSize set the
// fixture's fixed capacities; MakeFixture panics if they're too small
// for the words supplied, since that would describe a malformed file
// rather than one worth testing against.
func MakeFixture(words []FixtureWord, reservedWords, wordsSectSize uint32) []byte {
	if uint32(len(words)) > reservedWords {
		panic(fmt.Sprintf("reserved_words %d too small for %d words", reservedWords, len(words)))
	}

	sorted := make([]FixtureWord, len(words))
	copy(sorted, words)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Word < sorted[j].Word })

	var wordBytes bytes.Buffer
	wordOffsets := make([]uint32, len(sorted))
	for i, w := range sorted {
		wordOffsets[i] = uint32(wordBytes.Len())
		wordBytes.WriteString(w.Word)
		wordBytes.WriteByte(0)
	}
	if uint32(wordBytes.Len()) > wordsSectSize {
		panic(fmt.Sprintf("words_sect_size %d too small for %d bytes of words", wordsSectSize, wordBytes.Len()))
	}

	var defBytes bytes.Buffer
	defOffsets := make([]uint32, len(sorted))
	for i, w := range sorted {
		defOffsets[i] = uint32(defBytes.Len())
		var sizeBuf [4]byte
		binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(w.Def)))
		defBytes.Write(sizeBuf[:])
		var hashBuf [8]byte
		binary.LittleEndian.PutUint64(hashBuf[:], dedup.Sum64(w.Def))
		defBytes.Write(hashBuf[:])
		defBytes.Write(w.Def)
	}

	var out bytes.Buffer
	out.Write(codec.Magic[:])
	writeU32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		out.Write(b[:])
	}

	writeU32(reservedWords)
	writeU32(wordsSectSize)
	writeU32(uint32(len(sorted)))

	for _, off := range wordOffsets {
		writeU32(off + 1)
	}
	for i := len(sorted); i < int(reservedWords); i++ {
		writeU32(0)
	}
	for _, off := range defOffsets {
		writeU32(off + 1)
	}
	for i := len(sorted); i < int(reservedWords); i++ {
		writeU32(0)
	}

	out.Write(wordBytes.Bytes())
	out.Write(make([]byte, int(wordsSectSize)-wordBytes.Len()))
	out.Write(defBytes.Bytes())

	return out.Bytes()
}
