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

import "github.com/inkwell-labs/sdict/codec"

// Initial capacities for a freshly created file.
const (
	initReservedWords uint32 = 32
	initWordsSectSize uint32 = 256

	// batchSize bounds how many definition bytes are read or compared at
	// once, so a single large definition never requires loading the
	// whole record into memory at points where only a hash or equality
	// check is needed.
	batchSize = 4096
)

// headerFieldsSize is the size, in bytes, of the three uint32 fields
// that follow the magic: reserved_words, words_sect_size, num_words.
const headerFieldsSize = 4 + 4 + 4

// indsSectionOffset is the byte offset of the word-index table, right
// after the magic and the three header fields.
func indsSectionOffset() int64 {
	return int64(len(codec.Magic)) + headerFieldsSize
}

// wordsSectionOffset is the byte offset of the words section: past both
// fixed-capacity index tables (word_inds and def_inds, 4 bytes each,
// reservedWords entries apiece).
func wordsSectionOffset(reservedWords uint32) int64 {
	return indsSectionOffset() + int64(reservedWords)*4*2
}

// defsSectionOffset is the byte offset of the defs section: past the
// words section.
func defsSectionOffset(reservedWords, wordsSectSize uint32) int64 {
	return wordsSectionOffset(reservedWords) + int64(wordsSectSize)
}
