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
	"fmt"
	"io"
	"os"

	"github.com/inkwell-labs/sdict/codec"
	"github.com/inkwell-labs/sdict/internal/dedup"
	"github.com/inkwell-labs/sdict/internal/wordindex"
)

// createFile lays out a brand-new, empty store: the magic, the three
// header fields, and a zero-filled inds table and words section sized
// to the initial capacities.
func (s *Store) createFile() error {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrIO, s.path, err)
	}
	s.f = f
	s.mode = modeReadWrite
	s.reservedWords = initReservedWords
	s.wordsSectSize = initWordsSectSize

	if _, err := f.Write(codec.Magic[:]); err != nil {
		return s.ioCloseErr(err)
	}
	if err := codec.WriteUint32(f, s.reservedWords); err != nil {
		return s.ioCloseErr(err)
	}
	if err := codec.WriteUint32(f, s.wordsSectSize); err != nil {
		return s.ioCloseErr(err)
	}
	if err := codec.WriteUint32(f, 0); err != nil {
		return s.ioCloseErr(err)
	}
	if err := codec.WriteNulls(f, int(s.reservedWords)*4*2); err != nil {
		return s.ioCloseErr(err)
	}
	if err := codec.WriteNulls(f, int(s.wordsSectSize)); err != nil {
		return s.ioCloseErr(err)
	}
	if err := f.Sync(); err != nil {
		return s.ioCloseErr(err)
	}
	return nil
}

// readFile opens an existing store and validates it: the magic, the
// header fields' internal consistency, and the word index's uniqueness.
// The file-size check compares against the defs section's offset
// directly rather than against reserved_words*8+num_words, which is an
// off-by-one-prone check against a quantity that isn't a byte offset.
func (s *Store) readFile() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrIO, s.path, err)
	}
	s.f = f
	s.mode = modeRead

	if err := codec.CheckMagic(f); err != nil {
		return s.corruptClose(err)
	}

	reservedWords, err := codec.ReadUint32(f)
	if err != nil {
		return s.corruptClose(err)
	}
	wordsSectSize, err := codec.ReadUint32(f)
	if err != nil {
		return s.corruptClose(err)
	}
	numWords, err := codec.ReadUint32(f)
	if err != nil {
		return s.corruptClose(err)
	}

	if reservedWords == 0 {
		return s.corruptClose(fmt.Errorf("reserved_words is zero"))
	}
	if wordsSectSize == 0 {
		return s.corruptClose(fmt.Errorf("words_sect_size is zero"))
	}
	if numWords > reservedWords {
		return s.corruptClose(fmt.Errorf("num_words %d exceeds reserved_words %d", numWords, reservedWords))
	}

	info, err := f.Stat()
	if err != nil {
		s.closeHandle() //nolint:errcheck
		return fmt.Errorf("%w: stat %s: %v", ErrIO, s.path, err)
	}
	if want := defsSectionOffset(reservedWords, wordsSectSize); info.Size() < want {
		return s.corruptClose(fmt.Errorf("file is %d bytes, too small for its declared sections (need at least %d)", info.Size(), want))
	}

	s.reservedWords = reservedWords
	s.wordsSectSize = wordsSectSize

	wordInds, err := s.readIndsTable(indsSectionOffset(), reservedWords)
	if err != nil {
		return s.corruptClose(err)
	}
	defInds, err := s.readIndsTable(indsSectionOffset()+int64(reservedWords)*4, reservedWords)
	if err != nil {
		return s.corruptClose(err)
	}
	if uint32(len(wordInds)) != numWords || uint32(len(defInds)) != numWords {
		return s.corruptClose(fmt.Errorf("found %d word indices and %d def indices, want %d", len(wordInds), len(defInds), numWords))
	}

	entries := make([]wordindex.Entry, numWords)
	for i := uint32(0); i < numWords; i++ {
		word, err := s.readWordAt(int64(wordInds[i]))
		if err != nil {
			return s.corruptClose(err)
		}
		entries[i] = wordindex.Entry{Word: word, DefInd: defInds[i]}
	}

	idx, err := wordindex.FromSorted(entries)
	if err != nil {
		s.closeHandle() //nolint:errcheck
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	s.index = idx

	return s.loadDefsMetadata(entries)
}

// readIndsTable reads all n entries of a fixed-capacity index table
// (word_inds or def_inds) starting at off, discards the zero (empty
// slot) entries, and returns the rest, each converted from the on-disk
// 1-based value to a 0-based offset, in table order.
func (s *Store) readIndsTable(off int64, n uint32) ([]uint32, error) {
	inds := make([]uint32, 0, n)
	for i := uint32(0); i < n; i++ {
		raw, err := codec.ReadUint32(io.NewSectionReader(s.f, off+int64(i)*4, 4))
		if err != nil {
			return nil, err
		}
		if raw != 0 {
			inds = append(inds, raw-1)
		}
	}
	return inds, nil
}

// readWordAt reads the NUL-terminated word starting at offset (relative
// to the start of the words section).
func (s *Store) readWordAt(offset int64) ([]byte, error) {
	maxLen := int64(s.wordsSectSize) - offset
	if offset < 0 || maxLen <= 0 {
		return nil, fmt.Errorf("word offset %d out of bounds", offset)
	}
	buf := make([]byte, maxLen)
	n, err := s.f.ReadAt(buf, s.wordsSectionOffset()+offset)
	if err != nil && err != io.EOF {
		return nil, translateReadErr(err)
	}
	buf = buf[:n]

	nul := bytes.IndexByte(buf, 0)
	if nul < 0 {
		return nil, fmt.Errorf("word at offset %d has no terminator", offset)
	}
	word := make([]byte, nul)
	copy(word, buf[:nul])
	return word, nil
}

// loadDefsMetadata reads each distinct definition's size and hash once,
// verifying it against the definition's actual bytes if checkDefs is
// set, and populating the dedup index if doDedup is set.
func (s *Store) loadDefsMetadata(entries []wordindex.Entry) error {
	seen := make(map[uint32]bool, len(entries))
	for _, e := range entries {
		if seen[e.DefInd] {
			continue
		}
		seen[e.DefInd] = true

		off := s.defsSectionOffset() + int64(e.DefInd)
		size, hash, err := s.readDefSizeAndHash(off)
		if err != nil {
			s.closeHandle() //nolint:errcheck
			return err
		}

		if s.checkDefs {
			h := dedup.NewHash()
			buf := make([]byte, batchSize)
			for read := uint32(0); read < size; {
				n := uint32(len(buf))
				if size-read < n {
					n = size - read
				}
				if _, err := s.f.ReadAt(buf[:n], off+12+int64(read)); err != nil {
					s.closeHandle() //nolint:errcheck
					return translateReadErr(err)
				}
				h.Write(buf[:n]) //nolint:errcheck // hash.Hash64's Write never errors.
				read += n
			}
			if h.Sum64() != hash {
				s.closeHandle() //nolint:errcheck
				return fmt.Errorf("%w: definition at offset %d does not match its stored hash", ErrCorrupted, e.DefInd)
			}
		}

		if s.doDedup {
			s.dedup.Register(size, hash, e.DefInd)
		}
	}
	return nil
}

func (s *Store) corruptClose(err error) error {
	s.closeHandle() //nolint:errcheck
	return fmt.Errorf("%w: %s: %v", ErrCorrupted, s.path, err)
}

func (s *Store) ioCloseErr(err error) error {
	s.closeHandle() //nolint:errcheck
	return fmt.Errorf("%w: writing %s: %v", ErrIO, s.path, err)
}
