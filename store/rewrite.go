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
	"path/filepath"

	"github.com/inkwell-labs/sdict/codec"
	"github.com/inkwell-labs/sdict/internal/dedup"
	"github.com/inkwell-labs/sdict/internal/wordindex"
)

// rewrite rebuilds the whole file under a temp name and renames it over
// the original, the only way to grow either fixed-capacity index table
// or the word section. s.reservedWords and s.wordsSectSize already hold
// the new capacities by the time rewrite is called; oldReservedWords and
// oldWordsSectSize locate the old file's defs section.
//
// Each word's definition is re-resolved against a fresh dedup index as
// it's copied into the new file, not copied as a single opaque byte
// range: two words that ended up with separate, byte-identical
// definition records (because dedup was off when they were added, or
// because they were registered before either could see the other) are
// collapsed onto a single record here, the same consolidation point the
// format's rewrite step performs. s.dedup is rebuilt from what's
// actually written, so later lookups see the new file's layout.
func (s *Store) rewrite(oldReservedWords, oldWordsSectSize uint32) error {
	oldDefsOffset := defsSectionOffset(oldReservedWords, oldWordsSectSize)

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file for %s: %v", ErrIO, s.path, err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			tmp.Close() //nolint:errcheck
			os.Remove(tmpPath)
		}
	}()

	entries := s.index.Entries()

	if _, err := tmp.Write(codec.Magic[:]); err != nil {
		return s.rewriteIOErr(tmp, err)
	}
	if err := codec.WriteUint32(tmp, s.reservedWords); err != nil {
		return s.rewriteIOErr(tmp, err)
	}
	if err := codec.WriteUint32(tmp, s.wordsSectSize); err != nil {
		return s.rewriteIOErr(tmp, err)
	}
	if err := codec.WriteUint32(tmp, uint32(len(entries))); err != nil {
		return s.rewriteIOErr(tmp, err)
	}

	wordOffsets := make([]uint32, len(entries))
	var words bytes.Buffer
	offset := uint64(0)
	for i, e := range entries {
		wordOffsets[i] = uint32(offset)
		words.Write(e.Word)
		words.WriteByte(0)
		offset += uint64(len(e.Word)) + 1
	}
	if uint64(s.wordsSectSize) < offset {
		return s.rewriteIOErr(tmp, fmt.Errorf("words section size %d too small for %d bytes of words", s.wordsSectSize, offset))
	}

	padEntries := int(s.reservedWords) - len(entries)

	for _, off := range wordOffsets {
		if err := codec.WriteUint32(tmp, off+1); err != nil {
			return s.rewriteIOErr(tmp, err)
		}
	}
	if err := codec.WriteNulls(tmp, padEntries*4); err != nil {
		return s.rewriteIOErr(tmp, err)
	}

	// def_inds can't be written yet: each entry's new offset isn't known
	// until its definition is re-resolved below. Remember where the
	// table starts and come back to fill it in once the defs section has
	// been written.
	defIndsOff, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return s.rewriteIOErr(tmp, err)
	}
	if err := codec.WriteNulls(tmp, int(s.reservedWords)*4); err != nil {
		return s.rewriteIOErr(tmp, err)
	}

	if _, err := tmp.Write(words.Bytes()); err != nil {
		return s.rewriteIOErr(tmp, err)
	}
	if err := codec.WriteNulls(tmp, int(uint64(s.wordsSectSize)-offset)); err != nil {
		return s.rewriteIOErr(tmp, err)
	}

	newDefInds, newDedup, err := s.rewriteDefs(tmp, entries, oldDefsOffset)
	if err != nil {
		return s.rewriteIOErr(tmp, err)
	}

	if _, err := tmp.Seek(defIndsOff, io.SeekStart); err != nil {
		return s.rewriteIOErr(tmp, err)
	}
	for _, off := range newDefInds {
		if err := codec.WriteUint32(tmp, off+1); err != nil {
			return s.rewriteIOErr(tmp, err)
		}
	}
	if err := codec.WriteNulls(tmp, padEntries*4); err != nil {
		return s.rewriteIOErr(tmp, err)
	}

	if err := tmp.Sync(); err != nil {
		return s.rewriteIOErr(tmp, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing temp file for %s: %v", ErrIO, s.path, err)
	}
	cleanup = false

	if err := s.f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing %s: %v", ErrIO, s.path, err)
	}
	s.f = nil
	s.mode = modeNone

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: replacing %s: %v", ErrIO, s.path, err)
	}

	for i := range entries {
		entries[i].DefInd = newDefInds[i]
	}
	s.dedup = newDedup

	return s.openIn()
}

// rewriteDefs writes the defs section of tmp, one word at a time: for
// each entry, the word's current definition (still readable from the
// old file at oldDefsOffset+entry.DefInd) is looked up against defs
// already written to tmp by an earlier entry in this same rewrite, via
// a dedup index scoped to just this call. A (size, hash) hit is
// verified byte-for-byte against what was actually written before the
// record is reused; on a miss, or when dedup is disabled, the
// definition is copied across in batches and registered for later
// entries to find. It returns each entry's new def offset, in entry
// order, and the dedup index describing the section as written.
func (s *Store) rewriteDefs(tmp *os.File, entries []wordindex.Entry, oldDefsOffset int64) ([]uint32, *dedup.Map, error) {
	defsStart, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, nil, err
	}

	newDedup := dedup.New()
	newDefInds := make([]uint32, len(entries))
	written := uint64(0)

	for i, e := range entries {
		oldOff := oldDefsOffset + int64(e.DefInd)
		size, hash, err := s.readDefSizeAndHash(oldOff)
		if err != nil {
			return nil, nil, err
		}

		if s.doDedup {
			reused, ok, err := s.findReusableDef(tmp, defsStart, oldOff, size, hash, newDedup)
			if err != nil {
				return nil, nil, err
			}
			if ok {
				newDefInds[i] = reused
				continue
			}
		}

		newOff := uint32(written)
		if err := codec.WriteUint32(tmp, size); err != nil {
			return nil, nil, err
		}
		if err := codec.WriteUint64(tmp, hash); err != nil {
			return nil, nil, err
		}
		if err := s.copyDefBytes(tmp, oldOff+12, size); err != nil {
			return nil, nil, err
		}
		written += uint64(12) + uint64(size)

		if s.doDedup {
			newDedup.Register(size, hash, newOff)
		}
		newDefInds[i] = newOff
	}

	return newDefInds, newDedup, nil
}

// findReusableDef looks for a definition already written to tmp (at an
// offset relative to defsStart, registered in newDedup) whose bytes
// match the (size, hash)-matching definition still readable in the
// current, about-to-be-replaced file at oldDefOff. It reports the
// reusable offset and whether one was found.
func (s *Store) findReusableDef(tmp *os.File, defsStart, oldDefOff int64, size uint32, hash uint64, newDedup *dedup.Map) (uint32, bool, error) {
	for _, candidate := range newDedup.Candidates(size, hash) {
		same, err := s.sameDefBytesAcrossFiles(tmp, oldDefOff+12, defsStart+int64(candidate)+12, size)
		if err != nil {
			return 0, false, err
		}
		if same {
			return candidate, true, nil
		}
	}
	return 0, false, nil
}

// copyDefBytes streams size bytes starting at oldOff in the current
// (about-to-be-replaced) file into tmp, in batchSize chunks so a large
// definition doesn't need a matching amount of memory to rewrite.
func (s *Store) copyDefBytes(tmp *os.File, oldOff int64, size uint32) error {
	buf := make([]byte, batchSize)
	var read uint32
	for read < size {
		n := uint32(len(buf))
		if size-read < n {
			n = size - read
		}
		if _, err := s.f.ReadAt(buf[:n], oldOff+int64(read)); err != nil {
			return translateReadErr(err)
		}
		if _, err := tmp.Write(buf[:n]); err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		read += n
	}
	return nil
}

// sameDefBytesAcrossFiles compares size bytes of the current
// (about-to-be-replaced) file at oldOff against size bytes of tmp at
// newOff, in batchSize chunks.
func (s *Store) sameDefBytesAcrossFiles(tmp *os.File, oldOff, newOff int64, size uint32) (bool, error) {
	bufOld := make([]byte, batchSize)
	bufNew := make([]byte, batchSize)
	var read uint32
	for read < size {
		n := uint32(len(bufOld))
		if size-read < n {
			n = size - read
		}
		if _, err := s.f.ReadAt(bufOld[:n], oldOff+int64(read)); err != nil {
			return false, translateReadErr(err)
		}
		if _, err := tmp.ReadAt(bufNew[:n], newOff+int64(read)); err != nil {
			return false, translateReadErr(err)
		}
		if !bytes.Equal(bufOld[:n], bufNew[:n]) {
			return false, nil
		}
		read += n
	}
	return true, nil
}

func (s *Store) rewriteIOErr(tmp *os.File, err error) error {
	return fmt.Errorf("%w: writing %s: %v", ErrIO, tmp.Name(), err)
}
