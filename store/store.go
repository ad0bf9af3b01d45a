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

// Package store implements the sdict persistent dictionary file: the
// header, dual index table, word section, and definition section, and
// the open/create/flush/rewrite lifecycle that keeps them consistent on
// disk.
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

// Store is a handle on one sdict file. It is not safe for concurrent
// use by multiple goroutines: the format is scoped to a single writer
// with blocking I/O.
type Store struct {
	path string
	f    *os.File
	mode fileMode

	reservedWords uint32
	wordsSectSize uint32

	index *wordindex.Index
	dedup *dedup.Map

	doDedup   bool
	checkDefs bool

	createdFile bool
}

// openConfig holds Open's options. The defaults (true, true, true)
// mirror the format's defaulted constructor
// parameters; Go expresses that with functional options instead.
type openConfig struct {
	createIfNotExists bool
	deduplicate       bool
	checkDefs         bool
}

// Option configures Open.
type Option func(*openConfig)

// WithCreateIfNotExists controls whether Open creates a new, empty
// store when path doesn't exist. Defaults to true.
func WithCreateIfNotExists(v bool) Option {
	return func(c *openConfig) { c.createIfNotExists = v }
}

// WithDeduplicate controls whether identical definition bodies are
// deduplicated on ingest and rewrite. Defaults to true.
func WithDeduplicate(v bool) Option {
	return func(c *openConfig) { c.deduplicate = v }
}

// WithCheckDefs controls whether every definition's stored hash is
// verified against its bytes when the store is opened. Defaults to
// true.
func WithCheckDefs(v bool) Option {
	return func(c *openConfig) { c.checkDefs = v }
}

// Open opens path as an sdict store, creating it if it doesn't exist and
// create-if-not-exists wasn't disabled.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := openConfig{createIfNotExists: true, deduplicate: true, checkDefs: true}
	for _, o := range opts {
		o(&cfg)
	}

	s := &Store{
		path:      path,
		mode:      modeNone,
		doDedup:   cfg.deduplicate,
		dedup:     dedup.New(),
		index:     wordindex.New(),
		checkDefs: cfg.checkDefs,
	}

	info, statErr := os.Stat(path)
	switch {
	case statErr == nil && !info.Mode().IsRegular():
		return nil, fmt.Errorf("%w: %s exists but is not a regular file", ErrIO, path)
	case statErr == nil:
		if err := s.readFile(); err != nil {
			return nil, err
		}
		s.createdFile = false
	case os.IsNotExist(statErr):
		if !cfg.createIfNotExists {
			return nil, fmt.Errorf("%w: %s does not exist, not creating", ErrIO, path)
		}
		if err := s.createFile(); err != nil {
			return nil, err
		}
		s.createdFile = true
	default:
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, path, statErr)
	}

	return s, nil
}

// CreatedFile reports whether this Open call created a new, empty file
// rather than opening an existing one.
func (s *Store) CreatedFile() bool {
	return s.createdFile
}

// Close releases the underlying file handle. It does not flush pending
// entries; call Flush first if that's wanted. Close is idempotent.
func (s *Store) Close() error {
	if s.mode == modeNoFile {
		return nil
	}
	return s.closeHandle()
}

// NumWords returns the current number of words in the store, including
// any not yet flushed to disk.
func (s *Store) NumWords() int {
	return s.index.NumWords()
}

// Contains reports whether word is present in the store.
func (s *Store) Contains(word []byte) bool {
	return s.index.Contains(word)
}

// Find resolves word to its definition bytes. If checkDef is true, the
// stored hash is verified against the returned bytes before they're
// returned.
func (s *Store) Find(word []byte, checkDef bool) ([]byte, error) {
	if s.mode == modeNoFile {
		return nil, fmt.Errorf("%w: Find called before Open", ErrClosed)
	}
	defInd, ok := s.index.Find(word)
	if !ok {
		return nil, nil
	}
	if s.f == nil {
		if err := s.openIn(); err != nil {
			return nil, err
		}
	}
	return s.readDefWhole(defInd, checkDef)
}

// addConfig holds AddWord's options.
type addConfig struct {
	flushWords   bool
	skipDupCheck bool
}

// AddOption configures AddWord.
type AddOption func(*addConfig)

// WithFlush controls whether AddWord calls Flush before returning.
// Defaults to true.
func WithFlush(v bool) AddOption {
	return func(c *addConfig) { c.flushWords = v }
}

// WithSkipDupCheck skips the existing-word lookup AddWord otherwise
// performs before inserting. Useful for bulk ingestion of a word list
// already known to be unique, since flushing is far more expensive than
// the duplicate check it replaces. Defaults to false.
func WithSkipDupCheck(v bool) AddOption {
	return func(c *addConfig) { c.skipDupCheck = v }
}

// AddWord inserts word with the given definition bytes, returning false
// without making any change if word is already present (unless
// WithSkipDupCheck is set).
func (s *Store) AddWord(word, def []byte, opts ...AddOption) (bool, error) {
	if s.mode == modeNoFile {
		return false, fmt.Errorf("%w: AddWord called before Open", ErrClosed)
	}
	cfg := addConfig{flushWords: true}
	for _, o := range opts {
		o(&cfg)
	}

	if !cfg.skipDupCheck {
		if _, ok := s.index.Find(word); ok {
			return false, nil
		}
	}

	defInd, err := s.resolveDefInd(word, def)
	if err != nil {
		return false, err
	}

	s.index.InsertPending(word, defInd)

	if cfg.flushWords {
		if _, err := s.Flush(); err != nil {
			return false, err
		}
	}
	return true, nil
}

// resolveDefInd returns the def offset word's definition should point
// to: an existing offset if def is already stored and dedup is enabled,
// or the offset of a freshly appended record otherwise.
func (s *Store) resolveDefInd(word, def []byte) (uint32, error) {
	size := uint32(len(def))
	if size == 0 {
		return 0, fmt.Errorf("%w: empty definition for %q", ErrLogic, word)
	}
	hash := dedup.Sum64(def)

	if s.f == nil {
		if err := s.openIn(); err != nil {
			return 0, err
		}
	}

	if s.doDedup {
		for _, candidate := range s.dedup.Candidates(size, hash) {
			off := s.defsSectionOffset() + int64(candidate)
			ok, err := s.verifyStoredSizeAndHash(off, size, hash)
			if err != nil {
				return 0, err
			}
			if !ok {
				continue
			}
			same, err := s.sameDefBytes(off, size, def)
			if err != nil {
				return 0, err
			}
			if same {
				return candidate, nil
			}
		}
	}

	if err := s.openInOut(); err != nil {
		return 0, err
	}
	end, err := s.f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("%w: seeking %s: %v", ErrIO, s.path, err)
	}
	curDefOffset := end - s.defsSectionOffset()
	if curDefOffset < 0 {
		return 0, fmt.Errorf("%w: file too small for declared defs section", ErrCorrupted)
	}

	if err := codec.WriteUint32(s.f, size); err != nil {
		return 0, fmt.Errorf("%w: writing definition size: %v", ErrIO, err)
	}
	if err := codec.WriteUint64(s.f, hash); err != nil {
		return 0, fmt.Errorf("%w: writing definition hash: %v", ErrIO, err)
	}
	if _, err := s.f.Write(def); err != nil {
		return 0, fmt.Errorf("%w: writing definition: %v", ErrIO, err)
	}

	defInd := uint32(curDefOffset)
	if s.doDedup {
		s.dedup.Register(size, hash, defInd)
	}
	return defInd, nil
}

// Flush writes pending word/index entries to disk, rewriting the whole
// file if either index table or the word section has outgrown its
// reserved capacity. It reports whether the file was modified.
func (s *Store) Flush() (bool, error) {
	if s.mode == modeNoFile {
		return false, fmt.Errorf("%w: Flush called before Open", ErrClosed)
	}
	if !s.index.HasPending() {
		return false, s.openIn()
	}

	if err := s.openInOut(); err != nil {
		return false, err
	}

	entries := s.index.Entries()
	firstNew := s.index.PendingFrom()
	curWordsTotalLen := wordsTotalLen(entries[:firstNew])
	wordsTotalLenAll := wordsTotalLen(entries)

	oldWordsSectSize := s.wordsSectSize
	newWordsSectSize := s.wordsSectSize
	for uint64(newWordsSectSize) < wordsTotalLenAll {
		newWordsSectSize *= 2
	}

	if newWordsSectSize != oldWordsSectSize || s.reservedWords < uint32(len(entries)) {
		// Consolidate first: rewrite lays the words out from the sorted,
		// merged index.
		s.wordsSectSize = newWordsSectSize
		if err := s.index.Consolidate(); err != nil {
			return false, fmt.Errorf("%w: %w", ErrLogic, err)
		}
		oldReservedWords := s.reservedWords
		newReservedWords := s.reservedWords
		for newReservedWords < uint32(len(entries)) {
			newReservedWords *= 2
		}
		s.reservedWords = newReservedWords
		if err := s.rewrite(oldReservedWords, oldWordsSectSize); err != nil {
			return false, err
		}
		return true, nil
	}

	pending := make([]wordindex.Entry, len(entries)-firstNew)
	copy(pending, entries[firstNew:])

	// Write num_words.
	if _, err := s.f.Seek(indsSectionOffset()-4, io.SeekStart); err != nil {
		return false, fmt.Errorf("%w: seeking %s: %v", ErrIO, s.path, err)
	}
	if err := codec.WriteUint32(s.f, uint32(len(entries))); err != nil {
		return false, fmt.Errorf("%w: writing num_words: %v", ErrIO, err)
	}

	// Write new words into the word section, recording each one's
	// 0-based byte offset.
	wordOffsets := make([]uint32, len(pending))
	if _, err := s.f.Seek(s.wordsSectionOffset()+int64(curWordsTotalLen), io.SeekStart); err != nil {
		return false, fmt.Errorf("%w: seeking %s: %v", ErrIO, s.path, err)
	}
	bytesWritten := uint64(0)
	for i, e := range pending {
		wordOffsets[i] = uint32(curWordsTotalLen + bytesWritten)
		if _, err := s.f.Write(e.Word); err != nil {
			return false, fmt.Errorf("%w: writing word: %v", ErrIO, err)
		}
		if _, err := s.f.Write([]byte{0}); err != nil {
			return false, fmt.Errorf("%w: writing word terminator: %v", ErrIO, err)
		}
		bytesWritten += uint64(len(e.Word)) + 1
	}

	// Write word_inds[firstNew:num_words].
	if _, err := s.f.Seek(indsSectionOffset()+int64(firstNew)*4, io.SeekStart); err != nil {
		return false, fmt.Errorf("%w: seeking %s: %v", ErrIO, s.path, err)
	}
	for _, off := range wordOffsets {
		if err := codec.WriteUint32(s.f, off+1); err != nil {
			return false, fmt.Errorf("%w: writing word index: %v", ErrIO, err)
		}
	}

	// Write def_inds[firstNew:num_words].
	if _, err := s.f.Seek(indsSectionOffset()+(int64(s.reservedWords)+int64(firstNew))*4, io.SeekStart); err != nil {
		return false, fmt.Errorf("%w: seeking %s: %v", ErrIO, s.path, err)
	}
	for _, e := range pending {
		if err := codec.WriteUint32(s.f, e.DefInd+1); err != nil {
			return false, fmt.Errorf("%w: writing def index: %v", ErrIO, err)
		}
	}

	if err := s.index.Consolidate(); err != nil {
		return false, fmt.Errorf("%w: %w", ErrLogic, err)
	}
	if err := s.openIn(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) wordsSectionOffset() int64 {
	return wordsSectionOffset(s.reservedWords)
}

func (s *Store) defsSectionOffset() int64 {
	return defsSectionOffset(s.reservedWords, s.wordsSectSize)
}

// wordsTotalLen sums each entry's NUL-terminated on-disk length.
func wordsTotalLen(entries []wordindex.Entry) uint64 {
	var total uint64
	for _, e := range entries {
		total += uint64(len(e.Word)) + 1
	}
	return total
}

// verifyStoredSizeAndHash re-reads the (size, hash) fields of the
// definition record at off and reports whether they match the expected
// values. This is a cheap prefilter before sameDefBytes's byte-for-byte
// comparison, which is what actually rules out an FNV-1a collision.
func (s *Store) verifyStoredSizeAndHash(off int64, expectedSize uint32, expectedHash uint64) (bool, error) {
	size, hash, err := s.readDefSizeAndHash(off)
	if err != nil {
		return false, err
	}
	return size == expectedSize && hash == expectedHash, nil
}

// sameDefBytes compares the size bytes of def against the body of the
// definition record starting at off (the body begins 12 bytes in, past
// the size and hash fields), in batchSize chunks so a dedup check never
// needs to load a whole large definition into memory just to rule out a
// hash collision.
func (s *Store) sameDefBytes(off int64, size uint32, def []byte) (bool, error) {
	buf := make([]byte, batchSize)
	var read uint32
	for read < size {
		n := uint32(len(buf))
		if size-read < n {
			n = size - read
		}
		if _, err := s.f.ReadAt(buf[:n], off+12+int64(read)); err != nil {
			return false, translateReadErr(err)
		}
		if !bytes.Equal(buf[:n], def[read:read+n]) {
			return false, nil
		}
		read += n
	}
	return true, nil
}

// readDefSizeAndHash reads the size and hash fields of a definition
// record starting at off.
func (s *Store) readDefSizeAndHash(off int64) (size uint32, hash uint64, err error) {
	size, err = codec.ReadUint32(io.NewSectionReader(s.f, off, 4))
	if err != nil {
		return 0, 0, translateReadErr(err)
	}
	if size == 0 {
		return 0, 0, fmt.Errorf("%w: read 0 definition size", ErrCorrupted)
	}
	hash, err = codec.ReadUint64(io.NewSectionReader(s.f, off+4, 8))
	if err != nil {
		return 0, 0, translateReadErr(err)
	}
	return size, hash, nil
}

// readDefWhole reads a whole definition record at defInd (an offset
// from the start of the defs section) and returns its bytes.
func (s *Store) readDefWhole(defInd uint32, checkDef bool) ([]byte, error) {
	off := s.defsSectionOffset() + int64(defInd)
	size, hash, err := s.readDefSizeAndHash(off)
	if err != nil {
		return nil, err
	}

	data := make([]byte, size)
	if _, err := s.f.ReadAt(data, off+12); err != nil {
		return nil, translateReadErr(err)
	}

	if checkDef && dedup.Sum64(data) != hash {
		return nil, fmt.Errorf("%w: definition hash does not match", ErrCorrupted)
	}
	return data, nil
}

// translateReadErr turns an I/O error from a store read into a
// corruption or I/O error as appropriate, consistent with codec's own
// ErrShortRead handling.
func translateReadErr(err error) error {
	if err == nil {
		return nil
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: unexpected EOF", ErrCorrupted)
	}
	return fmt.Errorf("%w: %v", ErrIO, err)
}
