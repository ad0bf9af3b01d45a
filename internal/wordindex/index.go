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

// Package wordindex implements the in-memory word index a [store.Store]
// keeps: an ordered sequence of (word, def_ind) pairs split into a sorted
// "stable prefix" that matches what's already on disk and an unsorted
// "new suffix" of pending, not-yet-flushed entries.
package wordindex

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrDuplicateWord indicates that two entries with the same word were
// found where the index requires uniqueness.
var ErrDuplicateWord = errors.New("wordindex: duplicate word")

// noPending is the sentinel firstNew value meaning there is no pending
// suffix.
const noPending = -1

// Entry is a single (word, def_ind) pair. Word is the dictionary key;
// DefInd is the zero-based byte offset of its definition record within
// the defs section.
type Entry struct {
	Word   []byte
	DefInd uint32
}

// Index is a sorted-vector word index: a stable sorted prefix that
// mirrors what's on disk, plus an unsorted pending suffix of entries
// appended since the last Consolidate.
type Index struct {
	entries  []Entry
	firstNew int
}

// New returns an empty index with no pending entries.
func New() *Index {
	return &Index{firstNew: noPending}
}

// FromSorted builds an index from entries that are assumed to come from
// disk in arbitrary order (one per loaded word_inds/def_inds pair). The
// entries are sorted and checked for duplicate words: opening a file
// whose on-disk index contains the same word twice is a corruption,
// not something callers should have to detect themselves.
func FromSorted(entries []Entry) (*Index, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	slices.SortFunc(sorted, func(a, b Entry) int {
		return bytes.Compare(a.Word, b.Word)
	})
	if i := adjacentDuplicate(sorted); i >= 0 {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateWord, sorted[i].Word)
	}
	return &Index{entries: sorted, firstNew: noPending}, nil
}

// Find resolves word to its def_ind using a binary search over the
// stable, sorted prefix, falling back to a linear scan over the pending
// suffix on a miss. This is O(log n + k) where k is the number of
// pending entries.
func (idx *Index) Find(word []byte) (defInd uint32, ok bool) {
	end := len(idx.entries)
	if idx.firstNew != noPending {
		end = idx.firstNew
	}

	i, found := sort.Find(end, func(i int) int {
		return bytes.Compare(word, idx.entries[i].Word)
	})
	if found {
		return idx.entries[i].DefInd, true
	}

	for j := end; j < len(idx.entries); j++ {
		if bytes.Equal(idx.entries[j].Word, word) {
			return idx.entries[j].DefInd, true
		}
	}
	return 0, false
}

// Contains reports whether word is present in the index.
func (idx *Index) Contains(word []byte) bool {
	_, ok := idx.Find(word)
	return ok
}

// NumWords returns the total number of entries, pending or not.
func (idx *Index) NumWords() int {
	return len(idx.entries)
}

// HasPending reports whether there are entries appended since the last
// Consolidate.
func (idx *Index) HasPending() bool {
	return idx.firstNew != noPending
}

// PendingFrom returns the index at which the pending suffix starts. It
// is only meaningful when HasPending reports true.
func (idx *Index) PendingFrom() int {
	if idx.firstNew == noPending {
		return len(idx.entries)
	}
	return idx.firstNew
}

// InsertPending appends (word, defInd) to the index without sorting it
// in. word is copied so the caller may reuse its backing array.
func (idx *Index) InsertPending(word []byte, defInd uint32) {
	if idx.firstNew == noPending {
		idx.firstNew = len(idx.entries)
	}
	w := make([]byte, len(word))
	copy(w, word)
	idx.entries = append(idx.entries, Entry{Word: w, DefInd: defInd})
}

// Consolidate sorts the pending suffix, fails if it contains duplicate
// words or a word already in the stable prefix, and merges it into the
// stable prefix. After
// a successful call HasPending reports false and Entries is fully
// sorted and unique.
func (idx *Index) Consolidate() error {
	if idx.firstNew == noPending {
		return nil
	}

	pending := idx.entries[idx.firstNew:]
	slices.SortFunc(pending, func(a, b Entry) int {
		return bytes.Compare(a.Word, b.Word)
	})
	if i := adjacentDuplicate(pending); i >= 0 {
		return fmt.Errorf("wordindex: %w: repeated words were inserted: %q", ErrDuplicateWord, pending[i].Word)
	}

	merged := make([]Entry, 0, len(idx.entries))
	i, j := 0, idx.firstNew
	for i < idx.firstNew && j < len(idx.entries) {
		c := bytes.Compare(idx.entries[i].Word, idx.entries[j].Word)
		if c == 0 {
			return fmt.Errorf("wordindex: %w: pending word is already in the index: %q", ErrDuplicateWord, idx.entries[j].Word)
		}
		if c < 0 {
			merged = append(merged, idx.entries[i])
			i++
		} else {
			merged = append(merged, idx.entries[j])
			j++
		}
	}
	merged = append(merged, idx.entries[i:idx.firstNew]...)
	merged = append(merged, idx.entries[j:]...)

	idx.entries = merged
	idx.firstNew = noPending
	return nil
}

// Entries returns the current entries in index order: the sorted stable
// prefix followed by the (possibly unsorted) pending suffix. The caller
// must not mutate the returned words.
func (idx *Index) Entries() []Entry {
	return idx.entries
}

// adjacentDuplicate returns the index of the first entry in a sorted run
// whose word equals its predecessor's, or -1 if there is none.
func adjacentDuplicate(entries []Entry) int {
	for i := 1; i < len(entries); i++ {
		if bytes.Equal(entries[i-1].Word, entries[i].Word) {
			return i
		}
	}
	return -1
}
