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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOpenCreatesNewFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "new.sdict")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close() //nolint:errcheck

	if !s.CreatedFile() {
		t.Error("CreatedFile() = false, want true for a brand-new path")
	}
	if got := s.NumWords(); got != 0 {
		t.Errorf("NumWords() = %d, want 0", got)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file was not created on disk: %v", err)
	}
}

func TestOpenFailsWhenCreateDisabledAndMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "missing.sdict")

	_, err := Open(path, WithCreateIfNotExists(false))
	if !errors.Is(err, ErrIO) {
		t.Fatalf("Open error = %v, want wrapping ErrIO", err)
	}
}

func TestOpenRejectsDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sub := filepath.Join(dir, "adir")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	_, err := Open(sub)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("Open error = %v, want wrapping ErrIO", err)
	}
}

func TestOpenReadsExistingFixture(t *testing.T) {
	t.Parallel()

	words := []FixtureWord{
		{Word: "alpha", Def: []byte("first letter")},
		{Word: "beta", Def: []byte("second letter")},
		{Word: "gamma", Def: []byte("third letter")},
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.sdict")
	if err := os.WriteFile(path, MakeFixture(words, 32, 256), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close() //nolint:errcheck

	if s.CreatedFile() {
		t.Error("CreatedFile() = true, want false for a pre-existing file")
	}
	if got, want := s.NumWords(), len(words); got != want {
		t.Errorf("NumWords() = %d, want %d", got, want)
	}

	for _, w := range words {
		def, err := s.Find([]byte(w.Word), true)
		if err != nil {
			t.Errorf("Find(%q): %v", w.Word, err)
			continue
		}
		if diff := cmp.Diff(w.Def, def); diff != "" {
			t.Errorf("Find(%q) (-want, +got):\n%s", w.Word, diff)
		}
	}

	if def, err := s.Find([]byte("nonexistent"), true); def != nil || err != nil {
		t.Errorf("Find(nonexistent) = (%v, %v), want (nil, nil)", def, err)
	}
}

func TestAddWordAndFind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "add.sdict")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close() //nolint:errcheck

	entries := map[string]string{
		"apple":  "a common fruit",
		"banana": "a long yellow fruit",
		"cherry": "a small red fruit",
	}
	for word, def := range entries {
		added, err := s.AddWord([]byte(word), []byte(def))
		if err != nil {
			t.Fatalf("AddWord(%q): %v", word, err)
		}
		if !added {
			t.Fatalf("AddWord(%q) = false, want true", word)
		}
	}

	for word, def := range entries {
		got, err := s.Find([]byte(word), true)
		if err != nil {
			t.Fatalf("Find(%q): %v", word, err)
		}
		if string(got) != def {
			t.Errorf("Find(%q) = %q, want %q", word, got, def)
		}
	}
}

func TestAddWordRejectsDuplicate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "dup.sdict"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close() //nolint:errcheck

	if _, err := s.AddWord([]byte("word"), []byte("def one")); err != nil {
		t.Fatalf("first AddWord: %v", err)
	}
	added, err := s.AddWord([]byte("word"), []byte("def two"))
	if err != nil {
		t.Fatalf("second AddWord: %v", err)
	}
	if added {
		t.Error("second AddWord returned true, want false for a duplicate word")
	}

	got, err := s.Find([]byte("word"), true)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if string(got) != "def one" {
		t.Errorf("Find(word) = %q, want %q (the first definition, unchanged)", got, "def one")
	}
}

func TestAddWordDeduplicatesIdenticalDefinitions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "sharedef.sdict"), WithDeduplicate(true))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close() //nolint:errcheck

	shared := []byte("a shared definition body")
	if _, err := s.AddWord([]byte("first"), shared); err != nil {
		t.Fatalf("AddWord(first): %v", err)
	}
	if _, err := s.AddWord([]byte("second"), shared); err != nil {
		t.Fatalf("AddWord(second): %v", err)
	}

	firstInd, ok := s.index.Find([]byte("first"))
	if !ok {
		t.Fatalf("index.Find(first): not found")
	}
	secondInd, ok := s.index.Find([]byte("second"))
	if !ok {
		t.Fatalf("index.Find(second): not found")
	}
	if firstInd != secondInd {
		t.Errorf("first and second def_ind = %d, %d, want equal (deduplicated definition)", firstInd, secondInd)
	}
}

func TestRewriteConsolidatesIdenticalDefinitions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "consolidate.sdict")

	shared := []byte("a shared definition body")

	s, err := Open(path, WithDeduplicate(false))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.AddWord([]byte("first"), shared); err != nil {
		t.Fatalf("AddWord(first): %v", err)
	}
	if _, err := s.AddWord([]byte("second"), shared); err != nil {
		t.Fatalf("AddWord(second): %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path, WithDeduplicate(true))
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s2.Close() //nolint:errcheck

	for i := 0; i < 40; i++ {
		word := fmt.Sprintf("filler%03d", i)
		if _, err := s2.AddWord([]byte(word), []byte(fmt.Sprintf("def %d", i)), WithFlush(false)); err != nil {
			t.Fatalf("AddWord(%q): %v", word, err)
		}
	}

	rewrote, err := s2.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !rewrote {
		t.Fatal("Flush() rewrote = false, want true (42 words exceeds the 32-word initial capacity)")
	}

	firstInd, ok := s2.index.Find([]byte("first"))
	if !ok {
		t.Fatalf("index.Find(first): not found")
	}
	secondInd, ok := s2.index.Find([]byte("second"))
	if !ok {
		t.Fatalf("index.Find(second): not found")
	}
	if firstInd != secondInd {
		t.Errorf("after rewrite, first and second def_ind = %d, %d, want equal (rewrite should have deduplicated them)", firstInd, secondInd)
	}

	got, err := s2.Find([]byte("second"), true)
	if err != nil {
		t.Fatalf("Find(second): %v", err)
	}
	if !bytes.Equal(got, shared) {
		t.Errorf("Find(second) = %q, want %q", got, shared)
	}
}

func TestFlushSurvivesReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "reopen.sdict")

	words := make(map[string]string)
	for i := 0; i < 40; i++ {
		words[fmt.Sprintf("word%03d", i)] = fmt.Sprintf("definition number %d", i)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for word, def := range words {
		if _, err := s.AddWord([]byte(word), []byte(def), WithFlush(false)); err != nil {
			t.Fatalf("AddWord(%q): %v", word, err)
		}
	}
	if _, err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// 40 words exceeds the initial 32-word reserved capacity, so this
	// Flush must have gone through the rewrite path.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s2.Close() //nolint:errcheck

	if s2.CreatedFile() {
		t.Error("CreatedFile() = true on reopen, want false")
	}
	if got, want := s2.NumWords(), len(words); got != want {
		t.Errorf("NumWords() = %d, want %d", got, want)
	}
	for word, def := range words {
		got, err := s2.Find([]byte(word), true)
		if err != nil {
			t.Fatalf("Find(%q): %v", word, err)
		}
		if string(got) != def {
			t.Errorf("Find(%q) = %q, want %q", word, got, def)
		}
	}
}

func TestAddWordLargeDefinitionRoundTrips(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "large.sdict")

	large := bytes.Repeat([]byte("0123456789abcdef"), batchSize) // several batchSize multiples
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.AddWord([]byte("big"), large); err != nil {
		t.Fatalf("AddWord: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s2.Close() //nolint:errcheck

	got, err := s2.Find([]byte("big"), true)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !bytes.Equal(got, large) {
		t.Error("large definition did not round-trip byte-for-byte")
	}
}

func TestAddWordRejectsEmptyDefinition(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "empty.sdict"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close() //nolint:errcheck

	_, err = s.AddWord([]byte("word"), nil)
	if !errors.Is(err, ErrLogic) {
		t.Fatalf("AddWord with empty def error = %v, want wrapping ErrLogic", err)
	}
}

func TestOpenDetectsCorruptedDefinition(t *testing.T) {
	t.Parallel()

	words := []FixtureWord{
		{Word: "alpha", Def: []byte("first letter")},
	}
	data := MakeFixture(words, 32, 256)

	// Flip a byte inside the definition body, after its size and hash
	// fields, so the stored hash no longer matches.
	defStart := bytes.Index(data, []byte("first letter"))
	if defStart < 0 {
		t.Fatal("could not locate definition body in fixture")
	}
	data[defStart] ^= 0xFF

	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.sdict")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Open(path, WithCheckDefs(true))
	if !errors.Is(err, ErrCorrupted) {
		t.Fatalf("Open error = %v, want wrapping ErrCorrupted", err)
	}
}

func TestOpenDetectsBadMagic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "badmagic.sdict")
	if err := os.WriteFile(path, []byte("not an sdict file at all"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Open(path)
	if !errors.Is(err, ErrCorrupted) {
		t.Fatalf("Open error = %v, want wrapping ErrCorrupted", err)
	}
}

func TestOpenDetectsDuplicateWords(t *testing.T) {
	t.Parallel()

	// Two entries pointing at the same word is invalid even though
	// MakeFixture itself only accepts a list; build the bytes by hand
	// off of a two-word fixture and patch the second word_ind to alias
	// the first.
	words := []FixtureWord{
		{Word: "alpha", Def: []byte("one")},
		{Word: "beta", Def: []byte("two")},
	}
	data := MakeFixture(words, 32, 256)

	// word_inds[1] currently points at "beta" (sorted after "alpha").
	// Overwrite it to point at the same offset as word_inds[0].
	wordInd0Off := int(indsSectionOffset())
	copy(data[wordInd0Off+4:wordInd0Off+8], data[wordInd0Off:wordInd0Off+4])

	dir := t.TempDir()
	path := filepath.Join(dir, "dupword.sdict")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Open(path)
	if !errors.Is(err, ErrCorrupted) {
		t.Fatalf("Open error = %v, want wrapping ErrCorrupted", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "closetwice.sdict"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestFindBeforeOpenIsNotPossible(t *testing.T) {
	t.Parallel()

	s := &Store{}
	if _, err := s.Find([]byte("word"), false); !errors.Is(err, ErrClosed) {
		t.Fatalf("Find on a zero-value Store error = %v, want wrapping ErrClosed", err)
	}
}
