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
	"fmt"
	"os"
)

// fileMode tracks which of four states the handle is in: no associated
// file, associated-but-closed, read-only, or read-write. Every public
// Store method transitions the handle into the mode it needs, closing
// and reopening the underlying *os.File if necessary.
type fileMode int

const (
	modeNoFile fileMode = iota
	modeNone
	modeRead
	modeReadWrite
)

// openIn ensures the handle is open read-only, leaving the handle in
// modeRead. This is the commit boundary: callers transition here after
// every mutation that reaches disk, syncing the write handle first so
// the reopen observes durable data rather than relying on OS buffering.
func (s *Store) openIn() error {
	if s.mode == modeRead {
		return nil
	}
	if s.f != nil {
		if s.mode == modeReadWrite {
			if err := s.f.Sync(); err != nil {
				return fmt.Errorf("%w: syncing %s: %v", ErrIO, s.path, err)
			}
		}
		if err := s.f.Close(); err != nil {
			return fmt.Errorf("%w: closing %s: %v", ErrIO, s.path, err)
		}
	}
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrIO, s.path, err)
	}
	s.f = f
	s.mode = modeRead
	return nil
}

// openInOut ensures the handle is open for reading and writing, without
// truncating or creating. It leaves the handle in modeReadWrite.
func (s *Store) openInOut() error {
	if s.mode == modeReadWrite {
		return nil
	}
	if s.f != nil {
		if err := s.f.Close(); err != nil {
			return fmt.Errorf("%w: closing %s: %v", ErrIO, s.path, err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrIO, s.path, err)
	}
	s.f = f
	s.mode = modeReadWrite
	return nil
}

// closeHandle closes the underlying *os.File, if any, and marks the mode
// as closed-but-associated.
func (s *Store) closeHandle() error {
	if s.f == nil {
		s.mode = modeNone
		return nil
	}
	err := s.f.Close()
	s.f = nil
	s.mode = modeNone
	if err != nil {
		return fmt.Errorf("%w: closing %s: %v", ErrIO, s.path, err)
	}
	return nil
}
