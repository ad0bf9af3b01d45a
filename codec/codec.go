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

// Package codec implements the little-endian primitive read/write
// operations that the sdict file format is built on: fixed-width
// unsigned integers, null padding, and the file magic.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic is the 7-byte literal that begins every sdict file. The first
// five bytes spell "SDICT"; the last two are the format version (1) and a
// reserved byte.
var Magic = [7]byte{'S', 'D', 'I', 'C', 'T', 0x01, 0x00}

// ErrShortRead indicates that a read crossed the end of the file before
// the requested number of bytes were available.
var ErrShortRead = errors.New("codec: unexpected EOF")

// ErrBadMagic indicates that the first bytes of a file did not match
// [Magic].
var ErrBadMagic = errors.New("codec: bad magic bytes")

// ReadUint32 reads a little-endian uint32 from r. A read that reaches EOF
// before 4 bytes are consumed is reported as [ErrShortRead], distinct from
// other I/O errors returned by r.
func ReadUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadUint64 reads a little-endian uint64 from r.
func ReadUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if err := readFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// WriteUint32 writes v to w in little-endian form.
func WriteUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	if err != nil {
		return fmt.Errorf("codec: writing uint32: %w", err)
	}
	return nil
}

// WriteUint64 writes v to w in little-endian form.
func WriteUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	if err != nil {
		return fmt.Errorf("codec: writing uint64: %w", err)
	}
	return nil
}

// WriteNulls writes n zero bytes to w.
func WriteNulls(w io.Writer, n int) error {
	if n <= 0 {
		return nil
	}
	// Write in bounded chunks so a large n doesn't require an
	// n-byte allocation.
	const chunkSize = 4096
	var zeros [chunkSize]byte
	for n > 0 {
		k := n
		if k > chunkSize {
			k = chunkSize
		}
		if _, err := w.Write(zeros[:k]); err != nil {
			return fmt.Errorf("codec: writing nulls: %w", err)
		}
		n -= k
	}
	return nil
}

// CheckMagic reads len(Magic) bytes from r and verifies they equal
// [Magic].
func CheckMagic(r io.Reader) error {
	var buf [len(Magic)]byte
	if err := readFull(r, buf[:]); err != nil {
		return err
	}
	if buf != Magic {
		return ErrBadMagic
	}
	return nil
}

// readFull reads exactly len(buf) bytes, translating io.EOF and
// io.ErrUnexpectedEOF into ErrShortRead so callers can distinguish a
// truncated file from other I/O failures, matching the distinct
// EOF/fail/bad status errors the format requires on every integer read.
func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ErrShortRead
	default:
		return fmt.Errorf("codec: read: %w", err)
	}
}
