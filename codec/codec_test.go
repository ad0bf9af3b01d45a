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

package codec

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadWriteUint32(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteUint32(&buf, 0xdeadbeef); err != nil {
		t.Fatalf("WriteUint32: %v", err)
	}
	if diff := []byte{0xef, 0xbe, 0xad, 0xde}; !bytes.Equal(buf.Bytes(), diff) {
		t.Fatalf("WriteUint32: got %x, want %x", buf.Bytes(), diff)
	}

	got, err := ReadUint32(&buf)
	if err != nil {
		t.Fatalf("ReadUint32: %v", err)
	}
	if got != 0xdeadbeef {
		t.Fatalf("ReadUint32: got %#x, want %#x", got, 0xdeadbeef)
	}
}

func TestReadUint32ShortRead(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 2, 3} {
		buf := bytes.NewReader(make([]byte, n))
		if _, err := ReadUint32(buf); !errors.Is(err, ErrShortRead) {
			t.Fatalf("ReadUint32 with %d bytes: got %v, want ErrShortRead", n, err)
		}
	}
}

func TestReadWriteUint64(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	const want = uint64(0x0123456789abcdef)
	if err := WriteUint64(&buf, want); err != nil {
		t.Fatalf("WriteUint64: %v", err)
	}
	got, err := ReadUint64(&buf)
	if err != nil {
		t.Fatalf("ReadUint64: %v", err)
	}
	if got != want {
		t.Fatalf("ReadUint64: got %#x, want %#x", got, want)
	}
}

func TestWriteNulls(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteNulls(&buf, 10000); err != nil {
		t.Fatalf("WriteNulls: %v", err)
	}
	if buf.Len() != 10000 {
		t.Fatalf("WriteNulls: got %d bytes, want 10000", buf.Len())
	}
	for i, b := range buf.Bytes() {
		if b != 0 {
			t.Fatalf("WriteNulls: byte %d is %#x, want 0", i, b)
		}
	}
}

func TestCheckMagic(t *testing.T) {
	t.Parallel()

	good := bytes.NewReader(Magic[:])
	if err := CheckMagic(good); err != nil {
		t.Fatalf("CheckMagic(good): %v", err)
	}

	bad := bytes.NewReader([]byte("WRONG!!"))
	if err := CheckMagic(bad); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("CheckMagic(bad): got %v, want ErrBadMagic", err)
	}

	short := bytes.NewReader([]byte("SD"))
	if err := CheckMagic(short); !errors.Is(err, ErrShortRead) {
		t.Fatalf("CheckMagic(short): got %v, want ErrShortRead", err)
	}
}
