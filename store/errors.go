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
	"errors"
	"fmt"
)

// ErrIO is the parent error for file-access failures: the path doesn't
// exist and creation wasn't requested, the path exists but isn't a
// regular file, or opening, seeking, reading, writing, syncing or
// renaming the file fails.
var ErrIO = errors.New("store: file access error")

// ErrCorrupted is the parent error for every integrity check on the
// file layout: bad magic, inconsistent header fields, duplicate
// indices, duplicate words, and hash mismatches.
var ErrCorrupted = errors.New("store: file may be corrupted")

// ErrLogic is the parent error for caller misuse: operating on a Store
// before Open, or a pending suffix that contains duplicate words at
// Consolidate time.
var ErrLogic = errors.New("store: invalid use")

// ErrClosed indicates an operation was attempted on a Store with no
// associated file. It wraps ErrLogic.
var ErrClosed = fmt.Errorf("%w: not open", ErrLogic)
