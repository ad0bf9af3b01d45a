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

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/inkwell-labs/sdict/store"
)

var findCommand = &cli.Command{
	Name:      "find",
	Usage:     "Look up a word's definition",
	ArgsUsage: "FILE WORD",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return fmt.Errorf("%w: find takes exactly FILE and WORD arguments", ErrFlagParse)
		}
		path := c.Args().Get(0)
		word := c.Args().Get(1)

		s, err := store.Open(path, store.WithCreateIfNotExists(false))
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		def, err := s.Find([]byte(word), true)
		if err != nil {
			return err
		}
		if def == nil {
			fmt.Fprintf(os.Stderr, "%s: word not found\n", word)
			return cli.Exit("", 1)
		}
		fmt.Println(string(def))
		return nil
	},
}
