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
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/inkwell-labs/sdict/store"
)

var addCommand = &cli.Command{
	Name:      "add",
	Usage:     "Add a word and its definition, reading the definition from a file or stdin",
	ArgsUsage: "FILE WORD [DEFFILE]",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "dedup",
			Usage: "deduplicate identical definition bodies",
			Value: true,
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 && c.NArg() != 3 {
			return fmt.Errorf("%w: add takes FILE, WORD, and an optional DEFFILE", ErrFlagParse)
		}
		path := c.Args().Get(0)
		word := c.Args().Get(1)

		var def []byte
		var err error
		if c.NArg() == 3 {
			def, err = os.ReadFile(c.Args().Get(2))
		} else {
			def, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return err
		}

		s, err := store.Open(path, store.WithDeduplicate(c.Bool("dedup")))
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck
		logrus.WithField("path", path).Debug("opened store")

		added, err := s.AddWord([]byte(word), def)
		if err != nil {
			return err
		}
		if !added {
			fmt.Fprintf(os.Stderr, "%s: word already present, not overwritten\n", word)
			return cli.Exit("", 1)
		}
		logrus.WithFields(logrus.Fields{"path": path, "word": word}).Info("added word")
		return nil
	},
}
