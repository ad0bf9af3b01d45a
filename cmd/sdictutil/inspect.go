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

	"github.com/rodaine/table"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/inkwell-labs/sdict/store"
)

var inspectCommand = &cli.Command{
	Name:      "inspect",
	Usage:     "Print summary information about a dictionary file",
	ArgsUsage: "FILE",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "check-defs",
			Usage: "verify every definition's stored hash while opening",
			Value: true,
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("%w: inspect takes exactly one FILE argument", ErrFlagParse)
		}
		path := c.Args().Get(0)

		s, err := store.Open(path,
			store.WithCreateIfNotExists(false),
			store.WithCheckDefs(c.Bool("check-defs")),
		)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck
		logrus.WithFields(logrus.Fields{"path": path, "words": s.NumWords()}).Debug("inspected store")

		tbl := table.New("Field", "Value")
		tbl.AddRow("Path", path)
		tbl.AddRow("Word count", s.NumWords())
		tbl.Print()

		return nil
	},
}
