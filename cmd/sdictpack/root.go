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
	"github.com/spf13/cobra"
	"sigs.k8s.io/release-utils/version"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "sdictpack",
		Short: "Build an sdict file from a word list and a dictionary API",
		Long: "sdictpack fetches a definition for each word in a word list from " +
			"a dictionary API and packs the results into an sdict file.",
	}

	root.AddCommand(newPackCommand())
	root.AddCommand(version.WithFont("slant"))

	return root
}
