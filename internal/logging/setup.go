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

// Package logging configures the shared logrus logger used by the
// command-line tools. The store and codec packages never log: they
// report failures through returned errors, leaving logging entirely to
// their callers.
package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// SetUp configures the standard logrus logger with the given level name
// ("debug", "info", "warn", "error"). text selects a human-readable
// formatter for an interactive terminal; the default is a JSON
// formatter suited to piping tool output into a log aggregator.
func SetUp(level string, text bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	if text {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		return nil
	}
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	})
	return nil
}
