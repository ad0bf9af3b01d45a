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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/inkwell-labs/sdict/internal/logging"
	"github.com/inkwell-labs/sdict/store"
)

// wordBufSize and defBufSize bound the two pipeline stages' channels,
// the Go analogue of the format's fixed-size atomic
// ring buffers between the fetch workers and the single writer.
const (
	wordBufSize = 64
	defBufSize  = 8
)

type wordDef struct {
	word string
	data []byte
}

func newPackCommand() *cobra.Command {
	var (
		outPath    string
		apiBase    string
		apiKey     string
		apiKeyFile string
		workers    int
		dedup      bool
		logLevel   string
	)

	c := &cobra.Command{
		Use:   "pack WORDLIST",
		Short: "Fetch a definition for each word in WORDLIST and write an sdict file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.SetUp(logLevel, false); err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
			key, err := resolveAPIKey(apiKey, apiKeyFile)
			if err != nil {
				return err
			}
			return runPack(cmd.Context(), packConfig{
				wordListPath: args[0],
				outPath:      outPath,
				apiBase:      apiBase,
				apiKey:       key,
				workers:      workers,
				dedup:        dedup,
			})
		},
	}

	flags := c.Flags()
	flags.StringVar(&outPath, "out", "dictionary.sdict", "path of the sdict file to write")
	flags.StringVar(&apiBase, "api-base-url", "https://www.dictionaryapi.com/api/v3/references/collegiate/json", "dictionary API base URL")
	flags.StringVar(&apiKey, "api-key", "", "dictionary API key")
	flags.StringVar(&apiKeyFile, "api-key-file", "", "path of a file holding the dictionary API key, as an alternative to --api-key")
	flags.IntVar(&workers, "workers", 16, "number of concurrent HTTP fetch workers")
	flags.BoolVar(&dedup, "dedup", true, "deduplicate identical definition bodies")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	return c
}

// resolveAPIKey returns the dictionary API key from apiKey, or by reading
// apiKeyFile if apiKey is empty. It's an error to set neither.
func resolveAPIKey(apiKey, apiKeyFile string) (string, error) {
	if apiKey != "" {
		return apiKey, nil
	}
	if apiKeyFile == "" {
		return "", fmt.Errorf("one of --api-key or --api-key-file is required")
	}
	data, err := os.ReadFile(apiKeyFile)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", apiKeyFile, err)
	}
	return strings.TrimSpace(string(data)), nil
}

type packConfig struct {
	wordListPath string
	outPath      string
	apiBase      string
	apiKey       string
	workers      int
	dedup        bool
}

// runPack drives the fetch-and-pack pipeline: one goroutine streams
// words from the word list, a pool of workers fetches and transcodes
// each word's definition concurrently, and the calling goroutine is the
// sole writer into the sdict file, preserving the format's single-writer
// requirement while still overlapping network latency across workers.
func runPack(ctx context.Context, cfg packConfig) error {
	wordList, err := os.Open(cfg.wordListPath)
	if err != nil {
		return fmt.Errorf("opening word list: %w", err)
	}
	defer wordList.Close() //nolint:errcheck

	s, err := store.Open(cfg.outPath, store.WithDeduplicate(cfg.dedup))
	if err != nil {
		return fmt.Errorf("opening %s: %w", cfg.outPath, err)
	}
	defer s.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	words := make(chan string, wordBufSize)
	defs := make(chan wordDef, defBufSize)

	var firstErr error
	var errOnce sync.Once
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	var scanWG sync.WaitGroup
	scanWG.Add(1)
	go func() {
		defer scanWG.Done()
		defer close(words)
		scanner := bufio.NewScanner(wordList)
		caser := cases.Lower(language.Und)
		for scanner.Scan() {
			word := caser.String(strings.TrimSpace(scanner.Text()))
			if word == "" {
				continue
			}
			select {
			case words <- word:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			fail(fmt.Errorf("reading word list: %w", err))
		}
	}()

	client := &http.Client{Timeout: 15 * time.Second}
	var workerWG sync.WaitGroup
	for i := 0; i < cfg.workers; i++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			for {
				select {
				case word, ok := <-words:
					if !ok {
						return
					}
					data, err := fetchAndTranscode(ctx, client, cfg.apiBase, cfg.apiKey, word)
					if err != nil {
						fail(fmt.Errorf("fetching %q: %w", word, err))
						return
					}
					select {
					case defs <- wordDef{word: word, data: data}:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		workerWG.Wait()
		close(defs)
	}()

	added := 0
	for rec := range defs {
		if _, err := s.AddWord([]byte(rec.word), rec.data, store.WithFlush(false)); err != nil {
			fail(fmt.Errorf("adding %q: %w", rec.word, err))
			continue
		}
		added++
		if added%1000 == 0 {
			logrus.WithField("words", added).Info("packing in progress")
		}
	}

	scanWG.Wait()

	if firstErr != nil {
		return firstErr
	}

	if _, err := s.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", cfg.outPath, err)
	}

	logrus.WithFields(logrus.Fields{
		"words": added,
		"out":   cfg.outPath,
	}).Info("pack complete")
	return nil
}

// fetchAndTranscode fetches word's definition from the API and
// re-encodes the JSON response body as CBOR. Buffering the whole
// response in memory rather than streaming it through a push parser is
// acceptable here: a dictionary definition is kilobytes at most.
func fetchAndTranscode(ctx context.Context, client *http.Client, apiBase, apiKey, word string) ([]byte, error) {
	u := strings.TrimSuffix(apiBase, "/") + "/" + url.PathEscape(word)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("key", apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decoding response JSON: %w", err)
	}
	encoded, err := cbor.Marshal(decoded)
	if err != nil {
		return nil, fmt.Errorf("encoding CBOR: %w", err)
	}
	return encoded, nil
}
