// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package credential

import (
	"bufio"
	"bytes"
	_ "embed"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/samber/oops"
)

//go:embed data/common-passwords.txt.gz
var defaultCorpus []byte

// Corpus is an immutable set of known-weak passwords.
type Corpus struct {
	words map[string]struct{}
}

// NewCorpus builds a Corpus from the given words. Each word is stripped of
// surrounding whitespace; empty words are ignored.
func NewCorpus(words ...string) *Corpus {
	c := &Corpus{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		c.add(w)
	}
	return c
}

// DefaultCorpus returns the word list compiled into the binary.
func DefaultCorpus() (*Corpus, error) {
	return ReadCorpus(bytes.NewReader(defaultCorpus))
}

// LoadCorpus reads a line-delimited word list from path. Gzip-compressed
// files are detected and decompressed.
func LoadCorpus(path string) (*Corpus, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, oops.Code("CORPUS_LOAD_FAILED").
			With("path", path).
			Wrap(err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	c, err := ReadCorpus(f)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return c, nil
}

// ReadCorpus reads one password per line from r, decompressing gzip input.
func ReadCorpus(r io.Reader) (*Corpus, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br

	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, zerr := gzip.NewReader(br)
		if zerr != nil {
			return nil, oops.Code("CORPUS_LOAD_FAILED").
				With("operation", "open gzip stream").
				Wrap(zerr)
		}
		defer zr.Close() //nolint:errcheck // decompression errors surface through Scan
		src = zr
	}

	c := &Corpus{words: make(map[string]struct{})}
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		c.add(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, oops.Code("CORPUS_LOAD_FAILED").
			With("operation", "read corpus").
			Wrap(err)
	}
	if len(c.words) == 0 {
		return nil, oops.Code("CORPUS_LOAD_FAILED").Errorf("password corpus is empty")
	}
	return c, nil
}

// Contains reports whether password is in the corpus. Matching is exact.
func (c *Corpus) Contains(password string) bool {
	_, ok := c.words[password]
	return ok
}

// Len returns the number of distinct entries.
func (c *Corpus) Len() int {
	return len(c.words)
}

func (c *Corpus) add(word string) {
	if w := strings.TrimSpace(word); w != "" {
		c.words[w] = struct{}{}
	}
}
