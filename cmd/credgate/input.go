// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// prompter reads secrets for one command. On a terminal input is read
// without echo; otherwise one line per secret is read from the command's
// input so passwords can be piped in.
type prompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{in: cmd.InOrStdin(), out: cmd.ErrOrStderr()}
}

// password prints label and returns the entered secret. Only the line ending
// is stripped; surrounding spaces are part of the password.
func (p *prompter) password(label string) (string, error) {
	if f, ok := p.in.(*os.File); ok && isTerminal(int(f.Fd())) {
		if _, err := fmt.Fprintf(p.out, "%s: ", label); err != nil {
			return "", err
		}
		pw, err := readPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(p.out)
		if err != nil {
			return "", oops.Code("INPUT_READ_FAILED").With("prompt", label).Wrap(err)
		}
		return string(pw), nil
	}

	if p.reader == nil {
		p.reader = bufio.NewReader(p.in)
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", oops.Code("INPUT_EMPTY").With("prompt", label).Errorf("no input for %s", strings.ToLower(label))
		}
		return "", oops.Code("INPUT_READ_FAILED").With("prompt", label).Wrap(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
