// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/credgate/credgate/internal/auth/password"
)

// ErrPasswordMismatch is returned by verify when the password does not match.
var ErrPasswordMismatch = errors.New("password does not match hash")

func newHashCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hash a password with bcrypt",
		Long: `Hash a password with bcrypt at the configured work factor and print
the encoded hash. The password is read from the terminal, or from stdin when piped.`,
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			return runHash(cmd, a)
		}),
	}

	cmd.Flags().Int("work-factor", password.DefaultWorkFactor, "bcrypt cost")

	return cmd
}

func runHash(cmd *cobra.Command, a *app) error {
	hasher, err := a.hasher()
	if err != nil {
		return err
	}

	pw, err := newPrompter(cmd).password("Password")
	if err != nil {
		return err
	}

	encoded, err := hasher.Hash(cmd.Context(), pw)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), encoded)
	return nil
}

func newVerifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <hash>",
		Short: "Check a password against a bcrypt hash",
		Long: `Check a password against a bcrypt hash. Exits non-zero on mismatch and
notes when the hash was produced at a different work factor.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, a, args[0])
		}),
	}

	cmd.Flags().Int("work-factor", password.DefaultWorkFactor, "bcrypt cost new hashes should use")

	return cmd
}

func runVerify(cmd *cobra.Command, a *app, encoded string) error {
	hasher, err := a.hasher()
	if err != nil {
		return err
	}

	pw, err := newPrompter(cmd).password("Password")
	if err != nil {
		return err
	}

	ok, err := hasher.Verify(cmd.Context(), pw, encoded)
	if err != nil {
		return err
	}
	if !ok {
		return oops.Code("PASSWORD_MISMATCH").Wrap(ErrPasswordMismatch)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "match")
	if hasher.NeedsRehash(encoded) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "note: hash does not use the configured work factor; rehash on next login")
	}
	return nil
}
