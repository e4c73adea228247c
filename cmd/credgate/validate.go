// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/credgate/credgate/internal/auth/credential"
)

// validateConfig holds flags for the validate command.
type validateConfig struct {
	username string
	email    string
}

func newValidateCmd(a *app) *cobra.Command {
	cfg := &validateConfig{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a username, email and password against the credential policy",
		Long: `Check a username, email and password against the credential policy.
The password is read from the terminal, or from stdin when piped.`,
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, a, cfg)
		}),
	}

	cmd.Flags().StringVar(&cfg.username, "username", "", "username to check")
	cmd.Flags().StringVar(&cfg.email, "email", "", "email address to check")
	cmd.Flags().String("corpus", "", "common-password list, one per line, optionally gzipped (default embedded list)")

	return cmd
}

func runValidate(cmd *cobra.Command, a *app, cfg *validateConfig) error {
	validator, err := a.validator()
	if err != nil {
		return err
	}

	pw, err := newPrompter(cmd).password("Password")
	if err != nil {
		return err
	}

	if err := validator.ValidateCredentials(cfg.username, cfg.email, pw); err != nil {
		reason := credential.ReasonOf(err)
		a.metrics.RecordRejection(credential.FieldOf(err), string(reason))
		a.logger.Debug("credentials rejected", "reason", reason)
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}
