// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/credgate/credgate/internal/auth/token"
)

// tokenOutput is printed by token issue and the user commands.
type tokenOutput struct {
	AccessToken     string    `json:"access_token,omitempty"`
	AccessExpiresAt time.Time `json:"access_expires_at,omitzero"`
	RefreshToken    string    `json:"refresh_token,omitempty"`
}

// claimsOutput is printed by token verify.
type claimsOutput struct {
	Type      string    `json:"type"`
	Subject   string    `json:"subject"`
	ID        string    `json:"id,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Bound     *bool     `json:"bound,omitempty"`
}

// tokenIssueConfig holds flags for token issue.
type tokenIssueConfig struct {
	subject      string
	passwordHash string
}

// tokenVerifyConfig holds flags for token verify.
type tokenVerifyConfig struct {
	passwordHash string
}

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and verify tokens",
		Long: `Issue and verify tokens signed with the secret in $CREDGATE_TOKEN_SECRET.
These commands work without a database.`,
	}

	cmd.AddCommand(newTokenIssueCmd(a))
	cmd.AddCommand(newTokenVerifyCmd(a))

	return cmd
}

func newTokenIssueCmd(a *app) *cobra.Command {
	cfg := &tokenIssueConfig{}

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue an access token, and a refresh token when a password hash is given",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			return runTokenIssue(cmd, a, cfg)
		}),
	}

	cmd.Flags().StringVar(&cfg.subject, "subject", "", "user identifier to issue for")
	cmd.Flags().StringVar(&cfg.passwordHash, "password-hash", "", "current password hash to bind a refresh token to")
	cmd.Flags().Duration("access-lifetime", 15*time.Minute, "access token lifetime")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func runTokenIssue(cmd *cobra.Command, a *app, cfg *tokenIssueConfig) error {
	issuer, err := a.issuer()
	if err != nil {
		return err
	}

	var out tokenOutput
	out.AccessToken, out.AccessExpiresAt, err = issuer.IssueAccess(cfg.subject)
	if err != nil {
		return err
	}
	a.metrics.RecordTokenIssued(token.TypeAccess)

	if cfg.passwordHash != "" {
		out.RefreshToken, err = issuer.IssueRefresh(cfg.subject, cfg.passwordHash)
		if err != nil {
			return err
		}
		a.metrics.RecordTokenIssued(token.TypeRefresh)
	}

	return writeJSON(cmd, out)
}

func newTokenVerifyCmd(a *app) *cobra.Command {
	cfg := &tokenVerifyConfig{}

	cmd := &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token and print its claims",
		Long: `Verify a token and print its claims. Refresh tokens are checked against
--password-hash when it is given.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			return runTokenVerify(cmd, a, cfg, args[0])
		}),
	}

	cmd.Flags().StringVar(&cfg.passwordHash, "password-hash", "", "current password hash a refresh token must be bound to")

	return cmd
}

func runTokenVerify(cmd *cobra.Command, a *app, cfg *tokenVerifyConfig, raw string) error {
	issuer, err := a.issuer()
	if err != nil {
		return err
	}

	out, err := verifyToken(issuer, cfg.passwordHash, raw)
	if err != nil {
		kind := token.Kind(err)
		a.metrics.RecordTokenFailure(kind)
		a.logger.Debug("token rejected", "kind", kind)
		return err
	}
	return writeJSON(cmd, out)
}

// verifyToken accepts either token type. Refresh parsing is tried first
// because access verification rejects a token without an expiry as malformed
// before it looks at the type.
func verifyToken(issuer *token.Issuer, passwordHash, raw string) (claimsOutput, error) {
	refresh, err := issuer.ParseRefresh(raw)
	if err == nil {
		out := claimsOutput{Type: token.TypeRefresh, Subject: refresh.Subject, IssuedAt: refresh.IssuedAt}
		if passwordHash != "" {
			if err := issuer.CheckBinding(refresh, passwordHash); err != nil {
				return claimsOutput{}, err
			}
			bound := true
			out.Bound = &bound
		}
		return out, nil
	}
	if !errors.Is(err, token.ErrWrongTokenType) {
		return claimsOutput{}, err
	}

	access, err := issuer.VerifyAccess(raw)
	if err != nil {
		return claimsOutput{}, err
	}
	return claimsOutput{
		Type:      token.TypeAccess,
		Subject:   access.Subject,
		ID:        access.ID,
		IssuedAt:  access.IssuedAt,
		ExpiresAt: access.ExpiresAt,
	}, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}
	return nil
}
