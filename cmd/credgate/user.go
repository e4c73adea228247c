// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/auth/token"
)

// userOutput is printed by user register and user login.
type userOutput struct {
	ID        string       `json:"id"`
	Username  string       `json:"username"`
	Email     string       `json:"email"`
	CreatedAt time.Time    `json:"created_at"`
	Tokens    *tokenOutput `json:"tokens,omitempty"`
}

func newUserOutput(u *auth.User) userOutput {
	return userOutput{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// userConfig holds flags shared by the user subcommands.
type userConfig struct {
	username string
	email    string
	id       string
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts stored in PostgreSQL",
		Long: `Manage accounts stored in the PostgreSQL database at $DATABASE_URL.
Passwords are read from the terminal, or from stdin when piped.`,
	}

	cmd.AddCommand(newUserRegisterCmd(a))
	cmd.AddCommand(newUserLoginCmd(a))
	cmd.AddCommand(newUserRefreshCmd(a))
	cmd.AddCommand(newUserPasswdCmd(a))
	cmd.AddCommand(newUserWhoamiCmd(a))

	return cmd
}

func newUserRegisterCmd(a *app) *cobra.Command {
	cfg := &userConfig{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			return runUserRegister(cmd, a, cfg)
		}),
	}

	cmd.Flags().StringVar(&cfg.username, "username", "", "username for the new account")
	cmd.Flags().StringVar(&cfg.email, "email", "", "email address for the new account")
	cmd.Flags().String("corpus", "", "common-password list (default embedded list)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runUserRegister(cmd *cobra.Command, a *app, cfg *userConfig) error {
	pw, err := newPrompter(cmd).password("Password")
	if err != nil {
		return err
	}

	svc, done, err := a.service(cmd.Context())
	if err != nil {
		return err
	}
	defer done()

	user, err := svc.Register(cmd.Context(), auth.RegisterRequest{
		Username: cfg.username,
		Email:    cfg.email,
		Password: pw,
	})
	if err != nil {
		return err
	}
	return writeJSON(cmd, newUserOutput(user))
}

func newUserLoginCmd(a *app) *cobra.Command {
	cfg := &userConfig{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print an access and refresh token",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			return runUserLogin(cmd, a, cfg)
		}),
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "account email address")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runUserLogin(cmd *cobra.Command, a *app, cfg *userConfig) error {
	pw, err := newPrompter(cmd).password("Password")
	if err != nil {
		return err
	}

	svc, done, err := a.service(cmd.Context())
	if err != nil {
		return err
	}
	defer done()

	user, pair, err := svc.Login(cmd.Context(), cfg.email, pw)
	if err != nil {
		return err
	}

	out := newUserOutput(user)
	out.Tokens = &tokenOutput{
		AccessToken:     pair.AccessToken,
		AccessExpiresAt: pair.AccessExpiresAt,
		RefreshToken:    pair.RefreshToken,
	}
	return writeJSON(cmd, out)
}

func newUserRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <refresh-token>",
		Short: "Exchange a refresh token for a new access token",
		Args:  cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			pair, err := svc.Refresh(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, tokenOutput{
				AccessToken:     pair.AccessToken,
				AccessExpiresAt: pair.AccessExpiresAt,
				RefreshToken:    pair.RefreshToken,
			})
		}),
	}
}

func newUserPasswdCmd(a *app) *cobra.Command {
	cfg := &userConfig{}

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change an account password",
		Long: `Change an account password. Prompts for the current password, then the
new one. Refresh tokens issued before the change stop working.`,
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			return runUserPasswd(cmd, a, cfg)
		}),
	}

	cmd.Flags().StringVar(&cfg.id, "id", "", "account identifier")
	cmd.Flags().String("corpus", "", "common-password list (default embedded list)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runUserPasswd(cmd *cobra.Command, a *app, cfg *userConfig) error {
	id, err := ulid.ParseStrict(cfg.id)
	if err != nil {
		return oops.Code("USER_INVALID_ID").With("id", cfg.id).Wrap(err)
	}

	p := newPrompter(cmd)
	current, err := p.password("Current password")
	if err != nil {
		return err
	}
	next, err := p.password("New password")
	if err != nil {
		return err
	}

	svc, done, err := a.service(cmd.Context())
	if err != nil {
		return err
	}
	defer done()

	if err := svc.ChangePassword(cmd.Context(), id, current, next); err != nil {
		return err
	}
	return writeJSON(cmd, map[string]string{"id": id.String(), "status": "password changed"})
}

func newUserWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami <access-token>",
		Short: "Show the account an access token belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			claims, err := svc.Authenticate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, claimsOutput{
				Type:      token.TypeAccess,
				Subject:   claims.Subject,
				ID:        claims.ID,
				IssuedAt:  claims.IssuedAt,
				ExpiresAt: claims.ExpiresAt,
			})
		}),
	}
}
