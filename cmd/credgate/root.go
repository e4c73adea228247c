// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"github.com/spf13/cobra"
)

const serviceName = "credgate"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the credgate CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "credgate",
		Short: "credgate - credential validation and token issuance",
		Long: `credgate validates usernames, emails and passwords, hashes passwords
with bcrypt, and issues HMAC-signed access and refresh tokens. Refresh
tokens are bound to the password hash, so changing a password revokes them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/credgate/config.yaml)")
	cmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	cmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	cmd.PersistentFlags().BoolVar(&a.dumpMetrics, "metrics", false, "write metrics to stderr after the command runs")

	// Add subcommands
	cmd.AddCommand(newValidateCmd(a))
	cmd.AddCommand(newHashCmd(a))
	cmd.AddCommand(newVerifyCmd(a))
	cmd.AddCommand(newTokenCmd(a))
	cmd.AddCommand(newUserCmd(a))
	cmd.AddCommand(newConfigCmd(a))

	return cmd
}
