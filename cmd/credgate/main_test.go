// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credgate/credgate/internal/auth/credential"
	"github.com/credgate/credgate/internal/config"
	"github.com/credgate/credgate/pkg/errutil"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "correct horse battery"
	testSubject  = "01HZX3T7Q8N4B5C6D7E8F9G0HJ"
)

// isolate keeps tests away from the user's config file and environment.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvTokenSecret, "")
	t.Setenv(config.EnvDatabaseURL, "")
	configFile = ""
}

// execute runs the CLI with stdin and returns stdout, stderr and the error.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "", "--help")
	require.NoError(t, err)

	subcommands := []string{"validate", "hash", "verify", "token", "user", "config"}
	for _, sub := range subcommands {
		assert.Contains(t, out, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantFlag string
	}{
		{
			name:     "config flag",
			args:     []string{"--config", "/path/to/config.yaml", "--help"},
			wantFlag: "/path/to/config.yaml",
		},
		{
			name:     "config flag with equals",
			args:     []string{"--config=/etc/credgate.yaml", "--help"},
			wantFlag: "/etc/credgate.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)

			_, _, err := execute(t, "", tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFlag, configFile)
		})
	}
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, testPassword+"\n", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "hash")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_NOT_FOUND")
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		stdin      string
		wantCode   string
		wantReason credential.Reason
	}{
		{
			name:  "accepts strong credentials",
			args:  []string{"--username", "alice_01", "--email", "alice@example.com"},
			stdin: testPassword + "\n",
		},
		{
			name:       "rejects common password",
			args:       []string{"--username", "alice_01", "--email", "alice@example.com"},
			stdin:      "password\n",
			wantCode:   "CREDENTIAL_WEAK_PASSWORD",
			wantReason: credential.ReasonTooCommon,
		},
		{
			name:       "rejects bad email",
			args:       []string{"--username", "alice_01", "--email", "alice.example.com"},
			stdin:      testPassword + "\n",
			wantCode:   "CREDENTIAL_INVALID_EMAIL",
			wantReason: credential.ReasonMissingAt,
		},
		{
			name:       "custom corpus",
			args:       []string{"--username", "alice_01", "--email", "alice@example.com", "--corpus", "CORPUS"},
			stdin:      testPassword + "\n",
			wantCode:   "CREDENTIAL_WEAK_PASSWORD",
			wantReason: credential.ReasonTooCommon,
		},
		{
			name:     "no password on stdin",
			args:     []string{"--username", "alice_01", "--email", "alice@example.com"},
			wantCode: "INPUT_EMPTY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			args := append([]string{"validate"}, tt.args...)
			for i, arg := range args {
				if arg == "CORPUS" {
					path := filepath.Join(t.TempDir(), "corpus.txt")
					require.NoError(t, os.WriteFile(path, []byte(testPassword+"\n"), 0o600))
					args[i] = path
				}
			}

			out, _, err := execute(t, tt.stdin, args...)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, "ok\n", out)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.wantCode)
			assert.Equal(t, tt.wantReason, credential.ReasonOf(err))
		})
	}
}

func TestHashAndVerify(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, testPassword+"\n", "hash", "--work-factor", "4")
	require.NoError(t, err)
	encoded := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(encoded, "$2a$04$"), "unexpected hash %q", encoded)

	t.Run("match", func(t *testing.T) {
		out, _, err := execute(t, testPassword+"\n", "verify", "--work-factor", "4", encoded)
		require.NoError(t, err)
		assert.Equal(t, "match\n", out)
	})

	t.Run("match with outdated work factor", func(t *testing.T) {
		out, _, err := execute(t, testPassword+"\n", "verify", "--work-factor", "5", encoded)
		require.NoError(t, err)
		assert.Contains(t, out, "match\n")
		assert.Contains(t, out, "rehash")
	})

	t.Run("mismatch", func(t *testing.T) {
		_, _, err := execute(t, "wrong password\n", "verify", "--work-factor", "4", encoded)
		errutil.AssertRejected(t, err, ErrPasswordMismatch, "PASSWORD_MISMATCH")
	})

	t.Run("malformed hash", func(t *testing.T) {
		_, _, err := execute(t, testPassword+"\n", "verify", "not-a-hash")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "PASSWORD_MALFORMED_HASH")
	})

	t.Run("work factor out of range", func(t *testing.T) {
		_, _, err := execute(t, testPassword+"\n", "hash", "--work-factor", "3")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})
}

func TestHash_SpacesArePartOfPassword(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "  padded  \r\n", "hash", "--work-factor", "4")
	require.NoError(t, err)
	encoded := strings.TrimSpace(out)

	_, _, err = execute(t, "padded\n", "verify", "--work-factor", "4", encoded)
	require.Error(t, err)

	_, _, err = execute(t, "  padded  \n", "verify", "--work-factor", "4", encoded)
	require.NoError(t, err)
}

func TestHash_ReadsFromTerminal(t *testing.T) {
	isolate(t)
	origRead, origTerm := readPassword, isTerminal
	t.Cleanup(func() { readPassword, isTerminal = origRead, origTerm })
	isTerminal = func(int) bool { return true }
	readPassword = func(int) ([]byte, error) { return []byte(testPassword), nil }

	cmd := NewRootCmd()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(os.Stdin)
	cmd.SetArgs([]string{"hash", "--work-factor", "4"})

	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(stdout.String(), "$2a$04$"))
	assert.Contains(t, stderr.String(), "Password: ")
}

func TestTokenCommands(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvTokenSecret, testSecret)
	const hash = "$2a$04$abcdefghijklmnopqrstuu5Jm0aB6Y1Lc1o9D1cWcY0bGm9mQ8uAe"

	out, _, err := execute(t, "", "token", "issue", "--subject", testSubject, "--password-hash", hash, "--access-lifetime", "1h")
	require.NoError(t, err)

	var issued tokenOutput
	require.NoError(t, json.Unmarshal([]byte(out), &issued))
	require.NotEmpty(t, issued.AccessToken)
	require.NotEmpty(t, issued.RefreshToken)
	assert.False(t, issued.AccessExpiresAt.IsZero())

	t.Run("verify access token", func(t *testing.T) {
		out, _, err := execute(t, "", "token", "verify", issued.AccessToken)
		require.NoError(t, err)

		var claims claimsOutput
		require.NoError(t, json.Unmarshal([]byte(out), &claims))
		assert.Equal(t, "access", claims.Type)
		assert.Equal(t, testSubject, claims.Subject)
		assert.Equal(t, issued.AccessExpiresAt.Unix(), claims.ExpiresAt.Unix())
	})

	t.Run("verify refresh token bound to hash", func(t *testing.T) {
		out, _, err := execute(t, "", "token", "verify", "--password-hash", hash, issued.RefreshToken)
		require.NoError(t, err)

		var claims claimsOutput
		require.NoError(t, json.Unmarshal([]byte(out), &claims))
		assert.Equal(t, "refresh", claims.Type)
		require.NotNil(t, claims.Bound)
		assert.True(t, *claims.Bound)
	})

	t.Run("refresh token after password change", func(t *testing.T) {
		_, stderr, err := execute(t, "", "--metrics", "token", "verify", "--password-hash", hash+"x", issued.RefreshToken)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "TOKEN_BINDING_MISMATCH")
		assert.Contains(t, stderr, `credgate_token_failures_total{kind="binding_mismatch"} 1`)
	})

	t.Run("tampered token", func(t *testing.T) {
		_, _, err := execute(t, "", "token", "verify", issued.AccessToken+"x")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "TOKEN_SIGNATURE_INVALID")
	})

	t.Run("different secret", func(t *testing.T) {
		t.Setenv(config.EnvTokenSecret, strings.Repeat("z", 32))
		_, _, err := execute(t, "", "token", "verify", issued.AccessToken)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "TOKEN_SIGNATURE_INVALID")
	})
}

func TestTokenCommands_RequireSecret(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "", "token", "issue", "--subject", testSubject)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestUserCommands_RequireDatabase(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{name: "register", stdin: testPassword + "\n", args: []string{"user", "register", "--username", "alice_01", "--email", "alice@example.com"}},
		{name: "login", stdin: testPassword + "\n", args: []string{"user", "login", "--email", "alice@example.com"}},
		{name: "refresh", args: []string{"user", "refresh", "token"}},
		{name: "passwd", stdin: testPassword + "\nnew " + testPassword + "\n", args: []string{"user", "passwd", "--id", testSubject}},
		{name: "whoami", args: []string{"user", "whoami", "token"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(config.EnvTokenSecret, testSecret)

			_, _, err := execute(t, tt.stdin, tt.args...)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			assert.Contains(t, err.Error(), config.EnvDatabaseURL)
		})
	}
}

func TestUserPasswd_InvalidID(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "", "user", "passwd", "--id", "not-an-id")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "USER_INVALID_ID")
}

func TestConfigCommands(t *testing.T) {
	t.Run("show masks secrets", func(t *testing.T) {
		isolate(t)
		t.Setenv(config.EnvTokenSecret, testSecret)
		t.Setenv(config.EnvDatabaseURL, "postgres://credgate:hunter2@db:5432/credgate")

		out, _, err := execute(t, "", "config", "show", "--log-level", "debug")
		require.NoError(t, err)
		assert.Contains(t, out, "level: debug")
		assert.Contains(t, out, "work_factor: 13")
		errutil.AssertNotLeaked(t, out, testSecret, "hunter2")
	})

	t.Run("show masks query password", func(t *testing.T) {
		isolate(t)
		t.Setenv(config.EnvDatabaseURL, "postgres://app@db:5432/credgate?sslmode=disable&password=hunter2secret")

		out, _, err := execute(t, "", "config", "show")
		require.NoError(t, err)
		assert.Contains(t, out, "password=xxxxx")
		errutil.AssertNotLeaked(t, out, "hunter2secret")
	})

	t.Run("schema", func(t *testing.T) {
		isolate(t)
		out, _, err := execute(t, "", "config", "schema")
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, "credgate configuration", doc["title"])
	})

	t.Run("init writes a loadable file", func(t *testing.T) {
		isolate(t)
		path := filepath.Join(t.TempDir(), "sub", "config.yaml")

		out, _, err := execute(t, "", "--config", path, "config", "init")
		require.NoError(t, err)
		assert.Equal(t, path+"\n", out)

		cfg, err := config.Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, config.Default().Password, cfg.Password)

		_, _, err = execute(t, "", "--config", path, "config", "init")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_EXISTS")

		_, _, err = execute(t, "", "--config", path, "config", "init", "--force")
		require.NoError(t, err)
	})

	t.Run("init defaults to the XDG path", func(t *testing.T) {
		isolate(t)

		out, _, err := execute(t, "", "config", "init")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "credgate", "config.yaml")+"\n", out)
	})
}

func TestMetricsFlag(t *testing.T) {
	isolate(t)

	_, stderr, err := execute(t, testPassword+"\n", "--metrics", "hash", "--work-factor", "4")
	require.NoError(t, err)
	assert.Contains(t, stderr, `credgate_password_hash_seconds_count{operation="hash"} 1`)

	_, stderr, err = execute(t, "password\n", "--metrics", "validate", "--username", "alice_01", "--email", "alice@example.com")
	require.Error(t, err)
	assert.Contains(t, stderr, `credgate_validation_rejections_total{field="password",reason="too_common"} 1`)
}
