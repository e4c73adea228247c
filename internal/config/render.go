// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const (
	notSet = "(not set)"
	masked = "********"
)

// Render returns the configuration as YAML that Load accepts, followed by
// comments describing the secrets taken from the environment. Secret values
// are never written.
func (c *Config) Render() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, oops.Code("CONFIG_RENDER_FAILED").Wrap(err)
	}
	if err := enc.Close(); err != nil {
		return nil, oops.Code("CONFIG_RENDER_FAILED").Wrap(err)
	}

	sources := c.Sources()
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&buf, "# %s: %s\n", name, sources[name])
	}
	return buf.Bytes(), nil
}

func maskSecret(secret string) string {
	if secret == "" {
		return notSet
	}
	return fmt.Sprintf("%s (%d bytes)", masked, len(secret))
}

// secretParams are connection URL query parameters that carry credentials.
var secretParams = []string{"password", "sslpassword"}

// maskURL hides the password in a connection URL, both in the userinfo and in
// query parameters. Keyword/value DSNs cannot be parsed as URLs and are hidden
// entirely.
func maskURL(dsn string) string {
	if dsn == "" {
		return notSet
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return masked
	}

	if u.RawQuery != "" {
		q, err := url.ParseQuery(u.RawQuery)
		if err != nil {
			return masked
		}
		changed := false
		for _, key := range secretParams {
			if q.Has(key) {
				q.Set(key, "xxxxx")
				changed = true
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}
	return u.Redacted()
}
