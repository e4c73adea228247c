// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package token

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// DeriveBindingKey returns the hex SHA-256 of the subject and password hash,
// each prefixed with its length in characters so that different split points
// cannot produce the same input.
func DeriveBindingKey(subject, passwordHash string) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(utf8.RuneCountInString(subject)))
	b.WriteString(subject)
	b.WriteString(strconv.Itoa(utf8.RuneCountInString(passwordHash)))
	b.WriteString(passwordHash)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func BearerToken(header string) (string, error) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	tok = strings.TrimSpace(tok)
	if !ok || !strings.EqualFold(scheme, "bearer") || tok == "" {
		return "", oops.Code("TOKEN_MISSING").Wrapf(ErrTokenMalformed, "authorization header is not a bearer token")
	}
	return tok, nil
}
