// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package credential

import (
	"regexp"
	"strings"
)

// MinUsernameLength is the shortest accepted username, exclusive.
const MinUsernameLength = 4

var (
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.@+-]+$`)

	// Dot-atom or quoted string.
	emailLocalRegex = regexp.MustCompile("(?i)^(?:" +
		"[-!#$%&'*+/=?^_`{}|~0-9a-z]+(?:\\.[-!#$%&'*+/=?^_`{}|~0-9a-z]+)*" +
		"|" +
		`"(?:[\x01-\x08\x0b\x0c\x0e-\x1f!#-\[\]-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])*"` +
		")$")

	// One or more labels followed by a TLD of 2-63 characters not ending in '-'.
	emailDomainRegex = regexp.MustCompile(`(?i)^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z0-9-]{1,62}[a-z0-9]$`)
)

// ValidateUsername checks that name uses only letters, digits and
// "_.@+-" and is longer than MinUsernameLength characters.
// Surrounding whitespace is not trimmed.
func ValidateUsername(name string) error {
	if !usernameRegex.MatchString(name) {
		return reject(codeInvalidUsername, ErrInvalidUsername, ReasonInvalidCharacters,
			"username may only contain letters, digits and _.@+-")
	}
	if len(name) <= MinUsernameLength {
		return reject(codeInvalidUsername, ErrInvalidUsername, ReasonTooShort,
			"username must be longer than 4 characters")
	}
	return nil
}

// ValidateEmail checks the syntax of an email address. The address is split
// on its last '@'.
func ValidateEmail(email string) error {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return reject(codeInvalidEmail, ErrInvalidEmail, ReasonMissingAt,
			"email must contain '@'")
	}
	local, domain := email[:at], email[at+1:]
	if !emailLocalRegex.MatchString(local) {
		return reject(codeInvalidEmail, ErrInvalidEmail, ReasonInvalidLocalPart,
			"email local part is invalid")
	}
	if !emailDomainRegex.MatchString(domain) {
		return reject(codeInvalidEmail, ErrInvalidEmail, ReasonInvalidDomain,
			"email domain is invalid")
	}
	return nil
}
