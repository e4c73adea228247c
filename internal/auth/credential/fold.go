// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package credential

import (
	"strings"
	"unicode"
)

const (
	capitalDottedI  = '\u0130'
	capitalSigma    = '\u03a3'
	smallSigma      = '\u03c3'
	finalSmallSigma = '\u03c2'
)

// foldCase lowercases s using the full Unicode case mapping. It differs from
// strings.ToLower in two places: U+0130 becomes "i" followed by U+0307, so
// the result is two characters long, and a capital sigma at the end of a word
// becomes the final form ς.
func foldCase(s string) string {
	if !strings.ContainsRune(s, capitalDottedI) && !strings.ContainsRune(s, capitalSigma) {
		return strings.ToLower(s)
	}

	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 2)
	for i, r := range rs {
		switch r {
		case capitalDottedI:
			b.WriteString("i\u0307")
		case capitalSigma:
			if finalSigma(rs, i) {
				b.WriteRune(finalSmallSigma)
			} else {
				b.WriteRune(smallSigma)
			}
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// finalSigma reports whether the sigma at rs[i] ends a word: a cased letter
// comes before it and none follows, skipping case-ignorable characters.
func finalSigma(rs []rune, i int) bool {
	j := i - 1
	for j >= 0 && caseIgnorable(rs[j]) {
		j--
	}
	if j < 0 || !cased(rs[j]) {
		return false
	}

	k := i + 1
	for k < len(rs) && caseIgnorable(rs[k]) {
		k++
	}
	return k == len(rs) || !cased(rs[k])
}

func cased(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r) ||
		unicode.In(r, unicode.Other_Lowercase, unicode.Other_Uppercase)
}

func caseIgnorable(r rune) bool {
	switch r {
	case '\'', '.', ':', '\u00b7', '\u0387', '\u2018', '\u2019', '\u2024', '\u2027',
		'\ufe13', '\ufe52', '\ufe55', '\uff07', '\uff0e', '\uff1a':
		return true
	}
	return unicode.In(r, unicode.Mn, unicode.Me, unicode.Cf, unicode.Lm, unicode.Sk)
}
