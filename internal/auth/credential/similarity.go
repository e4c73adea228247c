// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package credential

import "regexp"

// SimilarityThreshold is the quick ratio at or above which a password is
// considered too close to a username or email.
const SimilarityThreshold = 0.70

var nonWordRegex = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// QuickRatio returns an order-insensitive similarity score in [0, 1]:
// twice the size of the rune multiset intersection of a and b, divided by
// their combined rune length. Two empty strings score 1.
//
// This is the upper bound difflib's SequenceMatcher.quick_ratio computes, and
// the threshold above is calibrated against it.
func QuickRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}

	avail := make(map[rune]int, len(rb))
	for _, r := range rb {
		avail[r]++
	}
	matches := 0
	for _, r := range ra {
		if avail[r] > 0 {
			avail[r]--
			matches++
		}
	}
	return 2.0 * float64(matches) / float64(total)
}

// similarityTokens splits s on runs of non-word characters and appends s
// itself. Empty tokens are kept; they never reach the threshold against a
// non-empty password.
func similarityTokens(s string) []string {
	return append(nonWordRegex.Split(s, -1), s)
}

// tooSimilar reports whether password scores at or above the threshold
// against any token of other.
func tooSimilar(password, other string) bool {
	for _, tok := range similarityTokens(other) {
		if QuickRatio(password, tok) >= SimilarityThreshold {
			return true
		}
	}
	return false
}
