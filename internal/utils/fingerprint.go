package utils

import (
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"
)

// NormalizeUtterance lowercases text, drops punctuation and collapses whitespace,
// so "I'm  scared!" and "i m scared" land on the same key.
func NormalizeUtterance(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Fingerprint derives the learned-response context key for a customer utterance.
// Equal inputs always produce equal fingerprints.
func Fingerprint(scenarioID, avatarID, customerUtterance string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(scenarioID))
	h.Write([]byte{0})
	h.Write([]byte(avatarID))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeUtterance(customerUtterance)))
	return hex.EncodeToString(h.Sum(nil))
}
