// Package commitment implements the sealed-bid commitment scheme:
// a bidder binds to a hidden payload with sha256(nonce || payload) and
// can later prove the payload by revealing the nonce.
package commitment

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"unicode/utf8"
)

// HintLength is the number of leading nonce characters kept as a hint
const HintLength = 8

// ErrEmptyInput is returned when the payload or the nonce is empty
var ErrEmptyInput = errors.New("commitment: payload and nonce are required")

// Commit returns the hex encoded SHA-256 digest of nonce || payload
func Commit(payload, nonce []byte) (string, error) {
	if len(payload) == 0 || len(nonce) == 0 {
		return "", ErrEmptyInput
	}
	return digest(payload, nonce), nil
}

// Verify reports whether digest was produced by Commit(payload, nonce).
// The comparison is constant time.
func Verify(payload, nonce []byte, commitment string) bool {
	if len(payload) == 0 || len(nonce) == 0 || commitment == "" {
		return false
	}
	expected := digest(payload, nonce)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(commitment)) == 1
}

// NonceHint returns the first HintLength characters of the nonce
func NonceHint(nonce string) string {
	if utf8.RuneCountInString(nonce) <= HintLength {
		return nonce
	}
	n := 0
	for i := range nonce {
		if n == HintLength {
			return nonce[:i]
		}
		n++
	}
	return nonce
}

func digest(payload, nonce []byte) string {
	h := sha256.New()
	h.Write(nonce)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
