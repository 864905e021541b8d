package services

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
)

const slugAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// maxAllocAttempts bounds the insert-retry loop for random candidates.
// Hitting it at a sane slug length means the keyspace is pathologically
// small or the store is corrupt.
const maxAllocAttempts = 10

// randomSlug draws length characters uniformly from the base62 alphabet
// using a cryptographically secure source, so slugs are not guessable from
// a counter.
func randomSlug(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(slugAlphabet))))
		if err != nil {
			return "", err
		}
		b[i] = slugAlphabet[num.Int64()]
	}
	return string(b), nil
}

// validateRequestedSlug checks a user-chosen slug: 1..maxLen characters,
// base62 only. Comparison is case-sensitive throughout.
func validateRequestedSlug(slug string, maxLen int) error {
	if len(slug) < 1 || len(slug) > maxLen {
		return domain.ErrInvalidSlug
	}
	for _, ch := range slug {
		if !strings.ContainsRune(slugAlphabet, ch) {
			return domain.ErrInvalidSlug
		}
	}
	return nil
}
