// Package keygen produces the random alphanumeric short keys links are
// addressed by.
package keygen

import "math/rand/v2"

// Alphabet is the 62 characters a short key is drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generator produces short keys. Implementations must be safe for concurrent use.
type Generator interface {
	Generate(length int) string
}

// Random draws each character uniformly from Alphabet.
// Collisions are the caller's problem; see links.Service.
type Random struct{}

// NewRandom returns a Generator backed by math/rand/v2.
func NewRandom() Random {
	return Random{}
}

// Generate returns a string of exactly length characters. A non-positive
// length yields the empty string.
func (Random) Generate(length int) string {
	if length <= 0 {
		return ""
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = Alphabet[rand.IntN(len(Alphabet))]
	}
	return string(b)
}
