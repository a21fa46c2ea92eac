package shortcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	MinLength     = 3
	MaxLength     = 10
	DefaultLength = 6
)

// Generator produces random short codes over the 62-character
// alphanumeric alphabet. Uniqueness is not its concern; the caller
// retries on collision against the store's unique index.
type Generator struct {
	length int
}

func NewGenerator(length int) *Generator {
	if length < MinLength || length > MaxLength {
		length = DefaultLength
	}
	return &Generator{length: length}
}

// Generate returns a uniformly random code of the configured length
// from a cryptographically secure source.
func (g *Generator) Generate() (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, g.length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading random source: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Valid reports whether code is an acceptable custom short code:
// 3-10 characters, ASCII letters and digits only.
func Valid(code string) bool {
	if len(code) < MinLength || len(code) > MaxLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !isAlnum(c) {
			return false
		}
	}
	return true
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
