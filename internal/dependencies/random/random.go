package random

import (
	"crypto/rand"
	"io"
)

// Random provides random string generation that can be mocked for testing
type Random interface {
	// String generates a random string of the given length from the given alphabet
	String(length int, alphabet string) string
}

// CryptoRandom implements Random on top of a cryptographic byte source
type CryptoRandom struct {
	reader io.Reader
}

// New creates a CryptoRandom reading from crypto/rand
func New() *CryptoRandom {
	return &CryptoRandom{reader: rand.Reader}
}

// NewWithReader creates a CryptoRandom reading from the given source
func NewWithReader(reader io.Reader) *CryptoRandom {
	return &CryptoRandom{reader: reader}
}

// String generates a random string of the given length from the given alphabet.
// Bytes that would bias the distribution are rejected and redrawn.
func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || len(alphabet) == 0 || len(alphabet) > 256 {
		return ""
	}

	limit := 256 - (256 % len(alphabet))
	result := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(result) < length {
		if _, err := io.ReadFull(r.reader, buf); err != nil {
			return ""
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			result = append(result, alphabet[int(b)%len(alphabet)])
			if len(result) == length {
				break
			}
		}
	}
	return string(result)
}
