package codegen

import (
	"strings"

	"github.com/mcoot/partycoord/internal/dependencies/random"
	"github.com/mcoot/partycoord/internal/model"
)

const (
	// CodeLength is the length of generated party codes
	CodeLength = 6
	// CodeAlphabet is the characters used in party codes
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DefaultMaxAttempts bounds generation retries on collision
	DefaultMaxAttempts = 10
)

// Generator issues party codes that do not collide with live parties
type Generator struct {
	random      random.Random
	maxAttempts int
}

// New creates a Generator with the default attempt bound
func New(rnd random.Random) *Generator {
	return &Generator{random: rnd, maxAttempts: DefaultMaxAttempts}
}

// NewWithAttempts creates a Generator with a custom attempt bound
func NewWithAttempts(rnd random.Random, maxAttempts int) *Generator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Generator{random: rnd, maxAttempts: maxAttempts}
}

// Generate returns a code for which taken reports false.
// A candidate that is not a well-formed code counts as a failed attempt.
func (g *Generator) Generate(taken func(model.PartyCode) bool) (model.PartyCode, error) {
	for range g.maxAttempts {
		code := model.PartyCode(g.random.String(CodeLength, CodeAlphabet))
		if !IsValid(code) {
			continue
		}
		if !taken(code) {
			return code, nil
		}
	}
	return "", model.ErrCodeSpaceExhausted
}

// IsValid reports whether code is exactly CodeLength characters from CodeAlphabet
func IsValid(code model.PartyCode) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(CodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

// Parse normalizes user input into a party code.
// Surrounding whitespace is trimmed and letters are uppercased; anything else malformed is rejected.
func Parse(input string) (model.PartyCode, error) {
	code := model.PartyCode(strings.ToUpper(strings.TrimSpace(input)))
	if !IsValid(code) {
		return "", model.ErrPartyNotFound
	}
	return code, nil
}
