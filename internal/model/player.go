package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// PlayerID uniquely identifies a player for the lifetime of its connection
type PlayerID string

// MaxPlayerNameLength is the longest display name accepted, in runes
const MaxPlayerNameLength = 32

// Player is a participant in a party
type Player struct {
	ID       PlayerID  `json:"id"`
	Name     string    `json:"name"`
	IsHost   bool      `json:"isHost"`
	JoinedAt time.Time `json:"-"`
}

// NormalizePlayerName trims a display name and checks it is usable
func NormalizePlayerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxPlayerNameLength {
		return "", ErrInvalidPlayerName
	}
	return name, nil
}
