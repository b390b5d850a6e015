package model

import "errors"

// Common errors used across the application
var (
	// Party errors
	ErrInvalidAdminPassword = errors.New("invalid admin password")
	ErrPartyNotFound        = errors.New("party not found")
	ErrPartyFull            = errors.New("party is full")
	ErrPartyAlreadyStarted  = errors.New("party has already started")
	ErrNotHost              = errors.New("player is not the host")
	ErrInsufficientPlayers  = errors.New("insufficient players to start game")
	ErrCodeSpaceExhausted   = errors.New("could not allocate a unique party code")

	// Player errors
	ErrInvalidPlayerName = errors.New("invalid player name")

	// Connection errors
	ErrAlreadyInParty = errors.New("connection is already in a party")
	ErrNotInParty     = errors.New("connection is not in a party")
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownEvent   = errors.New("unknown event")

	// ErrInternal hides an unexpected fault from callers
	ErrInternal = errors.New("internal error")
)
