package gateway

import (
	"errors"

	"github.com/mcoot/partycoord/internal/model"
)

// errorMessages maps expected errors to the text shown to players
var errorMessages = []struct {
	err     error
	message string
}{
	{model.ErrInvalidAdminPassword, "Invalid admin password"},
	{model.ErrPartyNotFound, "Party not found"},
	{model.ErrPartyFull, "Party is full"},
	{model.ErrPartyAlreadyStarted, "Party has already started"},
	{model.ErrNotHost, "Only the host can start the game"},
	{model.ErrInsufficientPlayers, "At least 2 players are needed to start"},
	{model.ErrCodeSpaceExhausted, "No party codes available, try again later"},
	{model.ErrInvalidPlayerName, "Name must be between 1 and 32 characters"},
	{model.ErrAlreadyInParty, "Already in a party"},
	{model.ErrNotInParty, "Not in a party"},
	{model.ErrMalformedFrame, "Malformed message"},
	{model.ErrUnknownEvent, "Unknown event"},
}

// internalErrorMessage is shown for every unexpected fault
const internalErrorMessage = "Internal server error"

// ErrorMessage returns the player-facing message for err and whether err was expected
func ErrorMessage(err error) (string, bool) {
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			return m.message, true
		}
	}
	return internalErrorMessage, false
}
