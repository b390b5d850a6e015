package model

import "time"

// EventType identifies an outbound event delivered to party members
type EventType string

const (
	EventPartyJoined       EventType = "party_joined"
	EventPartyPlayerUpdate EventType = "party_player_update"
	EventPartyStarted      EventType = "party_started"
	EventError             EventType = "error"
)

// Event is a single outbound event for one connection
type Event struct {
	Type      EventType
	PartyID   PartyID
	Party     *PartyDetails // party_joined only
	PlayerID  PlayerID      // party_joined only, the recipient
	Players   []Player      // party_player_update only
	Message   string        // error only
	Timestamp time.Time
}

// ErrorEvent builds an error event carrying a human-readable message
func ErrorEvent(message string, at time.Time) Event {
	return Event{Type: EventError, Message: message, Timestamp: at}
}

// ChangeKind identifies a party lifecycle change
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeStarted ChangeKind = "started"
	ChangeClosed  ChangeKind = "closed"
)

// PartyChange records a lifecycle change for the directory and publishers
type PartyChange struct {
	Kind    ChangeKind   `json:"kind"`
	Summary PartySummary `json:"party"`
	At      time.Time    `json:"at"`
}
