package model

import "time"

// PartyID is the internal identifier of a party session
type PartyID string

// PartyCode is the human-shareable code used to join a party
type PartyCode string

// PartyState is the lifecycle state of a party session
type PartyState string

const (
	PartyStateForming    PartyState = "forming"     // Accepting joins
	PartyStateInProgress PartyState = "in_progress" // Game underway
	PartyStateClosed     PartyState = "closed"      // Torn down, terminal
)

// DefaultMaxPlayers is the capacity of a party when none is configured
const DefaultMaxPlayers = 8

// PartyDetails is a point-in-time snapshot of a party, as sent to members
type PartyDetails struct {
	ID         PartyID    `json:"id"`
	Code       PartyCode  `json:"partyCode"`
	HostID     PlayerID   `json:"hostId"`
	HostName   string     `json:"hostName"`
	Players    []Player   `json:"players"`
	MaxPlayers int        `json:"maxPlayers"`
	State      PartyState `json:"state"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Host returns the current host, or nil if the party is empty
func (d *PartyDetails) Host() *Player {
	for i := range d.Players {
		if d.Players[i].IsHost {
			return &d.Players[i]
		}
	}
	return nil
}

// Summary converts the snapshot into its directory form
func (d *PartyDetails) Summary(updatedAt time.Time) PartySummary {
	return PartySummary{
		ID:          d.ID,
		Code:        d.Code,
		HostName:    d.HostName,
		PlayerCount: len(d.Players),
		MaxPlayers:  d.MaxPlayers,
		State:       d.State,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   updatedAt,
	}
}

// PartySummary is the directory entry for a live party
type PartySummary struct {
	ID          PartyID    `json:"id"`
	Code        PartyCode  `json:"code"`
	HostName    string     `json:"hostName"`
	PlayerCount int        `json:"playerCount"`
	MaxPlayers  int        `json:"maxPlayers"`
	State       PartyState `json:"state"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsJoinable reports whether the summary describes a party that accepts players
func (s *PartySummary) IsJoinable() bool {
	return s.State == PartyStateForming && s.PlayerCount < s.MaxPlayers
}
