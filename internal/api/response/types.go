package response

import (
	"time"

	"github.com/mcoot/partycoord/internal/model"
)

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status      string `json:"status"`
	Parties     int    `json:"parties"`
	Connections int    `json:"connections"`
}

// PartyListing is a forming party as shown in the public directory, without its code
type PartyListing struct {
	ID          string    `json:"id"`
	HostName    string    `json:"hostName"`
	PlayerCount int       `json:"playerCount"`
	MaxPlayers  int       `json:"maxPlayers"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PartyListingFromModel converts a directory summary
func PartyListingFromModel(s *model.PartySummary) PartyListing {
	return PartyListing{
		ID:          string(s.ID),
		HostName:    s.HostName,
		PlayerCount: s.PlayerCount,
		MaxPlayers:  s.MaxPlayers,
		CreatedAt:   s.CreatedAt,
	}
}

// PartyList is the body of GET /api/v1/parties
type PartyList struct {
	Parties []PartyListing `json:"parties"`
}

// Party is a single directory entry looked up by code
type Party struct {
	ID          string    `json:"id"`
	Code        string    `json:"partyCode"`
	HostName    string    `json:"hostName"`
	PlayerCount int       `json:"playerCount"`
	MaxPlayers  int       `json:"maxPlayers"`
	State       string    `json:"state"`
	Joinable    bool      `json:"joinable"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PartyFromModel converts a directory summary
func PartyFromModel(s *model.PartySummary) Party {
	return Party{
		ID:          string(s.ID),
		Code:        string(s.Code),
		HostName:    s.HostName,
		PlayerCount: s.PlayerCount,
		MaxPlayers:  s.MaxPlayers,
		State:       string(s.State),
		Joinable:    s.IsJoinable(),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
