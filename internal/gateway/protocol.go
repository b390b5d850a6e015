package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/mcoot/partycoord/internal/model"
)

// Inbound event names
const (
	EventCreateParty = "create_party"
	EventJoinParty   = "join_party"
	EventLeaveParty  = "leave_party"
	EventStartGame   = "start_game"
)

// Frame is the envelope of every WebSocket text message in both directions
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// CreatePartyPayload is the data of a create_party frame
type CreatePartyPayload struct {
	Name          string `json:"name"`
	AdminPassword string `json:"adminPassword"`
}

// JoinPartyPayload is the data of a join_party frame
type JoinPartyPayload struct {
	PartyCode string `json:"partyCode"`
	Name      string `json:"name"`
}

// PartyJoinedPayload is the data of a party_joined frame
type PartyJoinedPayload struct {
	Party    model.PartyDetails `json:"party"`
	PlayerID model.PlayerID     `json:"playerId"`
}

// PlayerUpdatePayload is the data of a party_player_update frame
type PlayerUpdatePayload struct {
	Players []model.Player `json:"players"`
}

// ErrorPayload is the data of an error frame
type ErrorPayload struct {
	Message string `json:"message"`
}

// DecodeFrame parses an inbound envelope
func DecodeFrame(data []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", model.ErrMalformedFrame, err)
	}
	if frame.Event == "" {
		return Frame{}, fmt.Errorf("%w: missing event", model.ErrMalformedFrame)
	}
	return frame, nil
}

// DecodePayload unmarshals the frame data into v. Missing data decodes as an empty object.
func DecodePayload(frame Frame, v any) error {
	if len(frame.Data) == 0 || string(frame.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(frame.Data, v); err != nil {
		return fmt.Errorf("%w: %v", model.ErrMalformedFrame, err)
	}
	return nil
}

// EncodeFrame builds an outbound envelope carrying payload
func EncodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// EncodeEvent converts a party event into its wire frame
func EncodeEvent(event model.Event) ([]byte, error) {
	switch event.Type {
	case model.EventPartyJoined:
		if event.Party == nil {
			return nil, fmt.Errorf("party_joined without party")
		}
		return EncodeFrame(string(event.Type), PartyJoinedPayload{Party: *event.Party, PlayerID: event.PlayerID})
	case model.EventPartyPlayerUpdate:
		players := event.Players
		if players == nil {
			players = []model.Player{}
		}
		return EncodeFrame(string(event.Type), PlayerUpdatePayload{Players: players})
	case model.EventPartyStarted:
		return EncodeFrame(string(event.Type), struct{}{})
	case model.EventError:
		return EncodeFrame(string(event.Type), ErrorPayload{Message: event.Message})
	default:
		return nil, fmt.Errorf("unknown event type %q", event.Type)
	}
}
