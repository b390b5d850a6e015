package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePlayerName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "Alice", want: "Alice"},
		{name: "trimmed", input: "  Bob \t", want: "Bob"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "at limit", input: strings.Repeat("é", MaxPlayerNameLength), want: strings.Repeat("é", MaxPlayerNameLength)},
		{name: "too long", input: strings.Repeat("x", MaxPlayerNameLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePlayerName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPlayerName)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPartyDetailsHostAndSummary(t *testing.T) {
	d := PartyDetails{
		ID:         "p1",
		Code:       "ABC123",
		HostID:     "b",
		HostName:   "Bob",
		MaxPlayers: 2,
		State:      PartyStateForming,
		Players: []Player{
			{ID: "a", Name: "Alice"},
			{ID: "b", Name: "Bob", IsHost: true},
		},
	}

	host := d.Host()
	assert.NotNil(t, host)
	assert.Equal(t, PlayerID("b"), host.ID)

	summary := d.Summary(d.CreatedAt)
	assert.Equal(t, 2, summary.PlayerCount)
	assert.Equal(t, "Bob", summary.HostName)
	assert.False(t, summary.IsJoinable(), "a full party is not joinable")

	summary.PlayerCount = 1
	assert.True(t, summary.IsJoinable())

	summary.State = PartyStateInProgress
	assert.False(t, summary.IsJoinable())
}

func TestPartyDetailsHostEmpty(t *testing.T) {
	d := PartyDetails{}
	assert.Nil(t, d.Host())
}
