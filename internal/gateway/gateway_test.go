package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partycoord/internal/dependencies/mocks"
	"github.com/mcoot/partycoord/internal/model"
	"github.com/mcoot/partycoord/internal/services/auth"
	"github.com/mcoot/partycoord/internal/services/codegen"
	"github.com/mcoot/partycoord/internal/services/registry"
	"github.com/mcoot/partycoord/internal/testutil"
)

type GatewaySuite struct {
	suite.Suite
	ctx      context.Context
	clock    *clockwork.FakeClock
	random   *mocks.MockRandom
	notifier *testutil.RecordingNotifier
	registry *registry.Registry
	gateway  *Gateway
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.notifier = testutil.NewRecordingNotifier()

	verifier, err := auth.NewAdminVerifier("admin123")
	s.Require().NoError(err)
	s.registry = registry.New(codegen.New(s.random), verifier, s.notifier, s.clock, registry.DefaultConfig(), testutil.NopLogger())
	s.gateway = New(s.registry, NewBindings(), s.clock, testutil.NopLogger())
}

func (s *GatewaySuite) TearDownTest() {
	s.Require().NoError(s.registry.Stop(s.ctx))
}

func (s *GatewaySuite) send(peer Peer, frame string) {
	s.gateway.HandleFrame(s.ctx, peer, []byte(frame))
}

func (s *GatewaySuite) createParty(peer *testutil.RecordingPeer, code string) model.PartyDetails {
	s.random.QueueString(code)
	s.send(peer, `{"event":"create_party","data":{"name":"Alice","adminPassword":"admin123"}}`)
	last := peer.Last()
	s.Require().Equal(model.EventPartyPlayerUpdate, last.Type, "last message: %q", last.Message)
	s.Require().Len(last.Players, 1)
	event, ok := peer.LastOf(model.EventPartyJoined)
	s.Require().True(ok)
	return *event.Party
}

func (s *GatewaySuite) joinParty(peer *testutil.RecordingPeer, code, name string) {
	s.send(peer, `{"event":"join_party","data":{"partyCode":"`+code+`","name":"`+name+`"}}`)
}

func (s *GatewaySuite) requireError(peer *testutil.RecordingPeer, message string) {
	event := peer.Last()
	s.Require().Equal(model.EventError, event.Type)
	s.Equal(message, event.Message)
}

func (s *GatewaySuite) TestCreatePartyBindsConnection() {
	alice := testutil.NewRecordingPeer("conn-alice")

	details := s.createParty(alice, "ABC123")

	s.Equal(model.PartyCode("ABC123"), details.Code)
	s.Equal("Alice", details.HostName)
	ref, ok := s.gateway.Bindings().Lookup("conn-alice")
	s.Require().True(ok)
	s.Equal(details.ID, ref.PartyID)
	s.Equal(details.HostID, ref.PlayerID)
}

func (s *GatewaySuite) TestCreatePartyWrongPassword() {
	alice := testutil.NewRecordingPeer("conn-alice")

	s.send(alice, `{"event":"create_party","data":{"name":"Alice","adminPassword":"nope"}}`)

	s.requireError(alice, "Invalid admin password")
	s.Equal(0, s.gateway.Bindings().Count())
	s.Equal(0, s.registry.Count())
}

func (s *GatewaySuite) TestMalformedAndUnknownFrames() {
	peer := testutil.NewRecordingPeer("conn-1")

	s.send(peer, `not json`)
	s.requireError(peer, "Malformed message")

	s.send(peer, `{"data":{}}`)
	s.requireError(peer, "Malformed message")

	s.send(peer, `{"event":"create_party","data":"oops"}`)
	s.requireError(peer, "Malformed message")

	s.send(peer, `{"event":"dance"}`)
	s.requireError(peer, "Unknown event")
}

func (s *GatewaySuite) TestJoinNormalizesCode() {
	alice := testutil.NewRecordingPeer("conn-alice")
	s.createParty(alice, "ABC123")
	bob := testutil.NewRecordingPeer("conn-bob")

	s.joinParty(bob, " abc123 ", "Bob")

	s.Equal([]model.EventType{model.EventPartyJoined, model.EventPartyPlayerUpdate}, bob.Types())
	s.Equal(2, s.gateway.Bindings().Count())
	s.Equal(model.EventPartyPlayerUpdate, alice.Last().Type)
	s.Len(alice.Last().Players, 2)
}

func (s *GatewaySuite) TestJoinUnknownOrMalformedCode() {
	bob := testutil.NewRecordingPeer("conn-bob")

	s.joinParty(bob, "WRONG1", "Bob")
	s.requireError(bob, "Party not found")

	s.joinParty(bob, "AB-12", "Bob")
	s.requireError(bob, "Party not found")

	s.Equal(0, s.gateway.Bindings().Count())
}

func (s *GatewaySuite) TestJoinRejectsEmptyName() {
	s.createParty(testutil.NewRecordingPeer("conn-alice"), "ABC123")
	bob := testutil.NewRecordingPeer("conn-bob")

	s.joinParty(bob, "ABC123", "   ")

	s.requireError(bob, "Name must be between 1 and 32 characters")
}

func (s *GatewaySuite) TestSecondCreateWhileBound() {
	alice := testutil.NewRecordingPeer("conn-alice")
	s.createParty(alice, "ABC123")

	s.random.QueueString("XYZ789")
	s.send(alice, `{"event":"create_party","data":{"name":"Alice","adminPassword":"admin123"}}`)

	s.requireError(alice, "Already in a party")
	s.Equal(1, s.registry.Count())
}

func (s *GatewaySuite) TestStartGameScenario() {
	alice := testutil.NewRecordingPeer("conn-alice")
	s.createParty(alice, "ABC123")

	s.send(alice, `{"event":"start_game"}`)
	s.requireError(alice, "At least 2 players are needed to start")

	bob := testutil.NewRecordingPeer("conn-bob")
	s.joinParty(bob, "ABC123", "Bob")

	s.send(bob, `{"event":"start_game","data":{}}`)
	s.requireError(bob, "Only the host can start the game")

	s.send(alice, `{"event":"start_game"}`)
	s.Equal(model.EventPartyStarted, alice.Last().Type)
	s.Equal(model.EventPartyStarted, bob.Last().Type)

	carol := testutil.NewRecordingPeer("conn-carol")
	s.joinParty(carol, "ABC123", "Carol")
	s.requireError(carol, "Party has already started")
}

func (s *GatewaySuite) TestStartGameUnbound() {
	peer := testutil.NewRecordingPeer("conn-1")

	s.send(peer, `{"event":"start_game"}`)

	s.requireError(peer, "Not in a party")
}

func (s *GatewaySuite) TestLeavePartyReleasesBinding() {
	alice := testutil.NewRecordingPeer("conn-alice")
	s.createParty(alice, "ABC123")
	bob := testutil.NewRecordingPeer("conn-bob")
	s.joinParty(bob, "ABC123", "Bob")

	s.send(alice, `{"event":"leave_party"}`)

	_, bound := s.gateway.Bindings().Lookup("conn-alice")
	s.False(bound)
	update := bob.Last()
	s.Require().Equal(model.EventPartyPlayerUpdate, update.Type)
	s.Require().Len(update.Players, 1)
	s.True(update.Players[0].IsHost)

	s.send(alice, `{"event":"leave_party"}`)
	s.requireError(alice, "Not in a party")
}

func (s *GatewaySuite) TestDisconnectLeavesOnce() {
	alice := testutil.NewRecordingPeer("conn-alice")
	s.createParty(alice, "ABC123")
	bob := testutil.NewRecordingPeer("conn-bob")
	s.joinParty(bob, "ABC123", "Bob")
	before := len(s.notifier.Changes())

	s.gateway.Disconnect(s.ctx, bob)
	s.gateway.Disconnect(s.ctx, bob)

	s.Len(s.notifier.Changes(), before+1)
	details, err := s.registry.GetSessionByCode(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Len(details.Players, 1)
}

func (s *GatewaySuite) TestDisconnectOfLastPlayerClosesParty() {
	alice := testutil.NewRecordingPeer("conn-alice")
	s.createParty(alice, "ABC123")

	s.gateway.Disconnect(s.ctx, alice)

	s.Equal(0, s.registry.Count())
	s.Equal(0, s.gateway.Bindings().Count())
}

func (s *GatewaySuite) TestStaleBindingIsReleased() {
	alice := testutil.NewRecordingPeer("conn-alice")
	s.createParty(alice, "ABC123")

	// Drop alice's subscription, then let the reaper close the party under her
	alice.SetUnavailable(true)
	bob := testutil.NewRecordingPeer("conn-bob")
	s.joinParty(bob, "ABC123", "Bob")
	s.send(bob, `{"event":"leave_party"}`)
	s.clock.Advance(registry.DefaultConfig().IdleTimeout)
	s.Require().Equal(1, s.registry.ReapIdle(s.ctx))
	alice.SetUnavailable(false)

	s.createParty(alice, "XYZ789")
	ref, ok := s.gateway.Bindings().Lookup("conn-alice")
	s.Require().True(ok)
	details, err := s.registry.GetSessionByCode(s.ctx, "XYZ789")
	s.Require().NoError(err)
	s.Equal(details.ID, ref.PartyID)
}

// failingLeaveRegistry rejects every leave and delegates everything else
type failingLeaveRegistry struct {
	registry.RegistryInterface
	err error
}

func (f *failingLeaveRegistry) LeaveParty(context.Context, model.PartyID, model.PlayerID) error {
	return f.err
}

func (s *GatewaySuite) TestFailedLeaveKeepsBinding() {
	alice := testutil.NewRecordingPeer("conn-alice")
	s.createParty(alice, "ABC123")
	gw := New(&failingLeaveRegistry{RegistryInterface: s.registry, err: model.ErrInternal}, s.gateway.Bindings(), s.clock, testutil.NopLogger())

	gw.HandleFrame(s.ctx, alice, []byte(`{"event":"leave_party"}`))

	s.requireError(alice, "Internal server error")
	_, bound := s.gateway.Bindings().Lookup("conn-alice")
	s.True(bound)

	s.send(alice, `{"event":"leave_party"}`)
	_, bound = s.gateway.Bindings().Lookup("conn-alice")
	s.False(bound)
	s.Equal(0, s.registry.Count())
}
