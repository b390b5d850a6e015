package gateway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/mcoot/partycoord/internal/model"
	"github.com/mcoot/partycoord/internal/services/codegen"
	"github.com/mcoot/partycoord/internal/services/party"
	"github.com/mcoot/partycoord/internal/services/registry"
)

// Peer is one client connection as seen by the gateway
type Peer interface {
	party.Subscriber
	ID() string
}

// Gateway translates inbound frames into registry commands and binds
// connections to the party membership they create.
//
// HandleFrame and Disconnect must be called sequentially for any one peer,
// which the connection read loop guarantees.
type Gateway struct {
	registry registry.RegistryInterface
	bindings *Bindings
	clock    clockwork.Clock
	logger   *slog.Logger
}

// New creates a Gateway
func New(reg registry.RegistryInterface, bindings *Bindings, clock clockwork.Clock, logger *slog.Logger) *Gateway {
	return &Gateway{
		registry: reg,
		bindings: bindings,
		clock:    clock,
		logger:   logger.With(slog.String("component", "gateway")),
	}
}

// Bindings returns the connection binding table
func (g *Gateway) Bindings() *Bindings {
	return g.bindings
}

// HandleFrame applies one inbound frame on behalf of peer. Failures are
// reported to peer as an error event and never returned.
func (g *Gateway) HandleFrame(ctx context.Context, peer Peer, data []byte) {
	frame, err := DecodeFrame(data)
	if err != nil {
		g.reply(peer, "", err)
		return
	}

	switch frame.Event {
	case EventCreateParty:
		err = g.createParty(ctx, peer, frame)
	case EventJoinParty:
		err = g.joinParty(ctx, peer, frame)
	case EventLeaveParty:
		err = g.leaveParty(ctx, peer)
	case EventStartGame:
		err = g.startGame(ctx, peer)
	default:
		err = model.ErrUnknownEvent
	}
	if err != nil {
		g.reply(peer, frame.Event, err)
	}
}

// Disconnect releases the peer's binding and leaves its party. Repeated calls are no-ops.
func (g *Gateway) Disconnect(ctx context.Context, peer Peer) {
	ref, ok := g.bindings.Release(peer.ID())
	if !ok {
		return
	}
	if err := g.registry.LeaveParty(ctx, ref.PartyID, ref.PlayerID); err != nil {
		g.logger.Warn("leave on disconnect failed",
			slog.String("connection_id", peer.ID()),
			slog.String("party_id", string(ref.PartyID)),
			slog.String("error", err.Error()))
		return
	}
	g.logger.Debug("connection left party on disconnect",
		slog.String("connection_id", peer.ID()),
		slog.String("party_id", string(ref.PartyID)))
}

func (g *Gateway) createParty(ctx context.Context, peer Peer, frame Frame) error {
	if err := g.ensureUnbound(ctx, peer); err != nil {
		return err
	}
	var payload CreatePartyPayload
	if err := DecodePayload(frame, &payload); err != nil {
		return err
	}

	joined, err := g.registry.CreateParty(ctx, payload.Name, payload.AdminPassword, peer)
	if err != nil {
		return err
	}
	return g.bind(ctx, peer, joined)
}

func (g *Gateway) joinParty(ctx context.Context, peer Peer, frame Frame) error {
	if err := g.ensureUnbound(ctx, peer); err != nil {
		return err
	}
	var payload JoinPartyPayload
	if err := DecodePayload(frame, &payload); err != nil {
		return err
	}
	code, err := codegen.Parse(payload.PartyCode)
	if err != nil {
		return err
	}

	joined, err := g.registry.JoinParty(ctx, code, payload.Name, peer)
	if err != nil {
		return err
	}
	return g.bind(ctx, peer, joined)
}

// leaveParty keeps the binding when the leave fails so the peer can retry
// and a later disconnect still removes the player.
func (g *Gateway) leaveParty(ctx context.Context, peer Peer) error {
	ref, ok := g.bindings.Lookup(peer.ID())
	if !ok {
		return model.ErrNotInParty
	}
	if err := g.registry.LeaveParty(ctx, ref.PartyID, ref.PlayerID); err != nil {
		return err
	}
	g.bindings.Release(peer.ID())
	return nil
}

func (g *Gateway) startGame(ctx context.Context, peer Peer) error {
	ref, ok := g.bindings.Lookup(peer.ID())
	if !ok {
		return model.ErrNotInParty
	}
	err := g.registry.StartGame(ctx, ref.PartyID, ref.PlayerID)
	if errors.Is(err, model.ErrPartyNotFound) {
		g.bindings.Release(peer.ID())
	}
	return err
}

// ensureUnbound fails if peer is in a live party. A binding left over from a
// party that has since closed is released.
func (g *Gateway) ensureUnbound(ctx context.Context, peer Peer) error {
	ref, ok := g.bindings.Lookup(peer.ID())
	if !ok {
		return nil
	}
	if _, err := g.registry.GetSession(ctx, ref.PartyID); errors.Is(err, model.ErrPartyNotFound) {
		g.bindings.Release(peer.ID())
		return nil
	}
	return model.ErrAlreadyInParty
}

func (g *Gateway) bind(ctx context.Context, peer Peer, joined party.Joined) error {
	ref := Ref{PartyID: joined.Party.ID, PlayerID: joined.Player.ID}
	if err := g.bindings.Bind(peer.ID(), ref); err != nil {
		// The membership exists but cannot be tracked, so undo it
		_ = g.registry.LeaveParty(ctx, ref.PartyID, ref.PlayerID)
		return err
	}

	g.logger.Info("connection bound",
		slog.String("connection_id", peer.ID()),
		slog.String("party_id", string(ref.PartyID)),
		slog.String("player_id", string(ref.PlayerID)))
	return nil
}

// reply sends err to the originating peer only
func (g *Gateway) reply(peer Peer, event string, err error) {
	message, expected := ErrorMessage(err)
	if expected {
		g.logger.Debug("request rejected",
			slog.String("connection_id", peer.ID()),
			slog.String("event", event),
			slog.String("error", err.Error()))
	} else {
		g.logger.Error("request failed",
			slog.String("connection_id", peer.ID()),
			slog.String("event", event),
			slog.String("error", err.Error()))
	}
	peer.Deliver(model.ErrorEvent(message, g.clock.Now()))
}
