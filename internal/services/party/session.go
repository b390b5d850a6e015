package party

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcoot/partycoord/internal/model"
)

// Subscriber receives the events of a party for one connection.
// Deliver must not block; returning false drops the subscriber.
type Subscriber interface {
	Deliver(event model.Event) bool
}

// Notifier receives lifecycle changes. Notify must not block.
type Notifier interface {
	Notify(change model.PartyChange)
}

// NopNotifier discards lifecycle changes
type NopNotifier struct{}

// Notify implements Notifier
func (NopNotifier) Notify(model.PartyChange) {}

// Params describes a new session and its host
type Params struct {
	ID         model.PartyID
	Code       model.PartyCode
	HostID     model.PlayerID
	HostName   string
	Host       Subscriber
	MaxPlayers int
	Clock      clockwork.Clock
	Notifier   Notifier
	Logger     *slog.Logger
}

// Joined is the result of creating or joining a party
type Joined struct {
	Party  model.PartyDetails
	Player model.Player
}

// LeaveResult reports what a leave command changed
type LeaveResult struct {
	Removed bool
	Closed  bool
}

// Session owns the membership and lifecycle of one party.
// All state below inbox is touched only by the run goroutine.
type Session struct {
	id         model.PartyID
	code       model.PartyCode
	maxPlayers int
	createdAt  time.Time
	clock      clockwork.Clock
	notifier   Notifier
	logger     *slog.Logger

	inbox chan command
	done  chan struct{}

	state       model.PartyState
	players     []model.Player
	subscribers map[model.PlayerID]Subscriber
	idleSince   time.Time
}

// New starts a session in the Forming state with the host as its only player.
// The host subscriber receives party_joined and the first
// party_player_update before New returns.
func New(ctx context.Context, p Params) (*Session, Joined) {
	if p.MaxPlayers <= 0 {
		p.MaxPlayers = model.DefaultMaxPlayers
	}
	if p.Notifier == nil {
		p.Notifier = NopNotifier{}
	}

	now := p.Clock.Now()
	s := &Session{
		id:         p.ID,
		code:       p.Code,
		maxPlayers: p.MaxPlayers,
		createdAt:  now,
		clock:      p.Clock,
		notifier:   p.Notifier,
		logger: p.Logger.With(
			slog.String("party_id", string(p.ID)),
			slog.String("party_code", string(p.Code)),
		),
		inbox:       make(chan command),
		done:        make(chan struct{}),
		state:       model.PartyStateForming,
		subscribers: make(map[model.PlayerID]Subscriber),
		idleSince:   now,
	}

	host := model.Player{ID: p.HostID, Name: p.HostName, IsHost: true, JoinedAt: now}
	s.players = append(s.players, host)
	joined := s.subscribe(host, p.Host)
	s.broadcastPlayers()
	s.notify(model.ChangeCreated)

	go s.run(ctx)

	s.logger.Info("party created", slog.String("host_id", string(host.ID)))
	return s, joined
}

// ID returns the session identifier
func (s *Session) ID() model.PartyID {
	return s.id
}

// Code returns the party code
func (s *Session) Code() model.PartyCode {
	return s.code
}

// Done is closed once the session has reached the Closed state
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Join adds a player and subscribes sub to the party's events
func (s *Session) Join(ctx context.Context, playerID model.PlayerID, name string, sub Subscriber) (Joined, error) {
	cmd := joinCmd{playerID: playerID, name: name, sub: sub, reply: make(chan joinReply, 1)}
	if err := s.send(ctx, cmd); err != nil {
		return Joined{}, err
	}
	r := <-cmd.reply
	return r.joined, r.err
}

// Leave removes a player. Leaving twice is a no-op.
func (s *Session) Leave(ctx context.Context, playerID model.PlayerID) (LeaveResult, error) {
	cmd := leaveCmd{playerID: playerID, reply: make(chan leaveReply, 1)}
	if err := s.send(ctx, cmd); err != nil {
		return LeaveResult{}, err
	}
	r := <-cmd.reply
	return r.result, r.err
}

// Start moves the party to InProgress on behalf of the requesting player
func (s *Session) Start(ctx context.Context, requester model.PlayerID) error {
	cmd := startCmd{requester: requester, reply: make(chan error, 1)}
	if err := s.send(ctx, cmd); err != nil {
		return err
	}
	return <-cmd.reply
}

// Snapshot returns the current party details
func (s *Session) Snapshot(ctx context.Context) (model.PartyDetails, error) {
	cmd := snapshotCmd{reply: make(chan snapshotReply, 1)}
	if err := s.send(ctx, cmd); err != nil {
		return model.PartyDetails{}, err
	}
	r := <-cmd.reply
	return r.details, r.err
}

// CloseIfIdle closes the session if it has had no subscribers for at least timeout
func (s *Session) CloseIfIdle(ctx context.Context, timeout time.Duration) (bool, error) {
	cmd := reapCmd{timeout: timeout, reply: make(chan reapReply, 1)}
	if err := s.send(ctx, cmd); err != nil {
		return false, err
	}
	r := <-cmd.reply
	return r.closed, r.err
}

// Close tears the session down regardless of its membership
func (s *Session) Close(ctx context.Context, reason string) error {
	cmd := closeCmd{reason: reason, reply: make(chan error, 1)}
	if err := s.send(ctx, cmd); err != nil {
		return err
	}
	return <-cmd.reply
}

// send hands a command to the run goroutine. The inbox is unbuffered, so a
// command that is accepted is always answered. Callers wait for that reply
// regardless of ctx.
func (s *Session) send(ctx context.Context, cmd command) error {
	select {
	case s.inbox <- cmd:
		return nil
	case <-s.done:
		return model.ErrPartyNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case cmd := <-s.inbox:
			s.dispatch(cmd)
		case <-ctx.Done():
			if s.state != model.PartyStateClosed {
				s.close("shutdown")
			}
		}
		if s.state == model.PartyStateClosed {
			return
		}
	}
}

// dispatch applies one command. A panic leaves the session untrustworthy,
// so it is closed and the caller gets ErrInternal.
func (s *Session) dispatch(cmd command) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("party command panicked",
				slog.String("command", fmt.Sprintf("%T", cmd)),
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
			)
			cmd.fail(model.ErrInternal)
			if s.state != model.PartyStateClosed {
				s.close("internal error")
			}
		}
	}()

	switch c := cmd.(type) {
	case joinCmd:
		joined, err := s.applyJoin(c)
		c.reply <- joinReply{joined: joined, err: err}
	case leaveCmd:
		c.reply <- leaveReply{result: s.applyLeave(c.playerID)}
	case startCmd:
		c.reply <- s.applyStart(c.requester)
	case snapshotCmd:
		c.reply <- snapshotReply{details: s.details()}
	case reapCmd:
		c.reply <- reapReply{closed: s.applyReap(c.timeout)}
	case closeCmd:
		s.close(c.reason)
		c.reply <- nil
	default:
		cmd.fail(model.ErrInternal)
	}
}

func (s *Session) applyJoin(c joinCmd) (Joined, error) {
	if s.state == model.PartyStateInProgress {
		return Joined{}, model.ErrPartyAlreadyStarted
	}
	name, err := model.NormalizePlayerName(c.name)
	if err != nil {
		return Joined{}, err
	}
	if len(s.players) >= s.maxPlayers {
		return Joined{}, model.ErrPartyFull
	}
	if s.indexOf(c.playerID) >= 0 {
		return Joined{}, fmt.Errorf("duplicate player id %s: %w", c.playerID, model.ErrInternal)
	}

	player := model.Player{ID: c.playerID, Name: name, JoinedAt: s.clock.Now()}
	s.players = append(s.players, player)
	joined := s.subscribe(player, c.sub)
	s.broadcastPlayers()
	s.notify(model.ChangeUpdated)

	s.logger.Info("player joined",
		slog.String("player_id", string(player.ID)),
		slog.Int("player_count", len(s.players)))
	return joined, nil
}

func (s *Session) applyLeave(playerID model.PlayerID) LeaveResult {
	idx := s.indexOf(playerID)
	if idx < 0 {
		return LeaveResult{}
	}

	left := s.players[idx]
	s.players = slices.Delete(s.players, idx, idx+1)
	s.unsubscribe(playerID)

	s.logger.Info("player left",
		slog.String("player_id", string(playerID)),
		slog.Int("player_count", len(s.players)))

	if len(s.players) == 0 {
		s.close("empty")
		return LeaveResult{Removed: true, Closed: true}
	}

	if left.IsHost {
		s.players[0].IsHost = true
		s.logger.Info("host promoted", slog.String("player_id", string(s.players[0].ID)))
	}
	s.broadcastPlayers()
	s.notify(model.ChangeUpdated)
	return LeaveResult{Removed: true}
}

func (s *Session) applyStart(requester model.PlayerID) error {
	if s.state == model.PartyStateInProgress {
		return model.ErrPartyAlreadyStarted
	}
	idx := s.indexOf(requester)
	if idx < 0 || !s.players[idx].IsHost {
		return model.ErrNotHost
	}
	if len(s.players) < 2 {
		return model.ErrInsufficientPlayers
	}

	s.state = model.PartyStateInProgress
	s.broadcast(model.Event{Type: model.EventPartyStarted, PartyID: s.id, Timestamp: s.clock.Now()})
	s.notify(model.ChangeStarted)

	s.logger.Info("party started", slog.Int("player_count", len(s.players)))
	return nil
}

func (s *Session) applyReap(timeout time.Duration) bool {
	if len(s.subscribers) > 0 {
		return false
	}
	if s.clock.Since(s.idleSince) < timeout {
		return false
	}
	s.close("idle")
	return true
}

// close moves the session to Closed and releases every subscriber
func (s *Session) close(reason string) {
	s.state = model.PartyStateClosed
	clear(s.subscribers)
	s.notify(model.ChangeClosed)
	s.logger.Info("party closed", slog.String("reason", reason))
}

// subscribe registers sub for player and sends it the party_joined reply
func (s *Session) subscribe(player model.Player, sub Subscriber) Joined {
	joined := Joined{Party: s.details(), Player: player}
	if sub == nil {
		return joined
	}

	s.subscribers[player.ID] = sub
	party := joined.Party
	if !sub.Deliver(model.Event{
		Type:      model.EventPartyJoined,
		PartyID:   s.id,
		Party:     &party,
		PlayerID:  player.ID,
		Timestamp: s.clock.Now(),
	}) {
		s.dropSubscriber(player.ID)
	}
	return joined
}

func (s *Session) unsubscribe(playerID model.PlayerID) {
	if _, ok := s.subscribers[playerID]; !ok {
		return
	}
	delete(s.subscribers, playerID)
	if len(s.subscribers) == 0 {
		s.idleSince = s.clock.Now()
	}
}

func (s *Session) dropSubscriber(playerID model.PlayerID) {
	s.logger.Warn("party event dropped - subscriber unavailable",
		slog.String("player_id", string(playerID)))
	s.unsubscribe(playerID)
}

func (s *Session) broadcastPlayers() {
	s.broadcast(model.Event{
		Type:      model.EventPartyPlayerUpdate,
		PartyID:   s.id,
		Players:   slices.Clone(s.players),
		Timestamp: s.clock.Now(),
	})
}

// broadcast delivers event to every subscriber in the current step
func (s *Session) broadcast(event model.Event) {
	for id, sub := range s.subscribers {
		if !sub.Deliver(event) {
			s.dropSubscriber(id)
		}
	}
}

func (s *Session) notify(kind model.ChangeKind) {
	details := s.details()
	now := s.clock.Now()
	s.notifier.Notify(model.PartyChange{Kind: kind, Summary: details.Summary(now), At: now})
}

func (s *Session) details() model.PartyDetails {
	d := model.PartyDetails{
		ID:         s.id,
		Code:       s.code,
		Players:    slices.Clone(s.players),
		MaxPlayers: s.maxPlayers,
		State:      s.state,
		CreatedAt:  s.createdAt,
	}
	if host := d.Host(); host != nil {
		d.HostID = host.ID
		d.HostName = host.Name
	}
	return d
}

func (s *Session) indexOf(playerID model.PlayerID) int {
	return slices.IndexFunc(s.players, func(p model.Player) bool { return p.ID == playerID })
}
