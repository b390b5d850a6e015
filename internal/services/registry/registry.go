package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcoot/partycoord/internal/model"
	"github.com/mcoot/partycoord/internal/services/codegen"
	"github.com/mcoot/partycoord/internal/services/party"
)

// Config holds registry settings
type Config struct {
	MaxPlayers   int
	IdleTimeout  time.Duration
	ReapInterval time.Duration
}

// DefaultConfig returns sensible defaults for the registry
func DefaultConfig() Config {
	return Config{
		MaxPlayers:   model.DefaultMaxPlayers,
		IdleTimeout:  10 * time.Minute,
		ReapInterval: time.Minute,
	}
}

// Verifier checks the admin password for party creation
type Verifier interface {
	Verify(password string) error
}

// RegistryInterface is the set of operations the gateway and API depend on
type RegistryInterface interface {
	CreateParty(ctx context.Context, hostName, adminPassword string, sub party.Subscriber) (party.Joined, error)
	JoinParty(ctx context.Context, code model.PartyCode, name string, sub party.Subscriber) (party.Joined, error)
	LeaveParty(ctx context.Context, partyID model.PartyID, playerID model.PlayerID) error
	StartGame(ctx context.Context, partyID model.PartyID, playerID model.PlayerID) error
	GetSession(ctx context.Context, partyID model.PartyID) (model.PartyDetails, error)
	GetSessionByCode(ctx context.Context, code model.PartyCode) (model.PartyDetails, error)
	Count() int
}

var _ RegistryInterface = (*Registry)(nil)

// Registry owns every live party and is the only writer of the code and id indexes
type Registry struct {
	codes    *codegen.Generator
	verifier Verifier
	notifier party.Notifier
	clock    clockwork.Clock
	logger   *slog.Logger
	cfg      Config

	mu     sync.Mutex
	byID   map[model.PartyID]*party.Session
	byCode map[model.PartyCode]*party.Session

	// sessionCtx parents every session goroutine; cancelling it closes them all
	sessionCtx    context.Context
	cancelSession context.CancelFunc
	stopReaper    context.CancelFunc
	stopped       bool
	wg            sync.WaitGroup
}

// New creates a Registry. Call Start to enable idle reaping and Stop to tear everything down.
func New(
	codes *codegen.Generator,
	verifier Verifier,
	notifier party.Notifier,
	clock clockwork.Clock,
	cfg Config,
	logger *slog.Logger,
) *Registry {
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = model.DefaultMaxPlayers
	}
	if notifier == nil {
		notifier = party.NopNotifier{}
	}
	sessionCtx, cancel := context.WithCancel(context.Background())

	return &Registry{
		codes:         codes,
		verifier:      verifier,
		notifier:      notifier,
		clock:         clock,
		logger:        logger.With(slog.String("component", "registry")),
		cfg:           cfg,
		byID:          make(map[model.PartyID]*party.Session),
		byCode:        make(map[model.PartyCode]*party.Session),
		sessionCtx:    sessionCtx,
		cancelSession: cancel,
	}
}

// Start launches the idle reaper
func (r *Registry) Start(ctx context.Context) {
	if r.cfg.ReapInterval <= 0 || r.cfg.IdleTimeout <= 0 {
		r.logger.Info("idle reaper disabled")
		return
	}

	reapCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.stopReaper = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go r.reapLoop(reapCtx)
}

// Stop halts the reaper, closes every live party and waits for their goroutines to exit
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	if r.stopReaper != nil {
		r.stopReaper()
	}
	sessions := r.snapshotLocked()
	clear(r.byID)
	clear(r.byCode)
	r.mu.Unlock()

	r.cancelSession()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		for _, s := range sessions {
			<-s.Done()
		}
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("registry stopped", slog.Int("closed_parties", len(sessions)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateParty verifies the admin password and starts a party hosted by the caller
func (r *Registry) CreateParty(ctx context.Context, hostName, adminPassword string, sub party.Subscriber) (party.Joined, error) {
	if err := r.verifier.Verify(adminPassword); err != nil {
		r.logger.Info("party creation rejected", slog.String("reason", err.Error()))
		return party.Joined{}, err
	}
	name, err := model.NormalizePlayerName(hostName)
	if err != nil {
		return party.Joined{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return party.Joined{}, model.ErrInternal
	}

	code, err := r.codes.Generate(func(c model.PartyCode) bool {
		_, taken := r.byCode[c]
		return taken
	})
	if err != nil {
		r.logger.Error("party code allocation failed",
			slog.Int("live_parties", len(r.byCode)),
			slog.String("error", err.Error()))
		return party.Joined{}, err
	}

	session, joined := party.New(r.sessionCtx, party.Params{
		ID:         model.PartyID(uuid.NewString()),
		Code:       code,
		HostID:     model.PlayerID(uuid.NewString()),
		HostName:   name,
		Host:       sub,
		MaxPlayers: r.cfg.MaxPlayers,
		Clock:      r.clock,
		Notifier:   r.notifier,
		Logger:     r.logger,
	})
	r.byID[session.ID()] = session
	r.byCode[code] = session

	return joined, nil
}

// JoinParty adds a player to the live party with the given code
func (r *Registry) JoinParty(ctx context.Context, code model.PartyCode, name string, sub party.Subscriber) (party.Joined, error) {
	session, err := r.lookupByCode(code)
	if err != nil {
		return party.Joined{}, err
	}

	joined, err := session.Join(ctx, model.PlayerID(uuid.NewString()), name, sub)
	if err != nil {
		r.forgetIfClosed(session)
		return party.Joined{}, err
	}
	return joined, nil
}

// LeaveParty removes a player and tears the party down once it is empty.
// An unknown party or player is a no-op.
func (r *Registry) LeaveParty(ctx context.Context, partyID model.PartyID, playerID model.PlayerID) error {
	session, err := r.lookupByID(partyID)
	if err != nil {
		return nil
	}

	result, err := session.Leave(ctx, playerID)
	if errors.Is(err, model.ErrPartyNotFound) {
		r.forget(session)
		return nil
	}
	if err != nil {
		return err
	}
	if result.Closed {
		r.forget(session)
	}
	return nil
}

// StartGame moves a party to InProgress on behalf of playerID
func (r *Registry) StartGame(ctx context.Context, partyID model.PartyID, playerID model.PlayerID) error {
	session, err := r.lookupByID(partyID)
	if err != nil {
		return err
	}

	err = session.Start(ctx, playerID)
	if err != nil {
		r.forgetIfClosed(session)
	}
	return err
}

// GetSession returns a snapshot of the party with the given id
func (r *Registry) GetSession(ctx context.Context, partyID model.PartyID) (model.PartyDetails, error) {
	session, err := r.lookupByID(partyID)
	if err != nil {
		return model.PartyDetails{}, err
	}
	return session.Snapshot(ctx)
}

// GetSessionByCode returns a snapshot of the party with the given code
func (r *Registry) GetSessionByCode(ctx context.Context, code model.PartyCode) (model.PartyDetails, error) {
	session, err := r.lookupByCode(code)
	if err != nil {
		return model.PartyDetails{}, err
	}
	return session.Snapshot(ctx)
}

// Count returns the number of live parties
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// ReapIdle closes every party that has had no subscribers for the idle timeout
func (r *Registry) ReapIdle(ctx context.Context) int {
	r.mu.Lock()
	sessions := r.snapshotLocked()
	r.mu.Unlock()

	reaped := 0
	for _, session := range sessions {
		closed, err := session.CloseIfIdle(ctx, r.cfg.IdleTimeout)
		if err != nil && !errors.Is(err, model.ErrPartyNotFound) {
			r.logger.Warn("idle check failed",
				slog.String("party_id", string(session.ID())),
				slog.String("error", err.Error()))
			continue
		}
		if closed || errors.Is(err, model.ErrPartyNotFound) {
			r.forget(session)
		}
		if closed {
			reaped++
		}
	}

	if reaped > 0 {
		r.logger.Info("idle parties reaped", slog.Int("reaped", reaped))
	}
	return reaped
}

func (r *Registry) reapLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := r.clock.NewTicker(r.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			r.ReapIdle(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Registry) lookupByID(partyID model.PartyID) (*party.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byID[partyID]
	if !ok {
		return nil, model.ErrPartyNotFound
	}
	return session, nil
}

func (r *Registry) lookupByCode(code model.PartyCode) (*party.Session, error) {
	if !codegen.IsValid(code) {
		return nil, model.ErrPartyNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byCode[code]
	if !ok {
		return nil, model.ErrPartyNotFound
	}
	return session, nil
}

// forgetIfClosed removes a session whose goroutine has exited
func (r *Registry) forgetIfClosed(session *party.Session) {
	select {
	case <-session.Done():
		r.forget(session)
	default:
	}
}

// forget removes session from both indexes, freeing its code.
// Entries are only removed if they still point at this session.
func (r *Registry) forget(session *party.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byID[session.ID()] == session {
		delete(r.byID, session.ID())
	}
	if r.byCode[session.Code()] == session {
		delete(r.byCode, session.Code())
	}
}

func (r *Registry) snapshotLocked() []*party.Session {
	sessions := make([]*party.Session, 0, len(r.byID))
	for _, s := range r.byID {
		sessions = append(sessions, s)
	}
	return sessions
}
