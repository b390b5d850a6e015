package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partycoord/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
	base    time.Time
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.PartyTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
	s.base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) summary(code model.PartyCode, offset time.Duration) *model.PartySummary {
	return &model.PartySummary{
		ID:          model.PartyID("id-" + string(code)),
		Code:        code,
		HostName:    "Alice",
		PlayerCount: 2,
		MaxPlayers:  8,
		State:       model.PartyStateForming,
		CreatedAt:   s.base.Add(offset),
		UpdatedAt:   s.base.Add(offset),
	}
}

func (s *StorageSuite) TestSaveAndGetParty() {
	err := s.storage.SaveParty(s.ctx, s.summary("ABC123", 0))
	s.Require().NoError(err)

	retrieved, err := s.storage.GetParty(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(model.PartyID("id-ABC123"), retrieved.ID)
	s.Equal(2, retrieved.PlayerCount)
	s.True(s.base.Equal(retrieved.CreatedAt))
}

func (s *StorageSuite) TestSavePartyHasTTL() {
	s.Require().NoError(s.storage.SaveParty(s.ctx, s.summary("ABC123", 0)))

	ttl := s.mini.TTL("partycoord:party:ABC123")
	s.Equal(time.Hour, ttl)
}

func (s *StorageSuite) TestSavePartyAddsToIndex() {
	s.Require().NoError(s.storage.SaveParty(s.ctx, s.summary("ABC123", 0)))

	members, err := s.mini.Members("partycoord:idx:parties")
	s.Require().NoError(err)
	s.Equal([]string{"partycoord:party:ABC123"}, members)
}

func (s *StorageSuite) TestGetPartyNotFound() {
	_, err := s.storage.GetParty(s.ctx, "NOPE00")
	s.ErrorIs(err, model.ErrPartyNotFound)
}

func (s *StorageSuite) TestDeleteParty() {
	s.Require().NoError(s.storage.SaveParty(s.ctx, s.summary("ABC123", 0)))

	err := s.storage.DeleteParty(s.ctx, "ABC123")
	s.Require().NoError(err)

	_, err = s.storage.GetParty(s.ctx, "ABC123")
	s.ErrorIs(err, model.ErrPartyNotFound)
	s.False(s.mini.Exists("partycoord:party:ABC123"))

	parties, err := s.storage.ListParties(s.ctx)
	s.Require().NoError(err)
	s.Empty(parties)
}

func (s *StorageSuite) TestListPartiesOrderedByCreation() {
	s.Require().NoError(s.storage.SaveParty(s.ctx, s.summary("THIRD3", 2*time.Minute)))
	s.Require().NoError(s.storage.SaveParty(s.ctx, s.summary("FIRST1", 0)))
	s.Require().NoError(s.storage.SaveParty(s.ctx, s.summary("SECND2", time.Minute)))

	parties, err := s.storage.ListParties(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(parties, 3)
	s.Equal(model.PartyCode("FIRST1"), parties[0].Code)
	s.Equal(model.PartyCode("SECND2"), parties[1].Code)
	s.Equal(model.PartyCode("THIRD3"), parties[2].Code)
}

func (s *StorageSuite) TestListPartiesPrunesExpiredEntries() {
	s.Require().NoError(s.storage.SaveParty(s.ctx, s.summary("ABC123", 0)))

	s.mini.FastForward(2 * time.Hour)
	s.Require().NoError(s.storage.SaveParty(s.ctx, s.summary("XYZ789", 0)))

	parties, err := s.storage.ListParties(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(parties, 1)
	s.Equal(model.PartyCode("XYZ789"), parties[0].Code)

	members, err := s.mini.Members("partycoord:idx:parties")
	s.Require().NoError(err)
	s.Equal([]string{"partycoord:party:XYZ789"}, members)
}

func (s *StorageSuite) TestListPartiesEmpty() {
	parties, err := s.storage.ListParties(s.ctx)
	s.Require().NoError(err)
	s.Empty(parties)
}

func (s *StorageSuite) TestCustomKeyPrefix() {
	cfg := DefaultConfig()
	cfg.KeyPrefix = "staging"
	store := NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), cfg)
	defer func() { _ = store.Close() }()

	s.Require().NoError(store.SaveParty(s.ctx, s.summary("ABC123", 0)))
	s.True(s.mini.Exists("staging:party:ABC123"))
}

func (s *StorageSuite) TestPing() {
	s.NoError(s.storage.Ping(s.ctx))
}
