package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/partycoord/internal/model"
	"github.com/mcoot/partycoord/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks the connection is usable
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveParty(ctx context.Context, summary *model.PartySummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	key := s.partyKey(summary.Code)
	indexKey := s.partyIndexKey()

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, s.cfg.PartyTTL)
	pipe.SAdd(ctx, indexKey, key)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetParty(ctx context.Context, code model.PartyCode) (*model.PartySummary, error) {
	data, err := s.client.Get(ctx, s.partyKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPartyNotFound
		}
		return nil, err
	}

	var summary model.PartySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Storage) DeleteParty(ctx context.Context, code model.PartyCode) error {
	key := s.partyKey(code)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, s.partyIndexKey(), key)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ListParties(ctx context.Context) ([]*model.PartySummary, error) {
	indexKey := s.partyIndexKey()

	keys, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return []*model.PartySummary{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	parties := make([]*model.PartySummary, 0, len(values))
	var expired []any
	for i, val := range values {
		raw, ok := val.(string)
		if !ok {
			// Entry expired; prune it from the index below
			expired = append(expired, keys[i])
			continue
		}
		var summary model.PartySummary
		if err := json.Unmarshal([]byte(raw), &summary); err != nil {
			continue // Skip invalid data
		}
		parties = append(parties, &summary)
	}

	if len(expired) > 0 {
		if err := s.client.SRem(ctx, indexKey, expired...).Err(); err != nil {
			return nil, err
		}
	}

	storage.SortByCreation(parties)
	return parties, nil
}
