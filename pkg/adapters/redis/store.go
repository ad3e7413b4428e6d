package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/clarify/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store and the locker.
const DefaultPrefix = "clarify:session:"

// far future score for sessions without TTL (2100-01-01)
const noExpiryScore = 4102444800

// Store implements ports.SessionStore using Redis.
// Snapshots are JSON strings; a sorted set indexes them by expiry for List.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for sessions. Every Save refreshes it.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromURL creates a store from a redis:// URL.
func NewFromURL(url string, opts ...Option) (*Store, error) {
	o, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewFromClient(backend.NewClient(o), opts...), nil
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Prefix returns the configured key prefix.
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the state to Redis.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.State) error {
	data, score, err := s.encode(state)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	s.queueSave(ctx, pipe, sessionID, data, score)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// SaveIfRevision checks the stored revision and writes inside a WATCH
// transaction, so a writer that slips in between aborts the save.
func (s *Store) SaveIfRevision(ctx context.Context, sessionID string, state *domain.State, expected int) error {
	data, score, err := s.encode(state)
	if err != nil {
		return err
	}

	key := s.key(sessionID)
	err = s.client.Watch(ctx, func(tx *backend.Tx) error {
		stored := 0
		val, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, backend.Nil):
		case err != nil:
			return fmt.Errorf("failed to get from redis: %w", err)
		default:
			var cur struct {
				Revision int `json:"revision"`
			}
			if err := json.Unmarshal(val, &cur); err != nil {
				return fmt.Errorf("failed to unmarshal state: %w", err)
			}
			stored = cur.Revision
		}
		if stored != expected {
			return fmt.Errorf("%w: stored %d, expected %d", domain.ErrRevisionConflict, stored, expected)
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			s.queueSave(ctx, pipe, sessionID, data, score)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil, errors.Is(err, domain.ErrRevisionConflict):
		return err
	case errors.Is(err, backend.TxFailedErr):
		return fmt.Errorf("%w: concurrent write to %s", domain.ErrRevisionConflict, sessionID)
	default:
		return fmt.Errorf("failed to save to redis: %w", err)
	}
}

func (s *Store) encode(state *domain.State) ([]byte, float64, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal state: %w", err)
	}
	score := float64(noExpiryScore)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).Unix())
	}
	return data, score, nil
}

func (s *Store) queueSave(ctx context.Context, pipe backend.Pipeliner, sessionID string, data []byte, score float64) {
	pipe.Set(ctx, s.key(sessionID), data, s.ttl) // 0 means no expiration
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: sessionID})
}

// Load retrieves the state from Redis.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(val, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List returns live sessions, pruning expired index entries first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := fmt.Sprintf("%d", time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", now).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
