// Package redisstore is a Redis-backed implementation of pkg/replay.Store,
// adapted from ahwlsqja-go-stable/pkg/nonce's SETNX-based reservation
// pattern: a nonce or nullifier is "seen" exactly when its key already
// exists, so recording one is a single idempotent SETNX.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wageattest/attestation-engine/pkg/replay"
)

const (
	noncePrefix     = "wageattest:nonce:"
	nullifierPrefix = "wageattest:nullifier:"

	// defaultTTL bounds how long a replay record is retained. It is set far
	// beyond any policy's max_attestation_age (§4.E.1.4 default 90 days) so
	// a key never expires while it could still matter to a live check.
	defaultTTL = 400 * 24 * time.Hour
)

// Store is the Redis-backed replay.Store.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ replay.Store = (*Store)(nil)

// New constructs a Store with the default retention window.
func New(client *redis.Client, logger *zap.Logger) *Store {
	return &Store{client: client, ttl: defaultTTL, logger: logger}
}

// NewWithTTL constructs a Store with a custom retention window.
func NewWithTTL(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{client: client, ttl: ttl, logger: logger}
}

func (s *Store) NonceSeen(ctx context.Context, periodKey string) (bool, error) {
	return s.exists(ctx, noncePrefix+periodKey)
}

func (s *Store) InsertNonce(ctx context.Context, periodKey string) error {
	return s.reserve(ctx, noncePrefix+periodKey)
}

func (s *Store) NullifierSeen(ctx context.Context, nullifier string) (bool, error) {
	return s.exists(ctx, nullifierPrefix+nullifier)
}

func (s *Store) InsertNullifier(ctx context.Context, nullifier string) error {
	return s.reserve(ctx, nullifierPrefix+nullifier)
}

func (s *Store) exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("replay store exists check: %w", err)
	}
	return n > 0, nil
}

// reserve records key via SETNX, which never overwrites an existing key or
// its TTL. A key that is already present is logged and treated as success,
// so recording is idempotent: racing callers on the same key both get a nil
// error. The caller is expected to already hold the Ledger's pair lock (§5).
func (s *Store) reserve(ctx context.Context, key string) error {
	ok, err := s.client.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		s.logger.Error("replay store reserve failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("replay store reserve: %w", err)
	}
	if !ok {
		s.logger.Warn("replay key already recorded", zap.String("key", key))
	}
	return nil
}
