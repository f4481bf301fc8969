package redis

// Package redis provides Redis-based adapters for the portal.

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
	"github.com/redis/go-redis/v9"
)

// TokenStoreOptions configures a Redis-backed TokenStore.
type TokenStoreOptions struct {
	// Prefix is prepended to Key. Defaults to "felix:token:".
	Prefix string
	// Key identifies this client's credential entry. Defaults to "access_token".
	Key string
	// TTL expires the stored credential; zero keeps it until cleared.
	TTL time.Duration
}

// TokenStore keeps the credential in Redis so several portal processes on a
// host (or a kiosk pool) share one login.
type TokenStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewTokenStore creates a Redis token store.
func NewTokenStore(client redis.UniversalClient, opts TokenStoreOptions) *TokenStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "felix:token:"
	}
	key := opts.Key
	if key == "" {
		key = "access_token"
	}
	return &TokenStore{client: client, key: prefix + key, ttl: opts.TTL}
}

// Get never fails: connection errors and missing keys both read as absent.
func (s *TokenStore) Get(ctx context.Context) (domainauth.Credential, bool) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil || val == "" {
		return "", false
	}
	return domainauth.Credential(val), true
}

func (s *TokenStore) Set(ctx context.Context, cred domainauth.Credential) error {
	if cred.IsZero() {
		return errors.New("credential cannot be empty")
	}
	if err := s.client.Set(ctx, s.key, string(cred), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
