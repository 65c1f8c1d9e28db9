package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound indicates an unknown or expired session token.
var ErrSessionNotFound = errors.New("session not found")

// Store keeps browser sessions in Redis: one key per session token plus a
// per-user set so all of a user's sessions can be dropped on password change.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed session store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) sessionKey(token string) string {
	return fmt.Sprintf("sessions:browser:%s", token)
}

func (s *Store) userKey(userID string) string {
	return fmt.Sprintf("sessions:user:%s", userID)
}

// Create issues a new session token for the user.
func (s *Store) Create(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(token), userID, s.ttl)
	pipe.SAdd(ctx, s.userKey(userID), token)
	pipe.Expire(ctx, s.userKey(userID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve maps a session token to a user id.
func (s *Store) Resolve(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, s.sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	return userID, nil
}

// Destroy removes one session.
func (s *Store) Destroy(ctx context.Context, token string) error {
	userID, err := s.client.Get(ctx, s.sessionKey(token)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.sessionKey(token))
	if userID != "" {
		pipe.SRem(ctx, s.userKey(userID), token)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// DestroyAllForUser drops every session of one user.
func (s *Store) DestroyAllForUser(ctx context.Context, userID string) error {
	tokens, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.client.TxPipeline()
	for _, token := range tokens {
		pipe.Del(ctx, s.sessionKey(token))
	}
	pipe.Del(ctx, s.userKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}
