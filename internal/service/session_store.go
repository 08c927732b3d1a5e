package service

import (
	"context"
	"fmt"
	"time"

	"clinicflow/pkg/jwt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore tracks issued token ids so tokens can be revoked before expiry
type SessionStore interface {
	StorePair(ctx context.Context, userID uuid.UUID, accessID, refreshID string, accessTTL, refreshTTL time.Duration) error
	Exists(ctx context.Context, userID uuid.UUID, tokenType jwt.TokenType, tokenID string) (bool, error)
	Revoke(ctx context.Context, userID uuid.UUID, tokenType jwt.TokenType, tokenID string) error
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

type redisSessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) SessionStore {
	return &redisSessionStore{client: client}
}

func sessionKey(userID uuid.UUID, tokenType jwt.TokenType, tokenID string) string {
	return fmt.Sprintf("%s_token:%s:%s", tokenType, userID.String(), tokenID)
}

func (s *redisSessionStore) StorePair(ctx context.Context, userID uuid.UUID, accessID, refreshID string, accessTTL, refreshTTL time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(userID, jwt.AccessToken, accessID), "valid", accessTTL)
	pipe.Set(ctx, sessionKey(userID, jwt.RefreshToken, refreshID), "valid", refreshTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisSessionStore) Exists(ctx context.Context, userID uuid.UUID, tokenType jwt.TokenType, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(userID, tokenType, tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisSessionStore) Revoke(ctx context.Context, userID uuid.UUID, tokenType jwt.TokenType, tokenID string) error {
	return s.client.Del(ctx, sessionKey(userID, tokenType, tokenID)).Err()
}

// RevokeAll uses SCAN so large keyspaces do not block the server
func (s *redisSessionStore) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	for _, tokenType := range []jwt.TokenType{jwt.AccessToken, jwt.RefreshToken} {
		pattern := sessionKey(userID, tokenType, "*")
		iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()

		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}
