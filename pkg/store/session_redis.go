package store

import (
	"context"
	"strings"
	"time"

	"bookshelf/internal/util"
	"github.com/redis/go-redis/v9"
)

const defaultSessionPrefix = "shelf:session"

// RedisSessionStore keeps sessions in Redis with TTL.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore builds a Redis-backed session store.
func NewRedisSessionStore(addr, password string, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: defaultSessionPrefix,
		ttl:    ttl,
	}
}

// NewSession writes a token -> subject mapping with TTL.
func (s *RedisSessionStore) NewSession(subject string) (string, error) {
	token, err := util.NewToken(32)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Set(ctx, s.key(token), subject, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// GetSubjectByToken resolves token to subject.
func (s *RedisSessionStore) GetSubjectByToken(token string) (string, bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	val, err := s.client.Get(ctx, s.key(token)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisSessionStore) key(token string) string {
	return s.prefix + ":" + token
}
