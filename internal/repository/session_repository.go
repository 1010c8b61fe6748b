package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// SessionRepository 维护登录会话：会话 ID → 用户名。
type SessionRepository interface {
	Create(ctx context.Context, sessionID, username string) error
	// Find 返回会话对应的用户名；会话不存在或已过期时 ok 为 false。
	Find(ctx context.Context, sessionID string) (username string, ok bool, err error)
	Delete(ctx context.Context, sessionID string) error
	// DeleteByUsername 删除引用该用户的全部会话。
	DeleteByUsername(ctx context.Context, username string) error
}

type redisSessionRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewSessionRepository 创建一个基于 Redis 的 SessionRepository。
func NewSessionRepository(redisClient *redis.Client, ttl time.Duration) SessionRepository {
	return &redisSessionRepository{redisClient: redisClient, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func userSessionsKey(username string) string {
	return fmt.Sprintf("user:%s:sessions", username)
}

func (r *redisSessionRepository) Create(ctx context.Context, sessionID, username string) error {
	pipe := r.redisClient.TxPipeline()
	pipe.Set(ctx, sessionKey(sessionID), username, r.ttl)
	pipe.SAdd(ctx, userSessionsKey(username), sessionID)
	pipe.Expire(ctx, userSessionsKey(username), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) Find(ctx context.Context, sessionID string) (string, bool, error) {
	username, err := r.redisClient.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get session: %w", err)
	}
	return username, true, nil
}

func (r *redisSessionRepository) Delete(ctx context.Context, sessionID string) error {
	username, ok, err := r.Find(ctx, sessionID)
	if err != nil || !ok {
		return err
	}
	pipe := r.redisClient.TxPipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	pipe.SRem(ctx, userSessionsKey(username), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) DeleteByUsername(ctx context.Context, username string) error {
	ids, err := r.redisClient.SMembers(ctx, userSessionsKey(username)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userSessionsKey(username))
	if err := r.redisClient.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

type memorySession struct {
	username  string
	expiresAt time.Time
}

// memorySessionRepository 把会话保存在进程内，未配置 Redis 时使用。
type memorySessionRepository struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]memorySession
	now      func() time.Time
}

// NewMemorySessionRepository 创建一个内存 SessionRepository。ttl <= 0 表示会话不过期。
func NewMemorySessionRepository(ttl time.Duration) SessionRepository {
	return &memorySessionRepository{
		ttl:      ttl,
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

func (r *memorySessionRepository) Create(_ context.Context, sessionID, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := memorySession{username: username}
	if r.ttl > 0 {
		s.expiresAt = r.now().Add(r.ttl)
	}
	r.sessions[sessionID] = s
	return nil
}

func (r *memorySessionRepository) Find(_ context.Context, sessionID string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return "", false, nil
	}
	if !s.expiresAt.IsZero() && r.now().After(s.expiresAt) {
		delete(r.sessions, sessionID)
		return "", false, nil
	}
	return s.username, true, nil
}

func (r *memorySessionRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *memorySessionRepository) DeleteByUsername(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.username == username {
			delete(r.sessions, id)
		}
	}
	return nil
}
